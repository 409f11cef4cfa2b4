package config

import (
	"fmt"
	"os"
	"time"

	"ForecastLadder/internal/model"
	"ForecastLadder/internal/slot"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`    // 服务器配置
	Postgres  PostgresConfig  `mapstructure:"postgres"`  // PostgreSQL配置
	Evaluator EvaluatorConfig `mapstructure:"evaluator"` // 评估扫描配置
	Oracle    OracleConfig    `mapstructure:"oracle"`    // 价格源配置
	Schedule  ScheduleConfig  `mapstructure:"schedule"`  // 积分表配置（带版本）
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// EvaluatorConfig 评估扫描配置
type EvaluatorConfig struct {
	Interval        time.Duration `mapstructure:"interval"`         // 扫描间隔
	BatchLimit      int           `mapstructure:"batch_limit"`      // 单轮最大评估条数
	LeaderboardSize int           `mapstructure:"leaderboard_size"` // 榜单Top-N长度
}

// OracleConfig 价格源配置
type OracleConfig struct {
	Provider   string `mapstructure:"provider"`    // 价格源类型：rest/static
	BaseURL    string `mapstructure:"base_url"`    // API基础地址
	PricePath  string `mapstructure:"price_path"`  // 取价接口路径
	Timeout    int    `mapstructure:"timeout"`     // 请求超时（秒）
	RetryCount int    `mapstructure:"retry_count"` // 重试次数
	AuthToken  string `mapstructure:"auth_token"`  // 认证Token
	Proxy      string `mapstructure:"proxy"`       // 代理地址
}

// ScheduleConfig 积分表配置：按档位覆盖内置 v1 默认值
type ScheduleConfig struct {
	Version int                     `mapstructure:"version"` // 积分表版本号
	Buckets map[string]BucketConfig `mapstructure:"buckets"` // 档位覆盖项
}

// BucketConfig 单档位覆盖项
type BucketConfig struct {
	Points     []int         `mapstructure:"points"`      // 槽位循环基础分表
	LockWindow time.Duration `mapstructure:"lock_window"` // 锁定窗口
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("ORACLE_AUTH_TOKEN"); v != "" {
		cfg.Oracle.AuthToken = v
	}
	if v := os.Getenv("ORACLE_PROXY"); v != "" {
		cfg.Oracle.Proxy = v
	}
}

// BuildSchedule 由配置生成积分表：未覆盖的档位沿用内置 v1 默认
func (c *ScheduleConfig) BuildSchedule() *slot.Schedule {
	sched := slot.Default()
	if c.Version > 0 {
		sched.Version = c.Version
	}
	for name, override := range c.Buckets {
		d := model.Duration(name)
		b, ok := sched.Buckets[d]
		if !ok {
			continue // 未知档位直接忽略
		}
		if len(override.Points) > 0 {
			b.Points = override.Points
		}
		if override.LockWindow > 0 {
			b.LockWindow = override.LockWindow
		}
		sched.Buckets[d] = b
	}
	return sched
}
