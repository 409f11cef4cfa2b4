package model

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);uniqueIndex;not null;comment:外部用户标识（认证系统提供）"`
	IsActive  bool      `gorm:"column:is_active;type:boolean;default:true;comment:是否活跃"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:now();comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:now();comment:更新时间"`
}

// Prediction 预测流水表（只追加，评估后也不删除，作为审计账本）
// (user_id, asset_id, duration, slot_number, slot_start) 唯一约束防止同槽位重复提交
type Prediction struct {
	ID             uint64           `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	PredictionUUID string           `gorm:"column:prediction_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	UserID         string           `gorm:"column:user_id;type:varchar(64);uniqueIndex:uk_user_asset_slot;index;not null;comment:用户标识"`
	AssetID        string           `gorm:"column:asset_id;type:varchar(32);uniqueIndex:uk_user_asset_slot;not null;comment:标的资产符号"`
	Direction      Direction        `gorm:"column:direction;type:varchar(8);not null;comment:方向：up/down"`
	Duration       Duration         `gorm:"column:duration;type:varchar(16);uniqueIndex:uk_user_asset_slot;not null;comment:周期档位"`
	SlotNumber     int64            `gorm:"column:slot_number;type:bigint;uniqueIndex:uk_user_asset_slot;not null;comment:槽位序号（自锚点起）"`
	SlotStart      time.Time        `gorm:"column:slot_start;type:timestamp;uniqueIndex:uk_user_asset_slot;not null;comment:槽位起点（UTC）"`
	SlotEnd        time.Time        `gorm:"column:slot_end;type:timestamp;not null;comment:槽位终点（UTC）"`
	CreatedAt      time.Time        `gorm:"column:created_at;type:timestamp;default:now();comment:提交时间"`
	ExpiresAt      time.Time        `gorm:"column:expires_at;type:timestamp;not null;index;comment:到期时间（=槽位终点）"`
	Status         PredictionStatus `gorm:"column:status;type:varchar(16);default:active;index;comment:状态：active/evaluated"`
	Result         PredictionResult `gorm:"column:result;type:varchar(16);default:pending;comment:结果：pending/correct/incorrect"`
	PointsAwarded  int              `gorm:"column:points_awarded;type:int;default:0;comment:评估后计入的分数（罚分为负）"`
	PriceStart     float64          `gorm:"column:price_start;type:numeric(18,6);not null;comment:提交时锁定的起始价，之后不可变"`
	PriceEnd       *float64         `gorm:"column:price_end;type:numeric(18,6);comment:评估时观测的结束价"`
	EvaluatedAt    *time.Time       `gorm:"column:evaluated_at;type:timestamp;comment:评估时间"`
}

// IsExpired expired 是派生视图：active 且槽位已关闭（到期时刻本身算关闭），
// 不是落库的终态
func (p *Prediction) IsExpired(now time.Time) bool {
	return p.Status == StatusActive && !now.Before(p.ExpiresAt)
}

// UserStats 用户统计缓存表，真值始终由 predictions 账本重算得出
type UserStats struct {
	ID                   uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	UserID               string    `gorm:"column:user_id;type:varchar(64);uniqueIndex;not null;comment:用户标识"`
	TotalPredictions     int64     `gorm:"column:total_predictions;type:bigint;default:0;comment:累计提交数（含未评估）"`
	EvaluatedPredictions int64     `gorm:"column:evaluated_predictions;type:bigint;default:0;comment:已评估数"`
	CorrectPredictions   int64     `gorm:"column:correct_predictions;type:bigint;default:0;comment:命中数"`
	CurrentStreak        int       `gorm:"column:current_streak;type:int;default:0;comment:当前连对"`
	BestStreak           int       `gorm:"column:best_streak;type:int;default:0;comment:历史最佳连对"`
	AccuracyPercentage   float64   `gorm:"column:accuracy_percentage;type:numeric(6,2);default:0;comment:命中率（按已评估计）"`
	MonthlyScore         int64     `gorm:"column:monthly_score;type:bigint;default:0;comment:当前周期累计分"`
	MonthlyPeriod        string    `gorm:"column:monthly_period;type:varchar(8);comment:monthly_score 对应周期（YYYY-MM）"`
	TotalScore           int64     `gorm:"column:total_score;type:bigint;default:0;comment:累计总分"`
	UpdatedAt            time.Time `gorm:"column:updated_at;type:timestamp;default:now();comment:更新时间"`
}

// LeaderboardArchive 已关账周期的榜单快照，写入后不可变
type LeaderboardArchive struct {
	ID                 uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Period             string    `gorm:"column:period;type:varchar(8);uniqueIndex:uk_period_user;index;not null;comment:周期（YYYY-MM）"`
	UserID             string    `gorm:"column:user_id;type:varchar(64);uniqueIndex:uk_period_user;not null;comment:用户标识"`
	Rank               int       `gorm:"column:rank;type:int;not null;comment:名次（1 起连续无空洞）"`
	TotalScore         int64     `gorm:"column:total_score;type:bigint;not null;comment:周期总分"`
	TotalPredictions   int64     `gorm:"column:total_predictions;type:bigint;not null;comment:周期提交数"`
	CorrectPredictions int64     `gorm:"column:correct_predictions;type:bigint;not null;comment:周期命中数"`
	AccuracyPercentage float64   `gorm:"column:accuracy_percentage;type:numeric(6,2);default:0;comment:周期命中率"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamp;default:now();comment:归档时间"`
}

// Badge 徽章表：同一用户同一 badge_type 同一范围最多一枚（幂等颁发）
type Badge struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	BadgeUUID string         `gorm:"column:badge_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	UserID    string         `gorm:"column:user_id;type:varchar(64);uniqueIndex:uk_user_badge_scope;index;not null;comment:用户标识"`
	BadgeType string         `gorm:"column:badge_type;type:varchar(32);uniqueIndex:uk_user_badge_scope;not null;comment:徽章类型"`
	Scope     string         `gorm:"column:scope;type:varchar(8);uniqueIndex:uk_user_badge_scope;not null;comment:范围：lifetime 或 YYYY-MM"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb;comment:颁发上下文"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:now();comment:颁发时间"`
}

func (User) TableName() string               { return "users" }
func (Prediction) TableName() string         { return "predictions" }
func (UserStats) TableName() string          { return "user_stats" }
func (LeaderboardArchive) TableName() string { return "leaderboard_archives" }
func (Badge) TableName() string              { return "badges" }
