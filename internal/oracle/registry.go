package oracle

import (
	"fmt"

	"ForecastLadder/internal/config"
	"ForecastLadder/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// oracleFactory 价格源工厂：新增价格源仅需添加此处
var oracleFactory = map[string]func(cfg *config.OracleConfig, logger *logrus.Logger) interfaces.PriceOracle{
	"rest": NewRestOracle,
	"static": func(cfg *config.OracleConfig, logger *logrus.Logger) interfaces.PriceOracle {
		return NewStaticOracle(nil)
	},
}

// Build 按配置构建价格源
func Build(cfg *config.OracleConfig, logger *logrus.Logger) (interfaces.PriceOracle, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "rest"
	}
	builder, ok := oracleFactory[provider]
	if !ok {
		return nil, fmt.Errorf("未支持的价格源: %s", provider)
	}
	return builder(cfg, logger), nil
}
