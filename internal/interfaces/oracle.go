package interfaces

import "context"

// PriceOracle 价格源能力接口，由外围系统注入具体实现。
// 价格不可用时返回 domainerr.PriceUnavailableError，评估侧据此延迟重试，
// 绝不允许用过期/零价静默计分
type PriceOracle interface {
	GetName() string // 价格源名称
	// GetPrice 查询资产当前价格
	GetPrice(ctx context.Context, assetSymbol string) (float64, error)
}
