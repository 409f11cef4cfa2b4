package oracle

import (
	"context"
	"sync"

	"ForecastLadder/internal/domainerr"
)

// StaticOracle 内存价格源：本地开发与测试用，未配置价格的资产返回不可用
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticOracle 创建内存价格源
func NewStaticOracle(prices map[string]float64) *StaticOracle {
	if prices == nil {
		prices = make(map[string]float64)
	}
	return &StaticOracle{prices: prices}
}

func (o *StaticOracle) GetName() string { return "static" }

func (o *StaticOracle) GetPrice(ctx context.Context, assetSymbol string) (float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[assetSymbol]
	if !ok || price <= 0 {
		return 0, &domainerr.PriceUnavailableError{AssetID: assetSymbol}
	}
	return price, nil
}

// SetPrice 更新价格
func (o *StaticOracle) SetPrice(assetSymbol string, price float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[assetSymbol] = price
}

// Remove 移除价格（后续取价返回不可用）
func (o *StaticOracle) Remove(assetSymbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, assetSymbol)
}
