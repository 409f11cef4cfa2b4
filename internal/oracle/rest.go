package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ForecastLadder/internal/config"
	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/interfaces"
	"ForecastLadder/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// RestOracle 通用 REST 价格源适配器：GET {base_url}{price_path}?symbol=XXX，
// 期望响应 {"symbol": "...", "price": 123.45}
type RestOracle struct {
	baseURL    string
	pricePath  string
	authToken  string
	retryCount int
	client     *http.Client
	logger     *logrus.Logger
}

// NewRestOracle 创建 REST 价格源
func NewRestOracle(cfg *config.OracleConfig, logger *logrus.Logger) interfaces.PriceOracle {
	retry := cfg.RetryCount
	if retry < 0 {
		retry = 0
	}
	return &RestOracle{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		pricePath:  cfg.PricePath,
		authToken:  cfg.AuthToken,
		retryCount: retry,
		client:     httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

func (o *RestOracle) GetName() string { return "rest" }

// priceResponse 取价接口响应
type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// GetPrice 查询资产价格。失败重试 retryCount 次后返回 PriceUnavailableError，
// 由评估侧延迟到下一轮扫描，绝不回退到零价/旧价
func (o *RestOracle) GetPrice(ctx context.Context, assetSymbol string) (float64, error) {
	reqURL := fmt.Sprintf("%s%s?symbol=%s", o.baseURL, o.pricePath, url.QueryEscape(assetSymbol))

	var lastErr error
	for attempt := 0; attempt <= o.retryCount; attempt++ {
		price, err := o.fetchOnce(ctx, reqURL)
		if err == nil {
			return price, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	o.logger.WithError(lastErr).WithField("symbol", assetSymbol).Debug("价格源取价失败")
	return 0, &domainerr.PriceUnavailableError{AssetID: assetSymbol, Cause: lastErr}
}

func (o *RestOracle) fetchOnce(ctx context.Context, reqURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}
	if o.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+o.authToken)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("价格源返回状态码 %d", resp.StatusCode)
	}
	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("解析取价响应失败: %w", err)
	}
	if body.Price <= 0 {
		return 0, fmt.Errorf("价格源返回非正价格: %f", body.Price)
	}
	return body.Price, nil
}
