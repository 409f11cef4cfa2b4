package service

import (
	"context"
	"errors"
	"time"

	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/interfaces"
	"ForecastLadder/internal/repository"

	"github.com/sirupsen/logrus"
)

// EvaluatorService 后台评估扫描：按固定间隔找出已过期的 active 预测，
// 取价、评估、触发徽章重评，并顺带做周期关账自检。
// 扫描允许重叠执行：evaluate 的条件流转保证 at-least-once 下安全
type EvaluatorService struct {
	predictions *PredictionService
	repo        repository.PredictionRepository
	oracle      interfaces.PriceOracle
	badges      *BadgeService
	leaderboard *LeaderboardService
	logger      *logrus.Logger
	interval    time.Duration
	batchLimit  int
	now         func() time.Time
}

// NewEvaluatorService 创建评估服务
func NewEvaluatorService(
	predictions *PredictionService,
	repo repository.PredictionRepository,
	oracle interfaces.PriceOracle,
	badges *BadgeService,
	leaderboard *LeaderboardService,
	interval time.Duration,
	batchLimit int,
	logger *logrus.Logger,
) *EvaluatorService {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchLimit <= 0 {
		batchLimit = 500
	}
	return &EvaluatorService{
		predictions: predictions,
		repo:        repo,
		oracle:      oracle,
		badges:      badges,
		leaderboard: leaderboard,
		logger:      logger,
		interval:    interval,
		batchLimit:  batchLimit,
		now:         time.Now,
	}
}

// Run 执行一轮扫描。价格不可用的预测保持 active，下一轮自动重试；
// 同一资产的价格每轮只向价格源查询一次
func (s *EvaluatorService) Run(ctx context.Context) error {
	now := s.now()
	expired, err := s.repo.ListExpiredActive(ctx, now, s.batchLimit)
	if err != nil {
		return err
	}

	prices := make(map[string]float64)
	failed := make(map[string]bool)
	evaluated, deferred := 0, 0

	for _, p := range expired {
		price, ok := s.assetPrice(ctx, p.AssetID, prices, failed)
		if !ok {
			deferred++
			continue
		}
		if _, err := s.predictions.Evaluate(ctx, p.PredictionUUID, price); err != nil {
			var unavailable *domainerr.PriceUnavailableError
			if errors.As(err, &unavailable) || errors.Is(err, domainerr.ErrNotYetExpired) {
				deferred++
				continue
			}
			// 持久层失败：本轮跳过，状态未变，下一轮扫描自然重试
			s.logger.WithError(err).WithField("prediction_uuid", p.PredictionUUID).Warn("评估失败")
			deferred++
			continue
		}
		evaluated++
		if _, err := s.badges.EvaluateUser(ctx, p.UserID); err != nil {
			s.logger.WithError(err).WithField("user_id", p.UserID).Warn("徽章重评失败")
		}
	}

	if len(expired) > 0 {
		s.logger.Infof("评估扫描完成：扫描 %d 条，评估 %d 条，延迟 %d 条", len(expired), evaluated, deferred)
	}

	if err := s.leaderboard.CloseDuePeriods(ctx); err != nil {
		s.logger.WithError(err).Warn("周期关账自检失败")
	}
	return nil
}

// assetPrice 本轮内按资产缓存价格；取价失败的资产整轮跳过
func (s *EvaluatorService) assetPrice(ctx context.Context, assetID string, prices map[string]float64, failed map[string]bool) (float64, bool) {
	if price, ok := prices[assetID]; ok {
		return price, true
	}
	if failed[assetID] {
		return 0, false
	}
	price, err := s.oracle.GetPrice(ctx, assetID)
	if err != nil || price <= 0 {
		if err != nil {
			s.logger.WithError(err).WithField("asset_id", assetID).Debug("取价失败，评估延迟到下一轮")
		}
		failed[assetID] = true
		return 0, false
	}
	prices[assetID] = price
	return price, true
}

// Start 启动后台循环，ctx 取消即退出
func (s *EvaluatorService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.Infof("评估循环已启动，间隔 %s", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("评估循环已停止")
				return
			case <-ticker.C:
				if err := s.Run(ctx); err != nil {
					s.logger.WithError(err).Warn("评估扫描出错")
				}
			}
		}
	}()
}
