package service

import (
	"context"
	"time"

	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/interfaces"
	"ForecastLadder/internal/model"
	"ForecastLadder/internal/repository"
	"ForecastLadder/internal/scoring"
	"ForecastLadder/internal/slot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PredictionService 预测状态机：submit 创建 active 记录，evaluate 单向流转到 evaluated
type PredictionService struct {
	predictions repository.PredictionRepository
	stats       repository.StatsRepository
	users       repository.UserRepository
	sched       *slot.Schedule
	sink        interfaces.EvaluationSink // 可为 nil，则不发出站事件
	logger      *logrus.Logger
	now         func() time.Time
}

// NewPredictionService 创建预测服务
func NewPredictionService(
	predictions repository.PredictionRepository,
	stats repository.StatsRepository,
	users repository.UserRepository,
	sched *slot.Schedule,
	sink interfaces.EvaluationSink,
	logger *logrus.Logger,
) *PredictionService {
	return &PredictionService{
		predictions: predictions,
		stats:       stats,
		users:       users,
		sched:       sched,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitRequest 提交预测请求
type SubmitRequest struct {
	UserID     string          `json:"user_id"`
	AssetID    string          `json:"asset_id"`
	Direction  model.Direction `json:"direction"`
	Duration   model.Duration  `json:"duration"`
	SlotNumber int64           `json:"slot_number"` // 0 表示当前槽位
	PriceStart float64         `json:"price_start"` // 提交时锁定的起始价
}

// Submit 提交一条方向预测。前置校验：槽位为当前或未来、不在锁定窗口、
// 起始价为正；同一唯一元组的重复提交由持久层唯一约束仲裁
func (s *PredictionService) Submit(ctx context.Context, req *SubmitRequest) (*model.Prediction, error) {
	if req.UserID == "" {
		return nil, &domainerr.ValidationError{Field: "user_id", Reason: "不能为空"}
	}
	if req.AssetID == "" {
		return nil, &domainerr.ValidationError{Field: "asset_id", Reason: "不能为空"}
	}
	if !req.Direction.Valid() {
		return nil, &domainerr.ValidationError{Field: "direction", Reason: "仅支持 up/down"}
	}
	if !req.Duration.Valid() {
		return nil, &domainerr.ValidationError{Field: "duration", Reason: "仅支持 short/medium/long"}
	}
	if req.PriceStart <= 0 {
		return nil, &domainerr.ValidationError{Field: "price_start", Reason: "必须为正数"}
	}

	now := s.now()
	cur, err := s.sched.CurrentSlot(req.Duration, now)
	if err != nil {
		return nil, err
	}

	target := cur
	if req.SlotNumber != 0 && req.SlotNumber != cur.Number {
		if req.SlotNumber < cur.Number {
			return nil, &domainerr.InvalidSlotError{
				Duration:   req.Duration,
				SlotNumber: req.SlotNumber,
				Reason:     "槽位已过去，不允许回填",
			}
		}
		target, err = s.sched.WindowForNumber(req.Duration, req.SlotNumber)
		if err != nil {
			return nil, err
		}
	}

	// 锁定窗口内拒绝该档位的一切新提交（含紧邻的下一槽位），防止临场信息优势
	remaining, err := s.sched.LockRemaining(req.Duration, now)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, &domainerr.SlotLockedError{Duration: req.Duration, Remaining: remaining}
	}

	if err := s.users.EnsureUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	p := &model.Prediction{
		PredictionUUID: uuid.NewString(),
		UserID:         req.UserID,
		AssetID:        req.AssetID,
		Direction:      req.Direction,
		Duration:       req.Duration,
		SlotNumber:     target.Number,
		SlotStart:      target.Start,
		SlotEnd:        target.End,
		CreatedAt:      now.UTC(),
		ExpiresAt:      target.End,
		Status:         model.StatusActive,
		Result:         model.ResultPending,
		PriceStart:     req.PriceStart,
	}
	if err := s.predictions.Create(ctx, p); err != nil {
		return nil, err
	}

	// 提交计数进缓存；失败不影响提交本身，真值始终在账本里
	period := PeriodLabel(now)
	if err := s.stats.Recompute(ctx, req.UserID, func(ledger []*model.Prediction) *model.UserStats {
		return DeriveUserStats(req.UserID, ledger, period)
	}); err != nil {
		s.logger.WithError(err).WithField("user_id", req.UserID).Warn("提交后刷新统计缓存失败")
	}

	s.logger.WithFields(logrus.Fields{
		"prediction_uuid": p.PredictionUUID,
		"user_id":         p.UserID,
		"asset_id":        p.AssetID,
		"duration":        p.Duration,
		"slot_number":     p.SlotNumber,
	}).Info("预测已提交")
	return p, nil
}

// Evaluate 按结束价评估一条预测。前置：记录存在且已过期。
// 记录已评估时按无操作成功返回（at-least-once 扫描下的幂等重试）；
// 状态流转与统计更新在同一事务内原子完成
func (s *PredictionService) Evaluate(ctx context.Context, predictionUUID string, priceEnd float64) (*model.Prediction, error) {
	p, err := s.predictions.GetByUUID(ctx, predictionUUID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.StatusEvaluated {
		return p, nil // 重复评估：无操作成功
	}

	now := s.now()
	if !p.IsExpired(now) {
		return nil, domainerr.ErrNotYetExpired
	}
	if priceEnd <= 0 {
		return nil, &domainerr.PriceUnavailableError{AssetID: p.AssetID}
	}

	// 平盘（priceEnd == priceStart）判 incorrect：方向没有兑现
	result := model.ResultIncorrect
	if (p.Direction == model.DirectionUp && priceEnd > p.PriceStart) ||
		(p.Direction == model.DirectionDown && priceEnd < p.PriceStart) {
		result = model.ResultCorrect
	}

	points, err := scoring.Score(s.sched, p.Duration, p.SlotNumber, p.CreatedAt, p.SlotStart, p.SlotEnd, result)
	if err != nil {
		return nil, err
	}

	period := PeriodLabel(now)
	applied, err := s.predictions.MarkEvaluated(ctx, predictionUUID, result, points, priceEnd, now,
		func(ledger []*model.Prediction) *model.UserStats {
			return DeriveUserStats(p.UserID, ledger, period)
		})
	if err != nil {
		return nil, err
	}

	updated, err := s.predictions.GetByUUID(ctx, predictionUUID)
	if err != nil {
		return nil, err
	}
	if applied {
		s.logger.WithFields(logrus.Fields{
			"prediction_uuid": predictionUUID,
			"user_id":         p.UserID,
			"result":          result,
			"points":          points,
		}).Info("预测已评估")
		if s.sink != nil {
			s.sink.OnPredictionEvaluated(ctx, &interfaces.EvaluationEvent{
				PredictionUUID: predictionUUID,
				UserID:         p.UserID,
				Result:         updated.Result,
				PointsAwarded:  updated.PointsAwarded,
			})
		}
	}
	return updated, nil
}
