package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/model"

	"gorm.io/gorm"
)

// PredictionRepository 预测账本持久化。账本只追加：创建之后唯一允许的写操作
// 是 MarkEvaluated 的条件状态流转
type PredictionRepository interface {
	// Create 落库一条 active 预测。唯一约束冲突转换为 DuplicateSubmissionError，
	// 并发竞争提交由数据库唯一索引仲裁，败者拿到域错误而非脏数据
	Create(ctx context.Context, p *model.Prediction) error
	GetByUUID(ctx context.Context, predictionUUID string) (*model.Prediction, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Prediction, int64, error)
	// ListExpiredActive 找出已过期但仍 active 的记录，供评估扫描
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*model.Prediction, error)
	// ListUserLedger 用户全部预测，按槽位起点升序（统计重算的唯一数据源）
	ListUserLedger(ctx context.Context, userID string) ([]*model.Prediction, error)
	// ListCreatedBetween 创建时间落在 [from, to) 内的全部预测（榜单聚合用）
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*model.Prediction, error)
	// MarkEvaluated 原子条件流转：仅当记录仍为 active 时写入评估结果，并在同一事务内
	// 由账本重算并回写该用户统计。记录已评估时返回 applied=false 且无副作用（幂等重试安全）
	MarkEvaluated(ctx context.Context, predictionUUID string, result model.PredictionResult,
		points int, priceEnd float64, evaluatedAt time.Time,
		recompute func(ledger []*model.Prediction) *model.UserStats) (applied bool, err error)
}

type predictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository 创建预测仓储
func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db: db}
}

func (r *predictionRepository) Create(ctx context.Context, p *model.Prediction) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "uk_user_asset_slot") {
			return &domainerr.DuplicateSubmissionError{
				UserID:     p.UserID,
				AssetID:    p.AssetID,
				Duration:   p.Duration,
				SlotNumber: p.SlotNumber,
			}
		}
		return err
	}
	return nil
}

func (r *predictionRepository) GetByUUID(ctx context.Context, predictionUUID string) (*model.Prediction, error) {
	var p model.Prediction
	if err := r.db.WithContext(ctx).Where("prediction_uuid = ?", predictionUUID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.ErrPredictionNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *predictionRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Prediction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.Prediction{}).Where("user_id = ?", userID)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.Prediction
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *predictionRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*model.Prediction, error) {
	if limit <= 0 {
		limit = 500
	}
	var list []*model.Prediction
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.StatusActive, now.UTC()).
		Order("expires_at ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *predictionRepository) ListUserLedger(ctx context.Context, userID string) ([]*model.Prediction, error) {
	var list []*model.Prediction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("slot_start ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *predictionRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*model.Prediction, error) {
	var list []*model.Prediction
	if err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("user_id ASC, slot_start ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *predictionRepository) MarkEvaluated(ctx context.Context, predictionUUID string, result model.PredictionResult,
	points int, priceEnd float64, evaluatedAt time.Time,
	recompute func(ledger []*model.Prediction) *model.UserStats) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 条件更新：status 仍为 active 才生效，重复评估自然落空
		res := tx.Model(&model.Prediction{}).
			Where("prediction_uuid = ? AND status = ?", predictionUUID, model.StatusActive).
			Updates(map[string]interface{}{
				"status":         model.StatusEvaluated,
				"result":         result,
				"points_awarded": points,
				"price_end":      priceEnd,
				"evaluated_at":   evaluatedAt.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // 已被其他扫描评估，无操作
		}
		applied = true

		// 同一事务内由账本重算统计，流转与统计要么一起提交要么一起回滚
		var p model.Prediction
		if err := tx.Where("prediction_uuid = ?", predictionUUID).First(&p).Error; err != nil {
			return err
		}
		var ledger []*model.Prediction
		if err := tx.Where("user_id = ?", p.UserID).
			Order("slot_start ASC, id ASC").Find(&ledger).Error; err != nil {
			return err
		}
		return upsertStats(tx, recompute(ledger))
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
