package repository

import (
	"context"
	"errors"
	"time"

	"ForecastLadder/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsRepository 用户统计缓存读写。统计真值来自预测账本，这里只是缓存
type StatsRepository interface {
	// GetByUserID 不存在时返回全零统计，不报错
	GetByUserID(ctx context.Context, userID string) (*model.UserStats, error)
	Save(ctx context.Context, stats *model.UserStats) error
	// Recompute 加载用户账本、调用重算函数并回写缓存（提交后刷新计数用）
	Recompute(ctx context.Context, userID string,
		recompute func(ledger []*model.Prediction) *model.UserStats) error
}

// UserRepository 用户表维护
type UserRepository interface {
	// EnsureUser 首次出现的用户自动建档（幂等）
	EnsureUser(ctx context.Context, userID string) error
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository 创建统计仓储
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	var stats model.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.UserStats{UserID: userID}, nil
		}
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) Save(ctx context.Context, stats *model.UserStats) error {
	return upsertStats(r.db.WithContext(ctx), stats)
}

func (r *statsRepository) Recompute(ctx context.Context, userID string,
	recompute func(ledger []*model.Prediction) *model.UserStats) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ledger []*model.Prediction
		if err := tx.Where("user_id = ?", userID).
			Order("slot_start ASC, id ASC").Find(&ledger).Error; err != nil {
			return err
		}
		return upsertStats(tx, recompute(ledger))
	})
}

func (r *statsRepository) EnsureUser(ctx context.Context, userID string) error {
	u := &model.User{UserID: userID, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(u).Error
}

// upsertStats 按 user_id 冲突则更新全部统计列
func upsertStats(tx *gorm.DB, stats *model.UserStats) error {
	stats.UpdatedAt = time.Now().UTC()
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_predictions", "evaluated_predictions", "correct_predictions",
			"current_streak", "best_streak", "accuracy_percentage",
			"monthly_score", "monthly_period", "total_score", "updated_at",
		}),
	}).Create(stats).Error
}
