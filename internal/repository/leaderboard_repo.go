package repository

import (
	"context"

	"ForecastLadder/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRepository 榜单归档持久化。归档行写入后不可变，
// 已关账周期的所有读取只走快照，绝不重新聚合
type LeaderboardRepository interface {
	ArchiveExists(ctx context.Context, period string) (bool, error)
	// SaveArchive 一次事务写入整个周期快照，(period, user_id) 冲突时保留旧行
	SaveArchive(ctx context.Context, rows []*model.LeaderboardArchive) error
	ListArchive(ctx context.Context, period string) ([]*model.LeaderboardArchive, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

// NewLeaderboardRepository 创建榜单仓储
func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) ArchiveExists(ctx context.Context, period string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.LeaderboardArchive{}).
		Where("period = ?", period).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *leaderboardRepository) SaveArchive(ctx context.Context, rows []*model.LeaderboardArchive) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "period"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *leaderboardRepository) ListArchive(ctx context.Context, period string) ([]*model.LeaderboardArchive, error) {
	var list []*model.LeaderboardArchive
	if err := r.db.WithContext(ctx).Where("period = ?", period).
		Order("rank ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
