package repository

import (
	"context"

	"ForecastLadder/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeRepository 徽章持久化。(user_id, badge_type, scope) 唯一索引保证颁发幂等
type BadgeRepository interface {
	// Award 颁发徽章，已存在时为无操作，返回是否实际新增
	Award(ctx context.Context, badge *model.Badge) (awarded bool, err error)
	ListBadgesByUser(ctx context.Context, userID string) ([]*model.Badge, error)
	// HeldTypes 用户在指定范围内已持有的徽章类型集合
	HeldTypes(ctx context.Context, userID, scope string) (map[string]bool, error)
}

type badgeRepository struct {
	db *gorm.DB
}

// NewBadgeRepository 创建徽章仓储
func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) Award(ctx context.Context, badge *model.Badge) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_type"}, {Name: "scope"}},
		DoNothing: true,
	}).Create(badge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *badgeRepository) ListBadgesByUser(ctx context.Context, userID string) ([]*model.Badge, error) {
	var list []*model.Badge
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *badgeRepository) HeldTypes(ctx context.Context, userID, scope string) (map[string]bool, error) {
	var types []string
	if err := r.db.WithContext(ctx).Model(&model.Badge{}).
		Where("user_id = ? AND scope = ?", userID, scope).
		Pluck("badge_type", &types).Error; err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(types))
	for _, t := range types {
		held[t] = true
	}
	return held, nil
}
