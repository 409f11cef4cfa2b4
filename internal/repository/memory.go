package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/model"
)

// MemoryStore 全部仓储接口的内存实现，互斥锁保护。
// 供测试和无 Postgres 的嵌入场景使用，语义与 gorm 实现对齐：
// 唯一元组仲裁、条件状态流转、冲突即忽略的幂等写入
type MemoryStore struct {
	mu          sync.Mutex
	nextID      uint64
	predictions map[string]*model.Prediction // prediction_uuid -> 记录
	tuples      map[string]string            // 唯一元组 -> prediction_uuid
	stats       map[string]*model.UserStats
	users       map[string]*model.User
	badges      map[string]*model.Badge // user|type|scope -> 记录
	archives    map[string][]*model.LeaderboardArchive
}

// NewMemoryStore 创建内存仓储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		predictions: make(map[string]*model.Prediction),
		tuples:      make(map[string]string),
		stats:       make(map[string]*model.UserStats),
		users:       make(map[string]*model.User),
		badges:      make(map[string]*model.Badge),
		archives:    make(map[string][]*model.LeaderboardArchive),
	}
}

func submissionKey(p *model.Prediction) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", p.UserID, p.AssetID, p.Duration, p.SlotNumber, p.SlotStart.UTC().Unix())
}

func (m *MemoryStore) Create(ctx context.Context, p *model.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := submissionKey(p)
	if _, exists := m.tuples[key]; exists {
		return &domainerr.DuplicateSubmissionError{
			UserID:     p.UserID,
			AssetID:    p.AssetID,
			Duration:   p.Duration,
			SlotNumber: p.SlotNumber,
		}
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.predictions[p.PredictionUUID] = &cp
	m.tuples[key] = p.PredictionUUID
	return nil
}

func (m *MemoryStore) GetByUUID(ctx context.Context, predictionUUID string) (*model.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.predictions[predictionUUID]
	if !ok {
		return nil, domainerr.ErrPredictionNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Prediction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	all := m.userLedger(userID)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	lo := (page - 1) * pageSize
	if lo >= len(all) {
		return []*model.Prediction{}, total, nil
	}
	hi := lo + pageSize
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (m *MemoryStore) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*model.Prediction, error) {
	if limit <= 0 {
		limit = 500
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.Prediction
	for _, p := range m.predictions {
		if p.Status == model.StatusActive && !p.ExpiresAt.After(now.UTC()) {
			cp := *p
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ExpiresAt.Before(list[j].ExpiresAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MemoryStore) ListUserLedger(ctx context.Context, userID string) ([]*model.Prediction, error) {
	return m.userLedger(userID), nil
}

func (m *MemoryStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*model.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.Prediction
	for _, p := range m.predictions {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			cp := *p
			list = append(list, &cp)
		}
	}
	sortLedger(list)
	return list, nil
}

func (m *MemoryStore) MarkEvaluated(ctx context.Context, predictionUUID string, result model.PredictionResult,
	points int, priceEnd float64, evaluatedAt time.Time,
	recompute func(ledger []*model.Prediction) *model.UserStats) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.predictions[predictionUUID]
	if !ok {
		return false, domainerr.ErrPredictionNotFound
	}
	if p.Status != model.StatusActive {
		return false, nil
	}
	p.Status = model.StatusEvaluated
	p.Result = result
	p.PointsAwarded = points
	pe := priceEnd
	p.PriceEnd = &pe
	ts := evaluatedAt.UTC()
	p.EvaluatedAt = &ts

	ledger := m.userLedgerLocked(p.UserID)
	stats := recompute(ledger)
	stats.UpdatedAt = time.Now().UTC()
	m.stats[p.UserID] = stats
	return true, nil
}

func (m *MemoryStore) userLedger(userID string) []*model.Prediction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userLedgerLocked(userID)
}

func (m *MemoryStore) userLedgerLocked(userID string) []*model.Prediction {
	var list []*model.Prediction
	for _, p := range m.predictions {
		if p.UserID == userID {
			cp := *p
			list = append(list, &cp)
		}
	}
	sortLedger(list)
	return list
}

func sortLedger(list []*model.Prediction) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].SlotStart.Equal(list[j].SlotStart) {
			return list[i].SlotStart.Before(list[j].SlotStart)
		}
		if list[i].UserID != list[j].UserID {
			return list[i].UserID < list[j].UserID
		}
		return list[i].ID < list[j].ID
	})
}

func (m *MemoryStore) GetByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stats[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return &model.UserStats{UserID: userID}, nil
}

func (m *MemoryStore) Save(ctx context.Context, stats *model.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *stats
	cp.UpdatedAt = time.Now().UTC()
	m.stats[stats.UserID] = &cp
	return nil
}

func (m *MemoryStore) Recompute(ctx context.Context, userID string,
	recompute func(ledger []*model.Prediction) *model.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := recompute(m.userLedgerLocked(userID))
	stats.UpdatedAt = time.Now().UTC()
	m.stats[userID] = stats
	return nil
}

func (m *MemoryStore) EnsureUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		m.users[userID] = &model.User{UserID: userID, IsActive: true, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (m *MemoryStore) Award(ctx context.Context, badge *model.Badge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := badge.UserID + "|" + badge.BadgeType + "|" + badge.Scope
	if _, exists := m.badges[key]; exists {
		return false, nil
	}
	cp := *badge
	cp.CreatedAt = time.Now().UTC()
	m.badges[key] = &cp
	return true, nil
}

func (m *MemoryStore) ListBadgesByUser(ctx context.Context, userID string) ([]*model.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.Badge
	for _, b := range m.badges {
		if b.UserID == userID {
			cp := *b
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MemoryStore) HeldTypes(ctx context.Context, userID, scope string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := make(map[string]bool)
	for _, b := range m.badges {
		if b.UserID == userID && b.Scope == scope {
			held[b.BadgeType] = true
		}
	}
	return held, nil
}

func (m *MemoryStore) ArchiveExists(ctx context.Context, period string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.archives[period]) > 0, nil
}

func (m *MemoryStore) SaveArchive(ctx context.Context, rows []*model.LeaderboardArchive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		exists := false
		for _, have := range m.archives[row.Period] {
			if have.UserID == row.UserID {
				exists = true
				break
			}
		}
		if exists {
			continue // 快照不可变，冲突保留旧行
		}
		cp := *row
		cp.CreatedAt = time.Now().UTC()
		m.archives[row.Period] = append(m.archives[row.Period], &cp)
	}
	return nil
}

func (m *MemoryStore) ListArchive(ctx context.Context, period string) ([]*model.LeaderboardArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*model.LeaderboardArchive, 0, len(m.archives[period]))
	for _, row := range m.archives[period] {
		cp := *row
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Rank < list[j].Rank })
	return list, nil
}
