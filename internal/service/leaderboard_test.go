package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ForecastLadder/internal/model"
	"ForecastLadder/internal/repository"

	"github.com/stretchr/testify/require"
)

var seedSeq int

// seedActive 直接向仓储种入一条 active 预测（提交于 createdAt）
func seedActive(t *testing.T, store *repository.MemoryStore, userID string, createdAt time.Time) *model.Prediction {
	t.Helper()
	seedSeq++
	p := &model.Prediction{
		PredictionUUID: fmt.Sprintf("seed-%d", seedSeq),
		UserID:         userID,
		AssetID:        fmt.Sprintf("AST%d", seedSeq), // 元组唯一性由资产区分
		Direction:      model.DirectionUp,
		Duration:       model.DurationShort,
		SlotNumber:     int64(seedSeq),
		SlotStart:      createdAt,
		SlotEnd:        createdAt.AddDate(0, 0, 7),
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.AddDate(0, 0, 7),
		Status:         model.StatusActive,
		Result:         model.ResultPending,
		PriceStart:     100,
	}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

// seedEvaluated 种入一条已评估预测：createdAt 提交、evaluatedAt 评估、计 points 分
func seedEvaluated(t *testing.T, store *repository.MemoryStore, userID string,
	createdAt, evaluatedAt time.Time, result model.PredictionResult, points int) {
	t.Helper()
	p := seedActive(t, store, userID, createdAt)
	applied, err := store.MarkEvaluated(context.Background(), p.PredictionUUID, result, points, 110, evaluatedAt,
		func(ledger []*model.Prediction) *model.UserStats {
			return DeriveUserStats(userID, ledger, PeriodLabel(createdAt))
		})
	require.NoError(t, err)
	require.True(t, applied)
}

func newLeaderboardFixture(t *testing.T, size int, now time.Time) (*LeaderboardService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	badges := NewBadgeService(store, store, testLogger())
	svc := NewLeaderboardService(store, store, badges, size, testLogger())
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestCurrent_StrictFourKeyOrder(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 100, now)

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	// alice 30 分 3 中；bob 30 分 2 中；carol 20 分 1 中 + 1 条未评估
	for i := 0; i < 3; i++ {
		seedEvaluated(t, store, "alice", base.Add(time.Duration(i)*time.Hour), now, model.ResultCorrect, 10)
	}
	seedEvaluated(t, store, "bob", base, now, model.ResultCorrect, 20)
	seedEvaluated(t, store, "bob", base.Add(time.Hour), now, model.ResultCorrect, 10)
	seedEvaluated(t, store, "carol", base, now, model.ResultCorrect, 20)
	seedActive(t, store, "carol", base.Add(2*time.Hour))

	entries, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, "alice", entries[0].UserID)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, int64(30), entries[0].TotalScore)
	require.Equal(t, int64(3), entries[0].CorrectPredictions)

	require.Equal(t, "bob", entries[1].UserID) // 同分，命中数少者居后
	require.Equal(t, 2, entries[1].Rank)

	require.Equal(t, "carol", entries[2].UserID)
	require.Equal(t, 3, entries[2].Rank)
	require.Equal(t, int64(2), entries[2].TotalPredictions) // 未评估的也计入提交数
	require.Equal(t, int64(20), entries[2].TotalScore)
}

func TestCurrent_LeaderTieExpandsRankOne(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 100, now)

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	seedEvaluated(t, store, "frank", base, base.Add(time.Hour), model.ResultCorrect, 10)
	seedEvaluated(t, store, "grace", base, base.Add(2*time.Hour), model.ResultCorrect, 10)
	seedEvaluated(t, store, "henry", base, base.Add(time.Hour), model.ResultCorrect, 5)

	entries, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// 榜首（总分, 命中数）并列：两人都是第 1 名，其后从 2 连续编号
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 1, entries[1].Rank)
	require.Equal(t, 2, entries[2].Rank)
	require.Equal(t, "henry", entries[2].UserID)
}

func TestCurrent_TiedLeadersSurviveTruncation(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 1, now) // Top-1 榜单

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	seedEvaluated(t, store, "frank", base, base.Add(time.Hour), model.ResultCorrect, 10)
	seedEvaluated(t, store, "grace", base, base.Add(2*time.Hour), model.ResultCorrect, 10)
	seedEvaluated(t, store, "henry", base, base.Add(time.Hour), model.ResultCorrect, 5)

	entries, err := svc.Current(context.Background())
	require.NoError(t, err)
	// 并列榜首必须完整保留，即便超出 Top-N
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 1, entries[1].Rank)
}

func TestClosePeriod_ReachedAtBreaksTie(t *testing.T) {
	now := time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 100, now)

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	// 同分同命中数：先到达终值者在前
	seedEvaluated(t, store, "dave", base, base.Add(10*time.Hour), model.ResultCorrect, 10)
	seedEvaluated(t, store, "erin", base, base.Add(11*time.Hour), model.ResultCorrect, 10)

	require.NoError(t, svc.ClosePeriod(context.Background(), "2024-01"))

	entries, err := svc.Archived(context.Background(), "2024-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// 归档榜名次严格 1..n，不做并列展开
	require.Equal(t, "dave", entries[0].UserID)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "erin", entries[1].UserID)
	require.Equal(t, 2, entries[1].Rank)
}

func TestClosePeriod_IdempotentAndImmutable(t *testing.T) {
	now := time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 100, now)

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	seedEvaluated(t, store, "dave", base, base.Add(time.Hour), model.ResultCorrect, 10)

	require.NoError(t, svc.ClosePeriod(context.Background(), "2024-01"))

	// 关账之后补进来的流水不改写快照
	seedEvaluated(t, store, "erin", base.Add(time.Hour), base.Add(2*time.Hour), model.ResultCorrect, 100)
	require.NoError(t, svc.ClosePeriod(context.Background(), "2024-01"))

	entries, err := svc.Archived(context.Background(), "2024-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dave", entries[0].UserID)
}

func TestClosePeriod_AwardsRankingBadges(t *testing.T) {
	now := time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 100, now)

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	seedEvaluated(t, store, "gold", base, base.Add(time.Hour), model.ResultCorrect, 30)
	seedEvaluated(t, store, "silver", base, base.Add(time.Hour), model.ResultCorrect, 20)
	seedEvaluated(t, store, "bronze", base, base.Add(time.Hour), model.ResultCorrect, 10)
	seedEvaluated(t, store, "fourth", base, base.Add(time.Hour), model.ResultCorrect, 5)

	require.NoError(t, svc.ClosePeriod(context.Background(), "2024-01"))

	badges, err := store.ListBadgesByUser(context.Background(), "gold")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	require.Equal(t, "monthly_first", badges[0].BadgeType)
	require.Equal(t, "2024-01", badges[0].Scope)

	badges, err = store.ListBadgesByUser(context.Background(), "fourth")
	require.NoError(t, err)
	require.Empty(t, badges)
}

func TestCloseDuePeriods(t *testing.T) {
	now := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	svc, store := newLeaderboardFixture(t, 100, now)

	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	seedEvaluated(t, store, "dave", base, base.Add(time.Hour), model.ResultCorrect, 10)

	require.NoError(t, svc.CloseDuePeriods(context.Background()))

	exists, err := store.ArchiveExists(context.Background(), "2024-01")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestArchived_InvalidPeriod(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, 100, time.Now())
	_, err := svc.Archived(context.Background(), "January-2024")
	require.Error(t, err)
}
