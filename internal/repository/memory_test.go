package repository

import (
	"context"
	"testing"
	"time"

	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/model"

	"github.com/stretchr/testify/require"
)

func newPrediction(uuid, userID string, slotStart time.Time) *model.Prediction {
	return &model.Prediction{
		PredictionUUID: uuid,
		UserID:         userID,
		AssetID:        "BTC",
		Direction:      model.DirectionUp,
		Duration:       model.DurationShort,
		SlotNumber:     1,
		SlotStart:      slotStart,
		SlotEnd:        slotStart.AddDate(0, 0, 7),
		CreatedAt:      slotStart,
		ExpiresAt:      slotStart.AddDate(0, 0, 7),
		Status:         model.StatusActive,
		Result:         model.ResultPending,
		PriceStart:     100,
	}
}

func noopStats(userID string) func(ledger []*model.Prediction) *model.UserStats {
	return func(ledger []*model.Prediction) *model.UserStats {
		return &model.UserStats{UserID: userID, TotalPredictions: int64(len(ledger))}
	}
}

func TestMemoryStore_DuplicateTuple(t *testing.T) {
	store := NewMemoryStore()
	slotStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(context.Background(), newPrediction("p1", "u1", slotStart)))

	err := store.Create(context.Background(), newPrediction("p2", "u1", slotStart))
	var duplicate *domainerr.DuplicateSubmissionError
	require.ErrorAs(t, err, &duplicate)

	// 不同用户同元组其余字段不冲突
	require.NoError(t, store.Create(context.Background(), newPrediction("p3", "u2", slotStart)))
}

func TestMemoryStore_MarkEvaluatedConditional(t *testing.T) {
	store := NewMemoryStore()
	slotStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(context.Background(), newPrediction("p1", "u1", slotStart)))

	evalAt := slotStart.AddDate(0, 0, 7)
	applied, err := store.MarkEvaluated(context.Background(), "p1", model.ResultCorrect, 10, 110, evalAt, noopStats("u1"))
	require.NoError(t, err)
	require.True(t, applied)

	// 已评估的记录：条件流转不命中，无操作
	applied, err = store.MarkEvaluated(context.Background(), "p1", model.ResultIncorrect, -5, 90, evalAt, noopStats("u1"))
	require.NoError(t, err)
	require.False(t, applied)

	p, err := store.GetByUUID(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, model.ResultCorrect, p.Result)
	require.Equal(t, 10, p.PointsAwarded)

	_, err = store.MarkEvaluated(context.Background(), "missing", model.ResultCorrect, 10, 110, evalAt, noopStats("u1"))
	require.ErrorIs(t, err, domainerr.ErrPredictionNotFound)
}

func TestMemoryStore_ListByUserPaging(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p := newPrediction(string(rune('a'+i)), "u1", base.AddDate(0, 0, 7*i))
		p.SlotNumber = int64(i + 1)
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Create(context.Background(), p))
	}

	list, total, err := store.ListByUser(context.Background(), "u1", 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, list, 2)
	// 最新提交在前
	require.Equal(t, "e", list[0].PredictionUUID)

	list, _, err = store.ListByUser(context.Background(), "u1", 3, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, _, err = store.ListByUser(context.Background(), "u1", 9, 2)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMemoryStore_ArchiveImmutable(t *testing.T) {
	store := NewMemoryStore()
	rows := []*model.LeaderboardArchive{
		{Period: "2024-01", UserID: "u1", Rank: 1, TotalScore: 30},
	}
	require.NoError(t, store.SaveArchive(context.Background(), rows))

	// 同周期同用户再写入被忽略，旧行保留
	require.NoError(t, store.SaveArchive(context.Background(), []*model.LeaderboardArchive{
		{Period: "2024-01", UserID: "u1", Rank: 9, TotalScore: 999},
	}))

	list, err := store.ListArchive(context.Background(), "2024-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].Rank)
	require.Equal(t, int64(30), list[0].TotalScore)
}

func TestMemoryStore_EnsureUserIdempotent(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.EnsureUser(context.Background(), "u1"))
	require.NoError(t, store.EnsureUser(context.Background(), "u1"))
}
