package service

import (
	"testing"
	"time"

	"ForecastLadder/internal/model"

	"github.com/stretchr/testify/require"
)

func evalPred(slotStart, createdAt time.Time, result model.PredictionResult, points int) *model.Prediction {
	at := slotStart.AddDate(0, 0, 7)
	return &model.Prediction{
		UserID:        "u1",
		Status:        model.StatusEvaluated,
		Result:        result,
		PointsAwarded: points,
		SlotStart:     slotStart,
		CreatedAt:     createdAt,
		EvaluatedAt:   &at,
	}
}

func TestDeriveUserStats(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := []*model.Prediction{
		evalPred(jan, jan, model.ResultCorrect, 10),
		evalPred(jan.AddDate(0, 0, 7), jan.AddDate(0, 0, 7), model.ResultCorrect, 7),
		evalPred(jan.AddDate(0, 0, 14), jan.AddDate(0, 0, 14), model.ResultIncorrect, -5),
		evalPred(jan.AddDate(0, 0, 21), jan.AddDate(0, 0, 21), model.ResultCorrect, 10),
		{UserID: "u1", Status: model.StatusActive, Result: model.ResultPending, SlotStart: jan.AddDate(0, 1, 0), CreatedAt: jan.AddDate(0, 1, 0)},
	}

	stats := DeriveUserStats("u1", ledger, "2024-01")
	require.Equal(t, int64(5), stats.TotalPredictions)
	require.Equal(t, int64(4), stats.EvaluatedPredictions)
	require.Equal(t, int64(3), stats.CorrectPredictions)
	require.Equal(t, 1, stats.CurrentStreak)
	require.Equal(t, 2, stats.BestStreak)
	require.Equal(t, 75.0, stats.AccuracyPercentage)
	require.Equal(t, int64(22), stats.TotalScore)
	require.Equal(t, int64(22), stats.MonthlyScore) // 全部提交于 2024-01
	require.Equal(t, "2024-01", stats.MonthlyPeriod)
}

func TestDeriveUserStats_MonthlyScoreFiltersByPeriod(t *testing.T) {
	jan := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	ledger := []*model.Prediction{
		evalPred(jan, jan, model.ResultCorrect, 10),
		evalPred(feb, feb, model.ResultCorrect, 10),
	}

	stats := DeriveUserStats("u1", ledger, "2024-02")
	require.Equal(t, int64(20), stats.TotalScore)
	require.Equal(t, int64(10), stats.MonthlyScore)
}

func TestDeriveUserStats_EmptyLedger(t *testing.T) {
	stats := DeriveUserStats("u1", nil, "2024-01")
	require.Equal(t, int64(0), stats.TotalPredictions)
	require.Equal(t, 0.0, stats.AccuracyPercentage)
}

func TestDeriveUserStats_AccuracyRounding(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := []*model.Prediction{
		evalPred(jan, jan, model.ResultCorrect, 10),
		evalPred(jan.AddDate(0, 0, 7), jan.AddDate(0, 0, 7), model.ResultIncorrect, -5),
		evalPred(jan.AddDate(0, 0, 14), jan.AddDate(0, 0, 14), model.ResultIncorrect, -5),
	}
	// 1/3 → 33.33（两位小数）
	stats := DeriveUserStats("u1", ledger, "2024-01")
	require.Equal(t, 33.33, stats.AccuracyPercentage)
}

func TestPeriodHelpers(t *testing.T) {
	require.Equal(t, "2024-03", PeriodLabel(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	require.Equal(t, "2023-12", PreviousPeriod(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2024-02", PreviousPeriod(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	from, to, err := PeriodBounds("2024-02")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = PeriodBounds("not-a-period")
	require.Error(t, err)
}
