package service

import (
	"math"
	"time"

	"ForecastLadder/internal/model"
)

// DeriveUserStats 由预测账本确定性重算用户统计（事件溯源式派生，user_stats 只是缓存）。
// ledger 须按 slot_start 升序：连对按市场时间顺序计算，评估落库的先后不影响连对
func DeriveUserStats(userID string, ledger []*model.Prediction, currentPeriod string) *model.UserStats {
	stats := &model.UserStats{UserID: userID, MonthlyPeriod: currentPeriod}
	streak := 0
	for _, p := range ledger {
		stats.TotalPredictions++
		if p.Status != model.StatusEvaluated {
			continue
		}
		stats.EvaluatedPredictions++
		stats.TotalScore += int64(p.PointsAwarded)
		if PeriodLabel(p.CreatedAt) == currentPeriod {
			stats.MonthlyScore += int64(p.PointsAwarded)
		}
		if p.Result == model.ResultCorrect {
			stats.CorrectPredictions++
			streak++
			if streak > stats.BestStreak {
				stats.BestStreak = streak
			}
		} else {
			streak = 0
		}
	}
	stats.CurrentStreak = streak
	if stats.EvaluatedPredictions > 0 {
		acc := float64(stats.CorrectPredictions) / float64(stats.EvaluatedPredictions) * 100
		stats.AccuracyPercentage = math.Round(acc*100) / 100
	}
	return stats
}

// PeriodLabel 榜单周期标签（自然月，UTC）
func PeriodLabel(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodBounds 周期标签对应的 [from, to) 边界；标签非法时返回零值
func PeriodBounds(period string) (from, to time.Time, err error) {
	from, err = time.ParseInLocation("2006-01", period, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 1, 0), nil
}

// PreviousPeriod now 所在周期的上一个周期标签
func PreviousPeriod(now time.Time) string {
	t := now.UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return PeriodLabel(first.AddDate(0, 0, -1))
}
