// Package scoring 纯积分函数：由（周期、槽位、提交时刻、结果）算出积分变动。
// 对外报价 Quote 与评估记账 Score 用同一套计算，保证界面承诺的分值与账本一致。
package scoring

import (
	"time"

	"ForecastLadder/internal/model"
	"ForecastLadder/internal/slot"
)

// Quote 提交时刻对应的（可得分, 罚分）。
// 可得分按槽内已经过比例阶梯衰减（越早提交越高，奖励先见），下限 1 分；
// 罚分固定为 max(1, 基础分/2)，不随提交时机变化，避免在亏损侧重复计时间激励
func Quote(sched *slot.Schedule, d model.Duration, slotNumber int64, submittedAt, slotStart, slotEnd time.Time) (points, penalty int, err error) {
	base, penalty, err := sched.PointsForSlot(d, slotNumber)
	if err != nil {
		return 0, 0, err
	}
	b, err := sched.Bucket(d)
	if err != nil {
		return 0, 0, err
	}
	points = base * b.DecayPercent(elapsedFraction(submittedAt, slotStart, slotEnd)) / 100
	if points < 1 {
		points = 1
	}
	return points, penalty, nil
}

// Score 评估结果对应的积分变动：命中为正的报价分，未命中为负的固定罚分
func Score(sched *slot.Schedule, d model.Duration, slotNumber int64, submittedAt, slotStart, slotEnd time.Time, result model.PredictionResult) (int, error) {
	points, penalty, err := Quote(sched, d, slotNumber, submittedAt, slotStart, slotEnd)
	if err != nil {
		return 0, err
	}
	if result == model.ResultCorrect {
		return points, nil
	}
	return -penalty, nil
}

// elapsedFraction 提交时刻在槽内的已经过比例，截断到 [0, 1)。
// 提前提交（未来槽位）按 0 计，拿满基础分
func elapsedFraction(submittedAt, slotStart, slotEnd time.Time) float64 {
	length := slotEnd.Sub(slotStart)
	if length <= 0 {
		return 0
	}
	elapsed := submittedAt.Sub(slotStart)
	if elapsed <= 0 {
		return 0
	}
	f := float64(elapsed) / float64(length)
	if f >= 1 {
		f = 0.999999
	}
	return f
}
