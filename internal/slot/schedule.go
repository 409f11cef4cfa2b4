package slot

import (
	"fmt"
	"time"

	"ForecastLadder/internal/model"
)

// DecayStep 槽内衰减阶梯：已经过比例 < UpTo 时按 Percent 折算可得分
type DecayStep struct {
	UpTo    float64 // 槽内已经过时间比例上界（不含）
	Percent int     // 可得分百分比
}

// BucketSchedule 单个周期档位的积分与锁定配置
type BucketSchedule struct {
	Points     []int         // 按槽位序号循环取用的基础分表（长度即循环槽数）
	LockWindow time.Duration // 紧邻下一槽位起点之前的锁定窗口
	DecaySteps []DecayStep   // 槽内衰减阶梯，空则不衰减
}

// Schedule 周期→槽位→积分的静态配置表，带版本号，全局共用一份
type Schedule struct {
	Version int
	Buckets map[model.Duration]BucketSchedule
}

// Default 内置 v1 积分表
func Default() *Schedule {
	decay := []DecayStep{
		{UpTo: 0.25, Percent: 100},
		{UpTo: 0.50, Percent: 75},
		{UpTo: 0.75, Percent: 50},
	}
	return &Schedule{
		Version: 1,
		Buckets: map[model.Duration]BucketSchedule{
			model.DurationShort: {
				Points:     []int{10},
				LockWindow: 30 * time.Minute,
				DecaySteps: decay,
			},
			model.DurationMedium: {
				Points:     []int{40},
				LockWindow: 12 * time.Hour,
				DecaySteps: decay,
			},
			model.DurationLong: {
				Points:     []int{100},
				LockWindow: 24 * time.Hour,
				DecaySteps: decay,
			},
		},
	}
}

// Bucket 取指定档位配置
func (s *Schedule) Bucket(d model.Duration) (BucketSchedule, error) {
	b, ok := s.Buckets[d]
	if !ok || len(b.Points) == 0 {
		return BucketSchedule{}, fmt.Errorf("未配置的周期档位: %s", d)
	}
	return b, nil
}

// PointsForSlot 槽位的基础分与罚分。罚分恒为 max(1, 基础分/2)，与提交时机无关
func (s *Schedule) PointsForSlot(d model.Duration, slotNumber int64) (points, penalty int, err error) {
	b, err := s.Bucket(d)
	if err != nil {
		return 0, 0, err
	}
	points = b.Points[mod(slotNumber-1, int64(len(b.Points)))]
	penalty = points / 2
	if penalty < 1 {
		penalty = 1
	}
	return points, penalty, nil
}

// DecayPercent 已经过比例对应的可得分百分比。比例落在所有阶梯之外时取末档之后的 25%
func (b BucketSchedule) DecayPercent(elapsedFraction float64) int {
	if len(b.DecaySteps) == 0 {
		return 100
	}
	for _, step := range b.DecaySteps {
		if elapsedFraction < step.UpTo {
			return step.Percent
		}
	}
	return 25
}
