// Package slot 把墙钟时间映射到规范槽位边界。
// 所有边界计算固定使用 UTC，与调用方所在时区无关，保证同一槽位内
// 竞争提交的所有用户拿到完全一致的边界。边界为左闭右开 [start, end)。
package slot

import (
	"time"

	"ForecastLadder/internal/model"
)

// anchor 槽位序号锚点：2024-01-01 00:00 UTC（恰为周一），序号 1 的槽位包含该时刻
var anchor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Window 规范槽位窗口（计算值，不落库）
type Window struct {
	Duration        model.Duration
	Number          int64
	Start           time.Time
	End             time.Time
	PointsIfCorrect int
	PenaltyIfWrong  int
}

// Contains 判断时刻是否落在窗口内（左闭右开）
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CurrentSlot 包含 now 的规范槽位。对任意合法时刻都有定义，远过去/远未来也不报错；
// 仅在档位未配置时返回错误
func (s *Schedule) CurrentSlot(d model.Duration, now time.Time) (Window, error) {
	if _, err := s.Bucket(d); err != nil {
		return Window{}, err
	}
	t := now.UTC()
	var start, end time.Time
	switch d {
	case model.DurationShort:
		start = weekStart(t)
		end = start.AddDate(0, 0, 7)
	case model.DurationMedium:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case model.DurationLong:
		start = quarterStart(t)
		end = start.AddDate(0, 3, 0)
	}
	n := s.slotNumber(d, start)
	points, penalty, err := s.PointsForSlot(d, n)
	if err != nil {
		return Window{}, err
	}
	return Window{Duration: d, Number: n, Start: start, End: end, PointsIfCorrect: points, PenaltyIfWrong: penalty}, nil
}

// WindowForNumber 由槽位序号反推窗口（用于提交未来槽位）
func (s *Schedule) WindowForNumber(d model.Duration, n int64) (Window, error) {
	if _, err := s.Bucket(d); err != nil {
		return Window{}, err
	}
	var start, end time.Time
	switch d {
	case model.DurationShort:
		start = anchor.AddDate(0, 0, int(n-1)*7)
		end = start.AddDate(0, 0, 7)
	case model.DurationMedium:
		start = anchor.AddDate(0, int(n-1), 0)
		end = start.AddDate(0, 1, 0)
	case model.DurationLong:
		start = anchor.AddDate(0, int(n-1)*3, 0)
		end = start.AddDate(0, 3, 0)
	}
	points, penalty, err := s.PointsForSlot(d, n)
	if err != nil {
		return Window{}, err
	}
	return Window{Duration: d, Number: n, Start: start, End: end, PointsIfCorrect: points, PenaltyIfWrong: penalty}, nil
}

// IsLocked 是否处于锁定窗口：当前槽位的最后 LockWindow 时段，
// 即紧邻下一槽位起点之前的区间，期间拒绝新提交防止临场信息优势
func (s *Schedule) IsLocked(d model.Duration, now time.Time) (bool, error) {
	remaining, err := s.LockRemaining(d, now)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// LockRemaining 锁定剩余时长，未锁定时返回 0
func (s *Schedule) LockRemaining(d model.Duration, now time.Time) (time.Duration, error) {
	b, err := s.Bucket(d)
	if err != nil {
		return 0, err
	}
	w, err := s.CurrentSlot(d, now)
	if err != nil {
		return 0, err
	}
	untilEnd := w.End.Sub(now.UTC())
	if untilEnd <= b.LockWindow {
		return untilEnd, nil
	}
	return 0, nil
}

// slotNumber 槽位起点对应的序号（自锚点起，锚点所在槽位为 1，锚点之前为 0 及负数）
func (s *Schedule) slotNumber(d model.Duration, start time.Time) int64 {
	switch d {
	case model.DurationShort:
		days := int64(start.Sub(anchor).Hours() / 24)
		return floorDiv(days, 7) + 1
	case model.DurationMedium:
		return int64(start.Year()-anchor.Year())*12 + int64(start.Month()-anchor.Month()) + 1
	case model.DurationLong:
		months := int64(start.Year()-anchor.Year())*12 + int64(start.Month()-anchor.Month())
		return floorDiv(months, 3) + 1
	}
	return 0
}

// weekStart 所在自然周起点（周一 00:00 UTC）
func weekStart(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(midnight.Weekday()) + 6) % 7 // Monday=0
	return midnight.AddDate(0, 0, -offset)
}

// quarterStart 所在自然季度起点
func quarterStart(t time.Time) time.Time {
	qm := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), qm, 1, 0, 0, 0, 0, time.UTC)
}

// floorDiv 向负无穷取整的整除（锚点之前的槽位序号需要）
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// mod 非负取模
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
