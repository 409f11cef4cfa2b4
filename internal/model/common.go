package model

// Direction 预测方向枚举
type Direction string

const (
	DirectionUp   Direction = "up"   // 看涨
	DirectionDown Direction = "down" // 看跌
)

// Valid 是否为合法方向
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Duration 预测周期枚举（每档对应一种日历粒度的槽位）
type Duration string

const (
	DurationShort  Duration = "short"  // 短期：自然周（周一 00:00 UTC 起）
	DurationMedium Duration = "medium" // 中期：自然月
	DurationLong   Duration = "long"   // 长期：自然季度
)

// Valid 是否为合法周期
func (d Duration) Valid() bool {
	return d == DurationShort || d == DurationMedium || d == DurationLong
}

// AllDurations 所有周期档位（遍历用，顺序固定）
func AllDurations() []Duration {
	return []Duration{DurationShort, DurationMedium, DurationLong}
}

// PredictionStatus 预测状态：active 只能单向流转到 evaluated
// expired 不落库，读取时由 active && now > expires_at 推导
type PredictionStatus string

const (
	StatusActive    PredictionStatus = "active"
	StatusEvaluated PredictionStatus = "evaluated"
)

// PredictionResult 预测结果
type PredictionResult string

const (
	ResultPending   PredictionResult = "pending"
	ResultCorrect   PredictionResult = "correct"
	ResultIncorrect PredictionResult = "incorrect"
)

// BadgeScopeLifetime 徽章终身范围标识（周期范围用 "YYYY-MM"）
const BadgeScopeLifetime = "lifetime"
