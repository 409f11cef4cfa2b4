package interfaces

import (
	"context"

	"ForecastLadder/internal/model"
)

// EvaluationEvent 单条预测评估完成的出站事件
type EvaluationEvent struct {
	PredictionUUID string
	UserID         string
	Result         model.PredictionResult
	PointsAwarded  int
}

// EvaluationSink 评估完成事件的消费方（通知、徽章触发等）。
// 投递语义为 at-least-once，消费方必须幂等
type EvaluationSink interface {
	OnPredictionEvaluated(ctx context.Context, ev *EvaluationEvent)
}
