package service

import (
	"context"

	"ForecastLadder/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// LogSink 默认的评估事件消费方：仅记录日志。外围通知系统可替换为自己的实现
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink 创建日志事件消费方
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) OnPredictionEvaluated(ctx context.Context, ev *interfaces.EvaluationEvent) {
	s.logger.WithFields(logrus.Fields{
		"prediction_uuid": ev.PredictionUUID,
		"user_id":         ev.UserID,
		"result":          ev.Result,
		"points":          ev.PointsAwarded,
	}).Info("预测评估事件")
}
