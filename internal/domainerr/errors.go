// Package domainerr 定义核心域的类型化错误。
// 所有可预期的业务失败都用具体错误类型表达，API 层据此映射稳定的错误码，
// 禁止用裸字符串区分错误。
package domainerr

import (
	"errors"
	"fmt"
	"time"

	"ForecastLadder/internal/model"
)

// ErrPredictionNotFound 预测不存在
var ErrPredictionNotFound = errors.New("prediction not found")

// ErrNotYetExpired 槽位尚未关闭，不能评估
var ErrNotYetExpired = errors.New("prediction slot has not closed yet")

// InvalidSlotError 槽位序号非法（超出范围或属于过去的槽位），拒绝且不重试
type InvalidSlotError struct {
	Duration   model.Duration
	SlotNumber int64
	Reason     string
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("invalid slot %d for duration %s: %s", e.SlotNumber, e.Duration, e.Reason)
}

// SlotLockedError 槽位处于锁定窗口内，拒绝并告知剩余锁定时间
type SlotLockedError struct {
	Duration  model.Duration
	Remaining time.Duration
}

func (e *SlotLockedError) Error() string {
	return fmt.Sprintf("slot locked for duration %s, unlocks in %s", e.Duration, e.Remaining)
}

// DuplicateSubmissionError 同一唯一元组已存在预测，由持久层唯一约束仲裁
type DuplicateSubmissionError struct {
	UserID     string
	AssetID    string
	Duration   model.Duration
	SlotNumber int64
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("duplicate submission: user %s already predicted %s/%s slot %d",
		e.UserID, e.AssetID, e.Duration, e.SlotNumber)
}

// PriceUnavailableError 价格不可用，评估延迟到下一轮扫描，不是致命错误
type PriceUnavailableError struct {
	AssetID string
	Cause   error
}

func (e *PriceUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("price unavailable for %s: %v", e.AssetID, e.Cause)
	}
	return fmt.Sprintf("price unavailable for %s", e.AssetID)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Cause }

// ValidationError 入参校验失败（方向、价格等）
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
