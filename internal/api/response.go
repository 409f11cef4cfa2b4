package api

import (
	"errors"
	"net/http"
	"time"

	"ForecastLadder/internal/domainerr"

	"github.com/gin-gonic/gin"
)

// timeNow 时间源（测试可替换）
var timeNow = time.Now

// writeDomainError 域错误到稳定HTTP错误码的唯一映射点
func writeDomainError(c *gin.Context, err error) {
	var (
		invalidSlot *domainerr.InvalidSlotError
		locked      *domainerr.SlotLockedError
		duplicate   *domainerr.DuplicateSubmissionError
		validation  *domainerr.ValidationError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
	case errors.As(err, &invalidSlot):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_slot", "error": err.Error()})
	case errors.As(err, &locked):
		c.JSON(http.StatusLocked, gin.H{
			"code":              "slot_locked",
			"error":             err.Error(),
			"remaining_seconds": int(locked.Remaining.Seconds()),
		})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{"code": "duplicate_submission", "error": err.Error()})
	case errors.Is(err, domainerr.ErrPredictionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": err.Error()})
	}
}
