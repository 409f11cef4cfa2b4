package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ForecastLadder/internal/domainerr"
	"ForecastLadder/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestWriteDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		name   string
		err    error
		status int
	}{
		{"参数校验", &domainerr.ValidationError{Field: "user_id", Reason: "不能为空"}, http.StatusBadRequest},
		{"非法槽位", &domainerr.InvalidSlotError{Duration: model.DurationShort, SlotNumber: 1, Reason: "槽位已过去"}, http.StatusBadRequest},
		{"锁定窗口", &domainerr.SlotLockedError{Duration: model.DurationShort, Remaining: 15 * time.Minute}, http.StatusLocked},
		{"重复提交", &domainerr.DuplicateSubmissionError{UserID: "u1", AssetID: "BTC", Duration: model.DurationShort, SlotNumber: 1}, http.StatusConflict},
		{"记录不存在", domainerr.ErrPredictionNotFound, http.StatusNotFound},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeDomainError(c, tc.err)
			require.Equal(t, tc.status, w.Code)
		})
	}
}
