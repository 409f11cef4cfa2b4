package api

import (
	"net/http"
	"strconv"

	"ForecastLadder/internal/model"
	"ForecastLadder/internal/repository"
	"ForecastLadder/internal/scoring"
	"ForecastLadder/internal/service"
	"ForecastLadder/internal/slot"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PredictionHandler 预测提交与查询接口
type PredictionHandler struct {
	predictionService *service.PredictionService
	predictionRepo    repository.PredictionRepository
	sched             *slot.Schedule
	logger            *logrus.Logger
}

// NewPredictionHandler 创建 PredictionHandler
func NewPredictionHandler(
	predictionService *service.PredictionService,
	predictionRepo repository.PredictionRepository,
	sched *slot.Schedule,
	logger *logrus.Logger,
) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		predictionRepo:    predictionRepo,
		sched:             sched,
		logger:            logger,
	}
}

// SubmitPrediction 提交预测
// POST /api/predictions
func (h *PredictionHandler) SubmitPrediction(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
		return
	}

	p, err := h.predictionService.Submit(c.Request.Context(), &req)
	if err != nil {
		h.logger.WithError(err).Warn("SubmitPrediction failed")
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPredictions 用户预测列表
// GET /api/predictions?user_id=xxx&page=1&page_size=20
func (h *PredictionHandler) ListPredictions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": "user_id is required"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.predictionRepo.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListPredictions failed")
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
		"items":     list,
	})
}

// GetCurrentSlot 当前槽位与报价：界面展示的承诺分值与评估记账同源
// GET /api/slots/current?duration=short
func (h *PredictionHandler) GetCurrentSlot(c *gin.Context) {
	duration := model.Duration(c.DefaultQuery("duration", string(model.DurationShort)))
	now := timeNow()

	w, err := h.sched.CurrentSlot(duration, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
		return
	}
	quoted, penalty, err := scoring.Quote(h.sched, duration, w.Number, now, w.Start, w.End)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	remaining, err := h.sched.LockRemaining(duration, now)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"duration":          duration,
		"slot_number":       w.Number,
		"start":             w.Start,
		"end":               w.End,
		"points_if_correct": w.PointsIfCorrect,
		"penalty_if_wrong":  w.PenaltyIfWrong,
		"quoted_points":     quoted,
		"quoted_penalty":    penalty,
		"locked":            remaining > 0,
		"lock_remaining":    int(remaining.Seconds()),
	})
}
