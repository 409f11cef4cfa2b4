package api

import (
	"net/http"

	"ForecastLadder/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LeaderboardHandler 榜单查询接口
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
	logger             *logrus.Logger
}

// NewLeaderboardHandler 创建 LeaderboardHandler
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService, logger *logrus.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		logger:             logger,
	}
}

// GetCurrent 实时周期榜单
// GET /api/leaderboard/current
func (h *LeaderboardHandler) GetCurrent(c *gin.Context) {
	entries, err := h.leaderboardService.Current(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("GetCurrent leaderboard failed")
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetArchived 已关账周期榜单（只读快照）
// GET /api/leaderboard/:period （period 形如 2026-08）
func (h *LeaderboardHandler) GetArchived(c *gin.Context) {
	period := c.Param("period")
	entries, err := h.leaderboardService.Archived(c.Request.Context(), period)
	if err != nil {
		h.logger.WithError(err).WithField("period", period).Error("GetArchived leaderboard failed")
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "entries": entries})
}
