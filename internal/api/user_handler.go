package api

import (
	"net/http"

	"ForecastLadder/internal/repository"
	"ForecastLadder/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler 用户统计与徽章查询接口
type UserHandler struct {
	statsRepo    repository.StatsRepository
	badgeService *service.BadgeService
	logger       *logrus.Logger
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(statsRepo repository.StatsRepository, badgeService *service.BadgeService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		statsRepo:    statsRepo,
		badgeService: badgeService,
		logger:       logger,
	}
}

// GetStats 用户统计
// GET /api/users/:user_id/stats
func (h *UserHandler) GetStats(c *gin.Context) {
	userID := c.Param("user_id")
	stats, err := h.statsRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("GetStats failed")
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetBadges 用户徽章列表
// GET /api/users/:user_id/badges
func (h *UserHandler) GetBadges(c *gin.Context) {
	userID := c.Param("user_id")
	badges, err := h.badgeService.ListUserBadges(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("GetBadges failed")
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}
