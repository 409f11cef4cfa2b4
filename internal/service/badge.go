package service

import (
	"context"
	"encoding/json"

	"ForecastLadder/internal/model"
	"ForecastLadder/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// BadgeRule 徽章规则：(类型, 名称, 描述, 判定谓词)。规则集是数据，
// 新增规则只需追加列表项，评估循环不变
type BadgeRule struct {
	Type        string
	Name        string
	Description string
	Predicate   func(stats *model.UserStats) bool
}

// LifetimeRules 终身范围规则集：里程碑、连对阈值、命中率（要求最小样本量）、累计量
func LifetimeRules() []BadgeRule {
	return []BadgeRule{
		{
			Type: "first_correct", Name: "首胜", Description: "第一次预测命中",
			Predicate: func(s *model.UserStats) bool { return s.CorrectPredictions >= 1 },
		},
		{
			Type: "streak_3", Name: "三连对", Description: "连续命中 3 次",
			Predicate: func(s *model.UserStats) bool { return s.BestStreak >= 3 },
		},
		{
			Type: "streak_5", Name: "五连对", Description: "连续命中 5 次",
			Predicate: func(s *model.UserStats) bool { return s.BestStreak >= 5 },
		},
		{
			Type: "streak_10", Name: "十连对", Description: "连续命中 10 次",
			Predicate: func(s *model.UserStats) bool { return s.BestStreak >= 10 },
		},
		{
			Type: "accuracy_70", Name: "稳准70", Description: "至少 20 次已评估预测且命中率 ≥ 70%",
			Predicate: accuracyRule(70),
		},
		{
			Type: "accuracy_80", Name: "稳准80", Description: "至少 20 次已评估预测且命中率 ≥ 80%",
			Predicate: accuracyRule(80),
		},
		{
			Type: "accuracy_90", Name: "稳准90", Description: "至少 20 次已评估预测且命中率 ≥ 90%",
			Predicate: accuracyRule(90),
		},
		{
			Type: "volume_50", Name: "常客", Description: "累计提交 50 次预测",
			Predicate: func(s *model.UserStats) bool { return s.TotalPredictions >= 50 },
		},
		{
			Type: "volume_100", Name: "百场老手", Description: "累计提交 100 次预测",
			Predicate: func(s *model.UserStats) bool { return s.TotalPredictions >= 100 },
		},
		{
			Type: "volume_250", Name: "铁杆玩家", Description: "累计提交 250 次预测",
			Predicate: func(s *model.UserStats) bool { return s.TotalPredictions >= 250 },
		},
	}
}

// accuracyMinSample 命中率徽章的最小样本量，样本不足不颁发
const accuracyMinSample = 20

func accuracyRule(minPct float64) func(*model.UserStats) bool {
	return func(s *model.UserStats) bool {
		return s.EvaluatedPredictions >= accuracyMinSample && s.AccuracyPercentage >= minPct
	}
}

// rankingBadgeTypes 周期关账时按名次颁发的徽章，下标即名次-1
var rankingBadgeTypes = []string{"monthly_first", "monthly_second", "monthly_third"}

// BadgeService 徽章规则引擎：对用户统计快照逐条测试未持有的规则，
// 命中即颁发；唯一索引保证重复评估/重试下恰好颁发一次
type BadgeService struct {
	badges repository.BadgeRepository
	stats  repository.StatsRepository
	rules  []BadgeRule
	logger *logrus.Logger
}

// NewBadgeService 创建徽章服务
func NewBadgeService(badges repository.BadgeRepository, stats repository.StatsRepository, logger *logrus.Logger) *BadgeService {
	return &BadgeService{
		badges: badges,
		stats:  stats,
		rules:  LifetimeRules(),
		logger: logger,
	}
}

// EvaluateUser 每次评估成功后对该用户重跑终身规则集，返回新颁发数量。
// 统计不变时重跑结果为零（幂等）
func (s *BadgeService) EvaluateUser(ctx context.Context, userID string) (int, error) {
	stats, err := s.stats.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	held, err := s.badges.HeldTypes(ctx, userID, model.BadgeScopeLifetime)
	if err != nil {
		return 0, err
	}
	awarded := 0
	for _, rule := range s.rules {
		if held[rule.Type] || !rule.Predicate(stats) {
			continue
		}
		meta, _ := json.Marshal(map[string]interface{}{
			"name":        rule.Name,
			"description": rule.Description,
		})
		ok, err := s.badges.Award(ctx, &model.Badge{
			BadgeUUID: uuid.NewString(),
			UserID:    userID,
			BadgeType: rule.Type,
			Scope:     model.BadgeScopeLifetime,
			Metadata:  datatypes.JSON(meta),
		})
		if err != nil {
			return awarded, err
		}
		if ok {
			awarded++
			s.logger.WithFields(logrus.Fields{
				"user_id":    userID,
				"badge_type": rule.Type,
			}).Info("颁发徽章")
		}
	}
	return awarded, nil
}

// AwardRankingBadges 周期关账后给终榜前几名颁发名次徽章，范围为该周期，
// 同样受幂等规则保护
func (s *BadgeService) AwardRankingBadges(ctx context.Context, period string, entries []*LeaderboardEntry) error {
	for _, e := range entries {
		if e.Rank < 1 || e.Rank > len(rankingBadgeTypes) {
			continue
		}
		meta, _ := json.Marshal(map[string]interface{}{
			"rank":  e.Rank,
			"score": e.TotalScore,
		})
		ok, err := s.badges.Award(ctx, &model.Badge{
			BadgeUUID: uuid.NewString(),
			UserID:    e.UserID,
			BadgeType: rankingBadgeTypes[e.Rank-1],
			Scope:     period,
			Metadata:  datatypes.JSON(meta),
		})
		if err != nil {
			return err
		}
		if ok {
			s.logger.WithFields(logrus.Fields{
				"user_id": e.UserID,
				"period":  period,
				"rank":    e.Rank,
			}).Info("颁发名次徽章")
		}
	}
	return nil
}

// ListUserBadges 用户全部徽章
func (s *BadgeService) ListUserBadges(ctx context.Context, userID string) ([]*model.Badge, error) {
	return s.badges.ListBadgesByUser(ctx, userID)
}
