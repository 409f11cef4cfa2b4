package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"ForecastLadder/internal/model"
	"ForecastLadder/internal/repository"

	"github.com/sirupsen/logrus"
)

// LeaderboardEntry 榜单行（实时周期为计算值；已关账周期来自不可变快照）
type LeaderboardEntry struct {
	Period             string  `json:"period"`
	UserID             string  `json:"user_id"`
	Rank               int     `json:"rank"`
	TotalScore         int64   `json:"total_score"`
	TotalPredictions   int64   `json:"total_predictions"`
	CorrectPredictions int64   `json:"correct_predictions"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

// LeaderboardService 榜单排名与周期归档
type LeaderboardService struct {
	predictions repository.PredictionRepository
	archive     repository.LeaderboardRepository
	badges      *BadgeService
	logger      *logrus.Logger
	size        int
	now         func() time.Time
}

// NewLeaderboardService 创建榜单服务。size 为 Top-N 截断长度
func NewLeaderboardService(
	predictions repository.PredictionRepository,
	archive repository.LeaderboardRepository,
	badges *BadgeService,
	size int,
	logger *logrus.Logger,
) *LeaderboardService {
	if size <= 0 {
		size = 100
	}
	return &LeaderboardService{
		predictions: predictions,
		archive:     archive,
		badges:      badges,
		logger:      logger,
		size:        size,
		now:         time.Now,
	}
}

// Current 实时周期榜单。只读计算，允许与评估扫描并发：中途混杂的
// active/evaluated 行会得到一个一致但可能瞬时滞后的快照
func (s *LeaderboardService) Current(ctx context.Context) ([]*LeaderboardEntry, error) {
	period := PeriodLabel(s.now())
	entries, err := s.rank(ctx, period)
	if err != nil {
		return nil, err
	}
	return s.truncateLive(entries), nil
}

// Archived 已关账周期榜单，只读快照
func (s *LeaderboardService) Archived(ctx context.Context, period string) ([]*LeaderboardEntry, error) {
	if _, _, err := PeriodBounds(period); err != nil {
		return nil, fmt.Errorf("非法周期标签 %q: %w", period, err)
	}
	rows, err := s.archive.ListArchive(ctx, period)
	if err != nil {
		return nil, err
	}
	entries := make([]*LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &LeaderboardEntry{
			Period:             row.Period,
			UserID:             row.UserID,
			Rank:               row.Rank,
			TotalScore:         row.TotalScore,
			TotalPredictions:   row.TotalPredictions,
			CorrectPredictions: row.CorrectPredictions,
			AccuracyPercentage: row.AccuracyPercentage,
		})
	}
	return entries, nil
}

// ClosePeriod 关账：计算周期终榜、写入不可变快照、颁发名次徽章。幂等，
// 已归档的周期直接返回
func (s *LeaderboardService) ClosePeriod(ctx context.Context, period string) error {
	exists, err := s.archive.ArchiveExists(ctx, period)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	entries, err := s.rank(ctx, period)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*model.LeaderboardArchive, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &model.LeaderboardArchive{
			Period:             e.Period,
			UserID:             e.UserID,
			Rank:               e.Rank,
			TotalScore:         e.TotalScore,
			TotalPredictions:   e.TotalPredictions,
			CorrectPredictions: e.CorrectPredictions,
			AccuracyPercentage: e.AccuracyPercentage,
		})
	}
	if err := s.archive.SaveArchive(ctx, rows); err != nil {
		return fmt.Errorf("写入榜单快照失败: %w", err)
	}
	if s.badges != nil {
		if err := s.badges.AwardRankingBadges(ctx, period, entries); err != nil {
			s.logger.WithError(err).WithField("period", period).Warn("颁发名次徽章失败")
		}
	}
	s.logger.Infof("周期 %s 已关账，归档 %d 行榜单", period, len(rows))
	return nil
}

// CloseDuePeriods 自愈式关账：每轮扫描检查上一周期是否已归档，未归档则补账。
// 进程崩溃后下一轮扫描会自动重做，归档本身幂等
func (s *LeaderboardService) CloseDuePeriods(ctx context.Context) error {
	return s.ClosePeriod(ctx, PreviousPeriod(s.now()))
}

// userAgg 单用户周期内聚合
type userAgg struct {
	userID       string
	score        int64
	total        int64
	correct      int64
	evaluated    int64
	reachedAt    time.Time // 累计分首次到达终值并保持的时刻（四键排序第三键）
	firstCreated time.Time
	events       []scoreEvent
}

type scoreEvent struct {
	at    time.Time
	delta int64
}

// rank 聚合 + 严格四键全序排名：总分降序、命中数降序、到达终值时刻升序、
// 用户ID字典序升序。第四键保证任意两个不同用户必分先后
func (s *LeaderboardService) rank(ctx context.Context, period string) ([]*LeaderboardEntry, error) {
	from, to, err := PeriodBounds(period)
	if err != nil {
		return nil, fmt.Errorf("非法周期标签 %q: %w", period, err)
	}
	preds, err := s.predictions.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	aggs := make(map[string]*userAgg)
	for _, p := range preds {
		a, ok := aggs[p.UserID]
		if !ok {
			a = &userAgg{userID: p.UserID, firstCreated: p.CreatedAt}
			aggs[p.UserID] = a
		}
		if p.CreatedAt.Before(a.firstCreated) {
			a.firstCreated = p.CreatedAt
		}
		a.total++
		if p.Status != model.StatusEvaluated {
			continue
		}
		a.evaluated++
		a.score += int64(p.PointsAwarded)
		if p.Result == model.ResultCorrect {
			a.correct++
		}
		if p.EvaluatedAt != nil {
			a.events = append(a.events, scoreEvent{at: *p.EvaluatedAt, delta: int64(p.PointsAwarded)})
		}
	}

	entries := make([]*LeaderboardEntry, 0, len(aggs))
	for _, a := range aggs {
		a.resolveReachedAt()
		acc := 0.0
		if a.evaluated > 0 {
			acc = math.Round(float64(a.correct)/float64(a.evaluated)*100*100) / 100
		}
		entries = append(entries, &LeaderboardEntry{
			Period:             period,
			UserID:             a.userID,
			TotalScore:         a.score,
			TotalPredictions:   a.total,
			CorrectPredictions: a.correct,
			AccuracyPercentage: acc,
		})
	}

	reached := make(map[string]time.Time, len(aggs))
	for id, a := range aggs {
		reached[id] = a.reachedAt
	}
	// 复合排序键一次比较到底，全序性质可单测验证
	sort.Slice(entries, func(i, j int) bool {
		return entryLess(entries[i], entries[j], reached)
	})
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

// resolveReachedAt 按评估时间顺序回放积分流水，取累计分最后一次偏离终值
// 之后的那个事件时刻（即首次到达终值并保持的时刻）。无评估记录时退化为
// 首次提交时刻，保证键总有定义
func (a *userAgg) resolveReachedAt() {
	a.reachedAt = a.firstCreated
	if len(a.events) == 0 {
		return
	}
	sort.Slice(a.events, func(i, j int) bool { return a.events[i].at.Before(a.events[j].at) })
	running := int64(0)
	lastDiverge := -1
	for i, ev := range a.events {
		running += ev.delta
		if running != a.score {
			lastDiverge = i
		}
	}
	if lastDiverge+1 < len(a.events) {
		a.reachedAt = a.events[lastDiverge+1].at
	}
}

func entryLess(x, y *LeaderboardEntry, reached map[string]time.Time) bool {
	if x.TotalScore != y.TotalScore {
		return x.TotalScore > y.TotalScore
	}
	if x.CorrectPredictions != y.CorrectPredictions {
		return x.CorrectPredictions > y.CorrectPredictions
	}
	rx, ry := reached[x.UserID], reached[y.UserID]
	if !rx.Equal(ry) {
		return rx.Before(ry) // 先到达者在前，奖励稳定发挥
	}
	return x.UserID < y.UserID
}

// truncateLive 实时榜单截断：榜首若在（总分, 命中数）两键上并列多人，
// 全部并列者共享第 1 名且必须完整保留（仅实时周期有此规则），
// 其后名次从 2 起连续编号；无并列时按严格全序 1..n 截断
func (s *LeaderboardService) truncateLive(entries []*LeaderboardEntry) []*LeaderboardEntry {
	if len(entries) == 0 {
		return entries
	}
	top := entries[0]
	leaders := 1
	for leaders < len(entries) &&
		entries[leaders].TotalScore == top.TotalScore &&
		entries[leaders].CorrectPredictions == top.CorrectPredictions {
		leaders++
	}
	if leaders > 1 {
		for i := 0; i < leaders; i++ {
			entries[i].Rank = 1
		}
		for i := leaders; i < len(entries); i++ {
			entries[i].Rank = i - leaders + 2
		}
	}
	cut := s.size
	if leaders > cut {
		cut = leaders
	}
	if len(entries) > cut {
		entries = entries[:cut]
	}
	return entries
}
