package service

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"campus-planner/internal/dto"
	"campus-planner/internal/model"
	"campus-planner/internal/planner"
	"campus-planner/internal/repository"
	"campus-planner/pkg/metrics"
	"campus-planner/pkg/redis"
)

// ErrScheduleNotGenerated 用户还没有生成过日程
var ErrScheduleNotGenerated = errors.New("尚未生成日程")

const defaultScheduleCacheTTL = 24 * time.Hour

// generatedDocument generatedSchedule 文档与缓存的内容
type generatedDocument struct {
	*planner.WeekSchedule
	GeneratedAt time.Time `json:"generatedAt"`
}

// PlannerService 生成并读取周日程
type PlannerService interface {
	// Generate 读取课表、活动、学习偏好与作息，合成一周日程并保存
	Generate(ctx context.Context, userID string) (*dto.ScheduleResponse, error)
	// Get 读取最近一次生成的日程：先查缓存，再查数据库
	Get(ctx context.Context, userID string) (*dto.ScheduleResponse, error)
}

type plannerService struct {
	repo     *repository.Repository
	prefs    *preferenceService
	cache    ScheduleCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlannerService 创建 PlannerService 实例；cache 为 nil 时不使用缓存
func NewPlannerService(
	repo *repository.Repository,
	cache ScheduleCache,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) PlannerService {
	if cacheTTL <= 0 {
		cacheTTL = defaultScheduleCacheTTL
	}
	return &plannerService{
		repo:     repo,
		prefs:    &preferenceService{repo: repo, logger: logger},
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// Generate
// ════════════════════════════════════════════════════════════

func (s *plannerService) Generate(ctx context.Context, userID string) (*dto.ScheduleResponse, error) {
	// 1. 读取四份输入
	in, err := s.loadInput(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. 合成
	started := time.Now()
	schedule, err := planner.Run(in)
	if err != nil {
		s.metrics.ObserveSynthesis(time.Since(started), 0, 0, 0, 0, err)
		return nil, err
	}
	droppedStudy, droppedActivities := countDropped(schedule.Dropped)
	s.metrics.ObserveSynthesis(time.Since(started),
		schedule.Stats.TotalStudySessions, schedule.Stats.TotalActivities,
		droppedStudy, droppedActivities, nil)

	// 3. 保存 + 缓存
	doc := generatedDocument{WeekSchedule: schedule, GeneratedAt: s.now().UTC()}
	if _, err := overwriteDocument(ctx, s.repo.Document, userID, model.DocGeneratedSchedule, doc); err != nil {
		s.logger.Error("保存生成的日程失败", zap.Error(err))
		return nil, err
	}
	s.storeCache(ctx, userID, doc)

	s.logger.Info("日程生成完成",
		zap.String("user_id", userID),
		zap.Int("classes", schedule.Stats.TotalClasses),
		zap.Int("study_sessions", schedule.Stats.TotalStudySessions),
		zap.Int("activities", schedule.Stats.TotalActivities),
		zap.Int("dropped", len(schedule.Dropped)),
		zap.Int("conflicts", len(schedule.Conflicts)),
	)
	return toScheduleResponse(doc, false), nil
}

func (s *plannerService) loadInput(ctx context.Context, userID string) (planner.Input, error) {
	var tt timetableDocument
	_, found, err := loadDocument(ctx, s.repo.Document, userID, model.DocParsedSchedule, &tt)
	if err != nil {
		s.logger.Error("查询课表失败", zap.Error(err))
		return planner.Input{}, err
	}
	if !found || len(tt.Classes) == 0 {
		return planner.Input{}, ErrTimetableNotFound
	}

	activities, _, err := s.prefs.loadActivities(ctx, userID)
	if err != nil {
		return planner.Input{}, err
	}
	study, _, err := s.prefs.loadStudyPreferences(ctx, userID)
	if err != nil {
		return planner.Input{}, err
	}
	essentials, _, err := s.prefs.loadLifeEssentials(ctx, userID)
	if err != nil {
		return planner.Input{}, err
	}

	return planner.Input{
		Classes:        tt.Classes,
		Activities:     activities,
		Study:          study,
		LifeEssentials: essentials,
	}, nil
}

func countDropped(items []planner.DroppedItem) (study, activities int) {
	for _, d := range items {
		switch d.Kind {
		case planner.KindStudy:
			study++
		case planner.KindActivity:
			activities++
		}
	}
	return study, activities
}

// ════════════════════════════════════════════════════════════
// Get
// ════════════════════════════════════════════════════════════

func (s *plannerService) Get(ctx context.Context, userID string) (*dto.ScheduleResponse, error) {
	if doc, ok := s.loadCache(ctx, userID); ok {
		return toScheduleResponse(doc, true), nil
	}

	var doc generatedDocument
	_, found, err := loadDocument(ctx, s.repo.Document, userID, model.DocGeneratedSchedule, &doc)
	if err != nil {
		s.logger.Error("查询生成的日程失败", zap.Error(err))
		return nil, err
	}
	if !found || doc.WeekSchedule == nil {
		return nil, ErrScheduleNotGenerated
	}
	s.storeCache(ctx, userID, doc)
	return toScheduleResponse(doc, false), nil
}

// ── 缓存 ──

func (s *plannerService) loadCache(ctx context.Context, userID string) (generatedDocument, bool) {
	if s.cache == nil {
		return generatedDocument{}, false
	}
	raw, err := s.cache.GetSchedule(ctx, userID)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取日程缓存失败", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
		return generatedDocument{}, false
	}
	var doc generatedDocument
	if err := json.Unmarshal(raw, &doc); err != nil || doc.WeekSchedule == nil {
		s.logger.Warn("日程缓存内容无效", zap.Error(err))
		s.metrics.RecordCacheLookup(false)
		return generatedDocument{}, false
	}
	s.metrics.RecordCacheLookup(true)
	return doc, true
}

func (s *plannerService) storeCache(ctx context.Context, userID string, doc generatedDocument) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(doc)
	if err == nil {
		err = s.cache.SetSchedule(ctx, userID, payload, s.cacheTTL)
	}
	if err != nil {
		s.logger.Warn("写入日程缓存失败", zap.Error(err))
		// 写失败时清掉旧值，避免读到过期的日程
		if delErr := s.cache.InvalidateSchedule(ctx, userID); delErr != nil {
			s.logger.Warn("清除日程缓存失败", zap.Error(delErr))
		}
	}
}

func toScheduleResponse(doc generatedDocument, cached bool) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		WeekSchedule: doc.WeekSchedule,
		GeneratedAt:  doc.GeneratedAt.Format(time.RFC3339),
		Cached:       cached,
	}
}
