package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"campus-planner/config"
	"campus-planner/internal/repository"
	"campus-planner/pkg/jwt"
	"campus-planner/pkg/metrics"
	"campus-planner/pkg/redis"
	"campus-planner/pkg/storage"
)

// TokenStore Token 黑名单（Redis 实现）；为 nil 时注销只在客户端生效
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// ScheduleCache 生成结果缓存（Redis 实现）；为 nil 时直接读数据库
type ScheduleCache interface {
	SetSchedule(ctx context.Context, userID string, payload []byte, ttl time.Duration) error
	GetSchedule(ctx context.Context, userID string) ([]byte, error)
	InvalidateSchedule(ctx context.Context, userID string) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Timetable  TimetableService
	Preference PreferenceService
	Planner    PlannerService
	Export     ExportService
}

// NewService 创建 Service 聚合。rdb 可以为 nil（Redis 不可用时降级运行）。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	store storage.ObjectStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	// 避免把 nil 指针装进非 nil 接口
	var tokens TokenStore
	var cache ScheduleCache
	if rdb != nil {
		tokens = rdb
		cache = rdb
	}

	plannerSvc := NewPlannerService(repo, cache, cfg.Planner.CacheTTL, m, logger)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, tokens, logger),
		Timetable:  NewTimetableService(repo, store, NewHTTPExtractor(&cfg.Extractor), m, logger),
		Preference: NewPreferenceService(repo, logger),
		Planner:    plannerSvc,
		Export:     NewExportService(plannerSvc, logger),
	}
}
