package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planner/config"
	"campus-planner/internal/api/handler"
	"campus-planner/internal/api/middleware"
	"campus-planner/pkg/jwt"
	"campus-planner/pkg/metrics"
	"campus-planner/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎。rdb、m 可以为 nil。
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// nil *redis.Client 不能直接装进接口
	var blacklist middleware.TokenBlacklist
	var window middleware.SlidingWindow
	if rdb != nil {
		blacklist = rdb
		window = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.RateLimit(window, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", readiness(db, rdb))

	if m != nil && cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 课表
			timetable := authorized.Group("/timetable")
			{
				timetable.POST("/upload", h.Timetable.Upload)
				timetable.POST("/import-ics", h.Timetable.ImportICS)
				timetable.GET("", h.Timetable.Get)
				timetable.PUT("", h.Timetable.Update)
				timetable.GET("/summary", h.Timetable.Summary)
				timetable.GET("/uploads", h.Timetable.ListUploads)
			}

			// 偏好
			authorized.GET("/activities", h.Preference.GetActivities)
			authorized.PUT("/activities", h.Preference.SaveActivities)
			authorized.GET("/study-preferences", h.Preference.GetStudyPreferences)
			authorized.PUT("/study-preferences", h.Preference.SaveStudyPreferences)
			authorized.GET("/life-essentials", h.Preference.GetLifeEssentials)
			authorized.PUT("/life-essentials", h.Preference.SaveLifeEssentials)
			authorized.GET("/life-essentials/sleep", h.Preference.SleepReport)

			// 日程
			schedule := authorized.Group("/schedule")
			{
				schedule.POST("/generate", h.Schedule.Generate)
				schedule.GET("", h.Schedule.Get)
				schedule.GET("/export", h.Export.Export)
			}
		}
	}

	return r
}

// readiness 检查数据库与 Redis；Redis 未配置时不算失败
func readiness(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "disabled"}
		status := http.StatusOK

		if db == nil {
			checks["database"] = "disabled"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				checks["redis"] = "unavailable"
			}
		}

		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	}
}
