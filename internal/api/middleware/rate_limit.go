package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"campus-planner/pkg/response"
)

// SlidingWindow 分布式滑动窗口计数（Redis 实现）
type SlidingWindow interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// maxTrackedIPs 进程内限流器数量上限，超过后整体重建
const maxTrackedIPs = 10000

// localLimiters 进程内按 IP 的令牌桶，Redis 不可用时使用
type localLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newLocalLimiters(limit int, window time.Duration) *localLimiters {
	return &localLimiters{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedIPs {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit 每个客户端 IP 在 window 内最多 limit 次请求。
// 优先使用 Redis 滑动窗口；sw 为 nil 或 Redis 出错时退回进程内令牌桶。
// limit <= 0 表示不限流。
func RateLimit(sw SlidingWindow, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiters(limit, window)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed := true
		useLocal := sw == nil

		if sw != nil {
			ok, err := sw.CheckRateLimit(c.Request.Context(), fmt.Sprintf("rate_limit:%s", ip), limit, window)
			if err != nil {
				logger.Warn("Redis 限流失败，使用进程内限流", zap.Error(err))
				useLocal = true
			} else {
				allowed = ok
			}
		}
		if useLocal {
			allowed = local.allow(ip)
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
