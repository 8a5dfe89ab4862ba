package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.Logger
}

func NewRateLimiter(rps float64, burst int, log *zap.Logger) *RateLimiter {
	return &RateLimiter{rps: rate.Limit(rps), burst: burst, log: log}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	if l, ok := rl.limiters.Load(ip); ok {
		return l.(*rate.Limiter)
	}
	l, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rl.rps, rl.burst))
	return l.(*rate.Limiter)
}

// Cleanup drops idle buckets every interval until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			rl.limiters.Range(func(k, v any) bool {
				// full bucket means no recent traffic
				if v.(*rate.Limiter).TokensAt(now) >= float64(rl.burst) {
					rl.limiters.Delete(k)
				}
				return true
			})
		}
	}
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !rl.limiter(ip).Allow() {
				rl.log.Warn("rate limit exceeded", zap.String("ip", ip))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Rate limit exceeded",
					"code":  "RATE_LIMITED",
				})
			}
			return next(c)
		}
	}
}
