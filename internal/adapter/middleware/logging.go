package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"loanflow/internal/infrastructure/logger"
)

// RequestContext attaches base (tagged with the echo request id) to the
// request context. Run it after echo's RequestID middleware.
func RequestContext(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logger.WithContext(req.Context(), base)
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				ctx = logger.WithRequestID(ctx, id)
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// RequestLogger writes one zap line per request.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			log := logger.FromContext(c.Request().Context())
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
