package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"loanflow/internal/adapter/middleware"
	"loanflow/internal/config"
	"loanflow/internal/domain/identity"
)

type Routes struct {
	Health   *Handler
	Loans    *LoanHandler
	Users    *UserHandler
	Verifier identity.Verifier
	Policy   config.RoutePolicy

	// Optional; nil disables Ax-Request-Id replay.
	Idempotency    *redis.Client
	IdempotencyTTL time.Duration
}

// Register mounts the public API on e.
func Register(e *echo.Echo, r Routes) {
	e.GET("/health", r.Health.Health)
	e.GET("/api", r.Health.Welcome)

	v1 := e.Group("/api/v1")
	v1.GET("", r.Health.Welcome)

	guarded := []echo.MiddlewareFunc{middleware.Authenticate(r.Verifier)}
	if r.Idempotency != nil {
		guarded = append(guarded, middleware.Idempotency(r.Idempotency, r.IdempotencyTTL))
	}

	loans := v1.Group("/loans", guarded...)
	loans.POST("", r.Loans.CreateLoan, middleware.RequireRole(r.Policy.Create))
	loans.GET("", r.Loans.ListLoans, middleware.RequireRole(r.Policy.List))
	loans.GET("/:id", r.Loans.GetLoan, middleware.RequireRole(r.Policy.List))
	loans.GET("/:id/history", r.Loans.LoanHistory, middleware.RequireRole(r.Policy.List))
	loans.PUT("/:id/review", r.Loans.ReviewLoan, middleware.RequireRole(r.Policy.Review))
	loans.PUT("/:id/approve", r.Loans.ApproveLoan, middleware.RequireRole(r.Policy.Approve))

	users := v1.Group("/users", guarded...)
	users.GET("/profile", r.Users.Profile)
	users.DELETE("/:id", r.Users.RevokeUser, middleware.RequireRole(r.Policy.Admin))
}
