package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loanflow/internal/domain/identity"
	"loanflow/internal/infrastructure/logger"
)

// Revoker invalidates every token already issued to a subject.
type Revoker interface {
	Revoke(ctx context.Context, subject string, ttl time.Duration) error
}

type UserHandler struct {
	revoker Revoker
	ttl     time.Duration
}

// NewUserHandler: revoker may be nil when no revocation store is configured.
func NewUserHandler(r Revoker, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{revoker: r, ttl: tokenTTL}
}

func (h *UserHandler) Profile(c echo.Context) error {
	p, _ := identity.FromContext(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]string{
		"message": "User profile for user ID: " + p.Subject,
		"uid":     p.Subject,
		"role":    string(p.Role),
	})
}

// RevokeUser signs a user out everywhere by revoking their tokens.
func (h *UserHandler) RevokeUser(c echo.Context) error {
	subject := strings.TrimSpace(c.Param("id"))
	if subject == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing user id", Code: CodeValidation})
	}
	if h.revoker == nil {
		return c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "token revocation is not configured", Code: "NOT_CONFIGURED"})
	}
	ctx := c.Request().Context()
	if err := h.revoker.Revoke(ctx, subject, h.ttl); err != nil {
		logger.FromContext(ctx).Error("revoke user", zap.String("subject", subject), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeStore})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User " + subject + " revoked by admin"})
}
