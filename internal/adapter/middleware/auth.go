package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loanflow/internal/domain/identity"
	"loanflow/internal/infrastructure/logger"
)

// Authenticate verifies the bearer token and stores the principal in the
// request context. Failures answer 401 with the verifier's reason code.
func Authenticate(v identity.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			token, err := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if err == nil {
				var p identity.Principal
				p, err = v.VerifyCredential(req.Context(), token)
				if err == nil {
					ctx := identity.WithPrincipal(req.Context(), p)
					ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", p.Subject)))
					c.SetRequest(req.WithContext(ctx))
					return next(c)
				}
			}

			var ae *identity.AuthError
			if !errors.As(err, &ae) {
				ae = identity.NewAuthError(identity.ReasonInvalid, "Invalid token", err)
			}
			logger.FromContext(req.Context()).Info("authentication failed",
				zap.String("reason", string(ae.Reason)), zap.Error(ae.Cause))
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": ae.Error(), "code": ae.Code()})
		}
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", identity.NewAuthError(identity.ReasonMissing, "No token provided", nil)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", identity.NewAuthError(identity.ReasonMalformed, "Malformed authorization header", nil)
	}
	return strings.TrimSpace(token), nil
}

// RequireRole admits principals whose role is in roles. An empty set admits
// any authenticated principal. Must run after Authenticate.
func RequireRole(roles []identity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := identity.FromContext(c.Request().Context())
			if !ok {
				ae := identity.NewAuthError(identity.ReasonMissing, "No token provided", nil)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": ae.Error(), "code": ae.Code()})
			}
			if len(roles) > 0 && !identity.IsAuthorized(p.Role, roles) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "Forbidden: insufficient role",
					"code":  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}
