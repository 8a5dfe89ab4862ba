package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loanflow/internal/domain/identity"
	"loanflow/internal/infrastructure/logger"
)

const (
	// claimTTL bounds how long an in-flight request blocks its replays.
	claimTTL = 60 * time.Second
	// maxClockSkew is the accepted distance between Ax-Request-At and now.
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second

	headerRequestID = "Ax-Request-Id"
	headerRequestAt = "Ax-Request-At"
)

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

func jsonError(c echo.Context, status int, msg, code string) error {
	return c.JSON(status, map[string]string{"error": msg, "code": code})
}

// Idempotency replays the stored response of a mutating request that repeats
// its Ax-Request-Id. The key is method + route + principal subject + request
// id. Requests without Ax-Request-Id pass through untouched. Server errors
// release the claim so the client may retry.
func Idempotency(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	store := replayStore{rdb: rdb, lockTTL: claimTTL}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.TrimSpace(req.Header.Get(headerRequestID))
			if reqID == "" {
				return next(c)
			}
			if !validRequestID(reqID) {
				return jsonError(c, http.StatusBadRequest, "invalid Ax-Request-Id format", "VALIDATION_ERROR")
			}
			reqAt, err := parseRequestAt(req.Header.Get(headerRequestAt))
			if err != nil {
				return jsonError(c, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			}
			if !withinSkew(reqAt, time.Now().UTC(), maxClockSkew) {
				return jsonError(c, http.StatusBadRequest, "Ax-Request-At too skewed", "VALIDATION_ERROR")
			}

			subject := "anonymous"
			if p, ok := identity.FromContext(req.Context()); ok {
				subject = p.Subject
			}

			var body []byte
			if req.Body != nil {
				b, err := io.ReadAll(req.Body)
				if err != nil {
					logger.FromContext(req.Context()).Info("idempotent request body unreadable", zap.Error(err))
					return jsonError(c, http.StatusBadRequest, "request body could not be read", "VALIDATION_ERROR")
				}
				body = b
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			bodySum := hashBody(body)

			key := replayKey(req.Method, c.Path(), subject, reqID)
			log := logger.FromContext(req.Context()).With(zap.String("idempotency_key", key))
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			claimed, err := store.claim(ctx, key, replayEntry{
				InProgress:  true,
				BodySHA256:  bodySum,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				log.Error("idempotency store unavailable", zap.Error(err))
				return jsonError(c, http.StatusServiceUnavailable, "idempotency store unavailable", "IDEMPOTENCY_UNAVAILABLE")
			}
			if !claimed {
				cur, err := store.load(ctx, key)
				if err != nil {
					log.Warn("idempotency entry load failed", zap.Error(err))
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bodySum {
					return jsonError(c, http.StatusConflict, "Ax-Request-Id reused with different body", "IDEMPOTENCY_CONFLICT")
				}
				if cur.replayable() {
					log.Debug("idempotent replay", zap.Int("status", cur.Code))
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return jsonError(c, http.StatusConflict, "request is already in progress", "IDEMPOTENCY_CONFLICT")
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be cancelled here
			saveCtx, saveCancel := context.WithTimeout(context.Background(), storeTimeout)
			defer saveCancel()
			if rec.code >= http.StatusInternalServerError {
				if err := rdb.Del(saveCtx, key).Err(); err != nil {
					log.Warn("idempotency claim release failed", zap.Error(err))
				}
				return nil
			}
			final := replayEntry{
				Code:        rec.code,
				Body:        rec.buf.Bytes(),
				BodySHA256:  bodySum,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   time.Now().UTC(),
			}
			if err := store.save(saveCtx, key, final, ttl); err != nil {
				log.Warn("idempotency entry save failed", zap.Error(err))
			}
			return nil
		}
	}
}
