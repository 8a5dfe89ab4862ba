package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loanflow/internal/domain/loan"
	"loanflow/internal/infrastructure/logger"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "LOAN_NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConflict          = "LOAN_ALREADY_EXISTS"
	CodeStore             = "STORE_ERROR"
)

// statusFor maps a lifecycle error onto an HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, loan.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, loan.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, loan.ErrInvalidTransition):
		return http.StatusBadRequest, CodeInvalidTransition
	case errors.Is(err, loan.ErrConflict):
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeStore
	}
}

func writeError(c echo.Context, err error) error {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var ve *loan.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.Error = "validation failed"
		resp.Details = []FieldError{{Field: ve.Field, Message: ve.Message}}
	case status == http.StatusInternalServerError:
		logger.FromContext(c.Request().Context()).Error("request failed", zap.Error(err))
		resp.Error = "internal server error"
	}
	return c.JSON(status, resp)
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation failed",
		Code:    CodeValidation,
		Details: ToFieldErrors(err),
	})
}
