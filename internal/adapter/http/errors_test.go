package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"loanflow/internal/domain/loan"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{loan.NewValidationError("amount", "must be greater than 0"), http.StatusBadRequest, CodeValidation},
		{loan.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("review: %w", loan.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{&loan.TransitionError{Guard: "loan already processed"}, http.StatusBadRequest, CodeInvalidTransition},
		{loan.ErrConflict, http.StatusConflict, CodeConflict},
		{loan.StoreError("get loan", errors.New("timeout")), http.StatusInternalServerError, CodeStore},
		{errors.New("anything else"), http.StatusInternalServerError, CodeStore},
	}
	for _, tc := range cases {
		status, code := statusFor(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("statusFor(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}
