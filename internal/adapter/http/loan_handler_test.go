package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	domain "loanflow/internal/domain/loan"
	"loanflow/internal/domain/uow"
	"loanflow/internal/testutil/loanmock"
	"loanflow/internal/testutil/memstore"
	"loanflow/internal/testutil/transitionmock"
	"loanflow/internal/testutil/uowmock"
	uc "loanflow/internal/usecase/loan"
)

// -------- helpers --------

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func newMemHandler() *LoanHandler {
	s := memstore.New()
	return NewLoanHandler(uc.NewUsecase(s, s, s.Transitions()))
}

func serve(t *testing.T, e *echo.Echo, method, target string, body any, id string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	var req *stdhttp.Request
	if body != nil {
		req = httptest.NewRequest(method, target, mustJSON(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad error json: %v; raw=%s", err, rec.Body.String())
	}
	return er
}

func createVia(t *testing.T, e *echo.Echo, h *LoanHandler, body any) uc.LoanDTO {
	t.Helper()
	rec := serve(t, e, stdhttp.MethodPost, "/loans", body, "", h.CreateLoan)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var got uc.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	return got
}

// -------- tests --------

func TestCreateLoan_Success(t *testing.T) {
	e := newEchoWithValidator()
	h := newMemHandler()

	got := createVia(t, e, h, map[string]any{"applicant": "Bob", "amount": 1000})
	if len(got.LoanID) != 32 || got.Applicant != "Bob" || got.Amount != 1000 || got.Status != "pending" {
		t.Fatalf("unexpected dto: %+v", got)
	}

	withID := createVia(t, e, h, map[string]any{"id": "loan-7", "applicant": "Alice", "amount": 5.5})
	if withID.LoanID != "loan-7" {
		t.Fatalf("supplied id not kept: %+v", withID)
	}
}

func TestCreateLoan_BindError(t *testing.T) {
	e := newEchoWithValidator()
	h := newMemHandler()

	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", strings.NewReader(`{"applicant":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateLoan(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if er := decodeErr(t, rec); er.Code != CodeValidation {
		t.Fatalf("code = %s, want %s", er.Code, CodeValidation)
	}
}

func TestCreateLoan_ValidationError(t *testing.T) {
	e := newEchoWithValidator()
	h := newMemHandler()

	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing applicant", map[string]any{"amount": 10}, "applicant"},
		{"blank applicant", map[string]any{"applicant": "   ", "amount": 10}, "applicant"},
		{"missing amount", map[string]any{"applicant": "Bob"}, "amount"},
		{"zero amount", map[string]any{"applicant": "Bob", "amount": 0}, "amount"},
		{"negative amount", map[string]any{"applicant": "Bob", "amount": -5}, "amount"},
		{"sub-cent amount", map[string]any{"applicant": "Bob", "amount": 0.001}, "amount"},
		{"bad id", map[string]any{"id": "../etc", "applicant": "Bob", "amount": 5}, "id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, e, stdhttp.MethodPost, "/loans", tc.body, "", h.CreateLoan)
			if rec.Code != stdhttp.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body=%s", rec.Code, rec.Body.String())
			}
			er := decodeErr(t, rec)
			if er.Code != CodeValidation {
				t.Fatalf("code = %s, want %s", er.Code, CodeValidation)
			}
			found := false
			for _, d := range er.Details {
				if d.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected detail for %s, got %+v", tc.field, er.Details)
			}
		})
	}
}

func TestCreateLoan_Conflict(t *testing.T) {
	e := newEchoWithValidator()
	h := newMemHandler()

	createVia(t, e, h, map[string]any{"id": "dup", "applicant": "Bob", "amount": 1})
	rec := serve(t, e, stdhttp.MethodPost, "/loans", map[string]any{"id": "dup", "applicant": "Eve", "amount": 2}, "", h.CreateLoan)
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if er := decodeErr(t, rec); er.Code != CodeConflict {
		t.Fatalf("code = %s, want %s", er.Code, CodeConflict)
	}
}

func TestLoanLifecycle_Handlers(t *testing.T) {
	e := newEchoWithValidator()
	h := newMemHandler()
	l := createVia(t, e, h, map[string]any{"applicant": "Bob", "amount": 1000})

	// approve before review
	rec := serve(t, e, stdhttp.MethodPut, "/", nil, l.LoanID, h.ApproveLoan)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("approve pending: status = %d, want 400", rec.Code)
	}
	if er := decodeErr(t, rec); er.Code != CodeInvalidTransition || er.Error != "loan not reviewed yet" {
		t.Fatalf("unexpected error body: %+v", er)
	}

	rec = serve(t, e, stdhttp.MethodPut, "/", nil, l.LoanID, h.ReviewLoan)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("review: status = %d, body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, e, stdhttp.MethodPut, "/", nil, l.LoanID, h.ReviewLoan)
	if er := decodeErr(t, rec); rec.Code != stdhttp.StatusBadRequest || er.Error != "loan already processed" {
		t.Fatalf("second review: %d %+v", rec.Code, er)
	}

	rec = serve(t, e, stdhttp.MethodPut, "/", nil, l.LoanID, h.ApproveLoan)
	var approved uc.LoanDTO
	_ = json.Unmarshal(rec.Body.Bytes(), &approved)
	if rec.Code != stdhttp.StatusOK || approved.Status != "approved" || approved.Amount != 1000 {
		t.Fatalf("approve: %d %+v", rec.Code, approved)
	}

	rec = serve(t, e, stdhttp.MethodGet, "/", nil, l.LoanID, h.GetLoan)
	var got uc.LoanDTO
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if rec.Code != stdhttp.StatusOK || got.Status != "approved" {
		t.Fatalf("get: %d %+v", rec.Code, got)
	}

	rec = serve(t, e, stdhttp.MethodGet, "/", nil, l.LoanID, h.LoanHistory)
	var hist []uc.TransitionDTO
	_ = json.Unmarshal(rec.Body.Bytes(), &hist)
	if rec.Code != stdhttp.StatusOK || len(hist) != 3 || hist[2].To != "approved" {
		t.Fatalf("history: %d %+v", rec.Code, hist)
	}

	rec = serve(t, e, stdhttp.MethodGet, "/", nil, "", h.ListLoans)
	var all []uc.LoanDTO
	_ = json.Unmarshal(rec.Body.Bytes(), &all)
	if rec.Code != stdhttp.StatusOK || len(all) != 1 {
		t.Fatalf("list: %d %+v", rec.Code, all)
	}
}

func TestLoanHandlers_NotFound(t *testing.T) {
	e := newEchoWithValidator()
	h := newMemHandler()

	for name, fn := range map[string]echo.HandlerFunc{
		"get":     h.GetLoan,
		"history": h.LoanHistory,
		"review":  h.ReviewLoan,
		"approve": h.ApproveLoan,
	} {
		rec := serve(t, e, stdhttp.MethodGet, "/", nil, "missing", fn)
		if rec.Code != stdhttp.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", name, rec.Code)
		}
		if er := decodeErr(t, rec); er.Code != CodeNotFound {
			t.Fatalf("%s: code = %s", name, er.Code)
		}
	}
}

func TestListLoans_EmptyIsArray(t *testing.T) {
	rec := serve(t, newEchoWithValidator(), stdhttp.MethodGet, "/", nil, "", newMemHandler().ListLoans)
	if rec.Code != stdhttp.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("list: %d %q", rec.Code, rec.Body.String())
	}
}

func TestListLoans_StoreErrorNotLeaked(t *testing.T) {
	loans := &loanmock.Repo{ListFn: func(context.Context) ([]domain.Loan, error) {
		return nil, domain.StoreError("list loans", errors.New("dial tcp 10.0.0.5:3306: secret host"))
	}}
	recs := &transitionmock.Repo{}
	usecase := uc.NewUsecase(uowmock.Passthrough(uow.Repos{Loans: loans, Transitions: recs}), loans, recs)

	rec := serve(t, newEchoWithValidator(), stdhttp.MethodGet, "/", nil, "", NewLoanHandler(usecase).ListLoans)
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	er := decodeErr(t, rec)
	if er.Code != CodeStore || strings.Contains(er.Error, "secret host") {
		t.Fatalf("unexpected error body: %+v", er)
	}
}
