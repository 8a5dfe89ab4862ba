package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loanflow/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createLoanReq struct {
	ID        string   `json:"id"        validate:"omitempty,docid"`
	Applicant string   `json:"applicant" validate:"required,max=255"`
	Amount    *float64 `json:"amount"    validate:"required,finite,gt=0"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: CodeValidation})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		ID:        req.ID,
		Applicant: req.Applicant,
		Amount:    *req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ListLoans(c echo.Context) error {
	dtos, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) LoanHistory(c echo.Context) error {
	dtos, err := h.uc.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *LoanHandler) ReviewLoan(c echo.Context) error {
	dto, err := h.uc.Review(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ApproveLoan(c echo.Context) error {
	dto, err := h.uc.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
