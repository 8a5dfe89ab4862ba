package loan

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusApproved Status = "approved"
	// StatusRejected is a valid stored value but no transition in this service produces it.
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Amounts are stored as DECIMAL(18,2).
const AmountScale = 2

var maxAmount = decimal.New(1, 16)

// Table: loans
type Loan struct {
	// Internal numeric PK
	ID uint64 `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	// Public identifier, generated or caller-supplied
	LoanID          string    `gorm:"column:loan_id;size:64;not null;uniqueIndex:ux_loans_loan_id" json:"id"`
	Applicant       string    `gorm:"column:applicant;size:255;not null" json:"applicant"`
	Amount          float64   `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status          Status    `gorm:"column:status;size:16;not null;default:pending;index:idx_loans_status" json:"status"`
	StatusUpdatedAt time.Time `gorm:"column:status_updated_at" json:"status_updated_at"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// NewLoan validates the application and returns a pending loan. loanID may be
// empty; the caller assigns one before persisting.
func NewLoan(loanID, applicant string, amount float64, now time.Time) (*Loan, error) {
	applicant = strings.TrimSpace(applicant)
	if applicant == "" {
		return nil, NewValidationError("applicant", "is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, NewValidationError("amount", "must be a finite number")
	}
	if amount <= 0 {
		return nil, NewValidationError("amount", "must be greater than 0")
	}
	d := decimal.NewFromFloat(amount)
	if !d.Equal(d.Round(AmountScale)) {
		return nil, NewValidationError("amount", "must have at most 2 decimal places")
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return nil, NewValidationError("amount", "must be less than 1e16")
	}
	return &Loan{
		LoanID:          loanID,
		Applicant:       applicant,
		Amount:          amount,
		Status:          StatusPending,
		StatusUpdatedAt: now.UTC(),
	}, nil
}
