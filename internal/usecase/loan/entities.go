package loan

import (
	"time"

	domain "loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
)

type CreateLoanInput struct {
	// Optional caller-supplied id; generated when empty.
	ID        string  `json:"id,omitempty"`
	Applicant string  `json:"applicant"`
	Amount    float64 `json:"amount"`
}

type LoanDTO struct {
	LoanID          string    `json:"id"`
	Applicant       string    `json:"applicant"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	StatusUpdatedAt time.Time `json:"status_updated_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TransitionDTO struct {
	TransitionID string    `json:"transition_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ActorID      string    `json:"actor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:          l.LoanID,
		Applicant:       l.Applicant,
		Amount:          l.Amount,
		Status:          string(l.Status),
		StatusUpdatedAt: l.StatusUpdatedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func toTransitionDTO(r transition.Record) TransitionDTO {
	return TransitionDTO{
		TransitionID: r.TransitionID,
		From:         string(r.FromStatus),
		To:           string(r.ToStatus),
		ActorID:      r.ActorID,
		CreatedAt:    r.CreatedAt,
	}
}
