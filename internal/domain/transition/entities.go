package transition

import (
	"time"

	"loanflow/internal/domain/loan"
)

// Table: loan_transitions. One row per status change, written in the same
// transaction as the change itself.
type Record struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// Public identifier (32-char lowercase hex)
	TransitionID string `gorm:"column:transition_id;size:32;not null;uniqueIndex:ux_loan_transitions_transition_id" json:"transition_id"`
	// FK to loans.id (numeric)
	LoanID     uint64      `gorm:"column:loan_id;not null;index:idx_loan_transitions_loan" json:"-"`
	FromStatus loan.Status `gorm:"column:from_status;size:16;not null" json:"from"`
	ToStatus   loan.Status `gorm:"column:to_status;size:16;not null" json:"to"`
	ActorID    string      `gorm:"column:actor_id;size:128" json:"actor_id,omitempty"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Record) TableName() string { return "loan_transitions" }
