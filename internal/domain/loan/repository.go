package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	// GetByLoanID returns ErrNotFound when no loan has the public id.
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate is GetByLoanID under a row lock (inside a tx).
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// UpdateStatus sets status=to only if the stored status is still from.
	// It reports false when the row was not updated.
	UpdateStatus(ctx context.Context, loanID string, from, to Status) (bool, error)
	List(ctx context.Context) ([]Loan, error)
}
