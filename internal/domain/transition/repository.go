package transition

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error

	// Oldest first
	ListByLoanID(ctx context.Context, loanNumericID uint64) ([]Record, error)
}
