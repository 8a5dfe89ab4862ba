package transitionmock

import (
	"context"

	domain "loanflow/internal/domain/transition"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn       func(ctx context.Context, r *domain.Record) error
	ListByLoanIDFn func(ctx context.Context, loanNumericID uint64) ([]domain.Record, error)
}

func (m *Repo) Create(ctx context.Context, r *domain.Record) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *Repo) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]domain.Record, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanNumericID)
	}
	return nil, context.Canceled
}
