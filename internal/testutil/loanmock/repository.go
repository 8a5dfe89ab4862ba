package loanmock

import (
	"context"

	domain "loanflow/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled so a test notices an unexpected call.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.Loan, error)
	UpdateStatusFn         func(ctx context.Context, loanID string, from, to domain.Status) (bool, error)
	ListFn                 func(ctx context.Context) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) UpdateStatus(ctx context.Context, loanID string, from, to domain.Status) (bool, error) {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, loanID, from, to)
	}
	return true, nil
}

func (m *Repo) List(ctx context.Context) ([]domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, context.Canceled
}
