package mysql

import (
	"context"

	"loanflow/internal/domain/loan"
	"loanflow/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:       &LoanRepository{db: tx},
		Transitions: &TransitionRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.repos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := u.repos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
