package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	loanDomain "loanflow/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	err := r.db.WithContext(ctx).Create(l).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return loanDomain.ErrConflict
	default:
		return loanDomain.StoreError("create loan", err)
	}
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	return r.first(r.db.WithContext(ctx), loanID)
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), loanID)
}

func (r *LoanRepository) first(q *gorm.DB, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := q.Where("loan_id = ?", loanID).First(&out).Error
	switch {
	case err == nil:
		if err := checkStatus(&out); err != nil {
			return nil, err
		}
		return &out, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, loanDomain.ErrNotFound
	default:
		return nil, loanDomain.StoreError("get loan", err)
	}
}

// UpdateStatus is a compare-and-swap on the status column.
func (r *LoanRepository) UpdateStatus(ctx context.Context, loanID string, from, to loanDomain.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("loan_id = ? AND status = ?", loanID, from).
		Updates(map[string]any{
			"status":            to,
			"status_updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, loanDomain.StoreError("update loan status", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *LoanRepository) List(ctx context.Context) ([]loanDomain.Loan, error) {
	out := []loanDomain.Loan{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, loanDomain.StoreError("list loans", err)
	}
	for i := range out {
		if err := checkStatus(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkStatus refuses rows written with a status outside the lifecycle.
func checkStatus(l *loanDomain.Loan) error {
	if !l.Status.Valid() {
		return loanDomain.StoreError("read loan",
			fmt.Errorf("loan %s has unknown status %q", l.LoanID, l.Status))
	}
	return nil
}
