package mysql

import (
	"context"

	loanDomain "loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"

	"gorm.io/gorm"
)

type TransitionRepository struct{ db *gorm.DB }

func NewTransitionRepository(db *gorm.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

func (r *TransitionRepository) Create(ctx context.Context, rec *transition.Record) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return loanDomain.StoreError("create transition", err)
	}
	return nil
}

func (r *TransitionRepository) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]transition.Record, error) {
	out := []transition.Record{}
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, loanDomain.StoreError("list transitions", err)
	}
	return out, nil
}
