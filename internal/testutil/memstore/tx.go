package memstore

import (
	"context"

	"loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
)

// tx records an undo step for every write so a failed unit of work leaves
// the store as it found it.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *tx) Create(ctx context.Context, l *loan.Loan) error {
	if err := t.s.Create(ctx, l); err != nil {
		return err
	}
	loanID := l.LoanID
	t.undo = append(t.undo, func() {
		t.s.mu.Lock()
		defer t.s.mu.Unlock()
		delete(t.s.loans, loanID)
		for i, id := range t.s.order {
			if id == loanID {
				t.s.order = append(t.s.order[:i], t.s.order[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (t *tx) GetByLoanID(ctx context.Context, loanID string) (*loan.Loan, error) {
	return t.s.GetByLoanID(ctx, loanID)
}

func (t *tx) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return t.s.GetByLoanIDForUpdate(ctx, loanID)
}

func (t *tx) UpdateStatus(ctx context.Context, loanID string, from, to loan.Status) (bool, error) {
	ok, err := t.s.UpdateStatus(ctx, loanID, from, to)
	if ok {
		t.undo = append(t.undo, func() { _, _ = t.s.UpdateStatus(ctx, loanID, to, from) })
	}
	return ok, err
}

func (t *tx) List(ctx context.Context) ([]loan.Loan, error) { return t.s.List(ctx) }

type txTransitions struct{ t *tx }

func (x *txTransitions) Create(_ context.Context, r *transition.Record) error {
	s := x.t.s
	s.createRecord(r)
	trID := r.TransitionID
	x.t.undo = append(x.t.undo, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, rec := range s.records {
			if rec.TransitionID == trID {
				s.records = append(s.records[:i], s.records[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (x *txTransitions) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]transition.Record, error) {
	return x.t.s.Transitions().ListByLoanID(ctx, loanNumericID)
}
