package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	loanDomain "loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
	"loanflow/internal/domain/uow"
)

func makeRecord(trID string, loanNumericID uint64, from, to loanDomain.Status) *transition.Record {
	return &transition.Record{
		TransitionID: trID,
		LoanID:       loanNumericID,
		FromStatus:   from,
		ToStatus:     to,
		ActorID:      "officer-1",
	}
}

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		l := makeLoan("LN-COMMIT", "Alice")
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if l.ID == 0 {
			t.Fatalf("loan auto ID not set")
		}
		return r.Transitions.Create(ctx, makeRecord("TR-COMMIT", l.ID, "", loanDomain.StatusPending))
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	l, err := NewLoanRepository(db).GetByLoanID(ctx, "LN-COMMIT")
	if err != nil {
		t.Fatalf("loan not visible after commit: %v", err)
	}
	recs, err := NewTransitionRepository(db).ListByLoanID(ctx, l.ID)
	if err != nil || len(recs) != 1 {
		t.Fatalf("transition not visible after commit: %v %+v", err, recs)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)

	sentinel := errors.New("boom")
	var numericID uint64

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		l := makeLoan("LN-ROLL", "Bob")
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		numericID = l.ID
		if err := r.Transitions.Create(ctx, makeRecord("TR-ROLL", l.ID, "", loanDomain.StatusPending)); err != nil {
			return err
		}
		return sentinel // force rollback
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}

	if _, err := NewLoanRepository(db).GetByLoanID(ctx, "LN-ROLL"); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("expected loan not found after rollback, got %v", err)
	}
	recs, _ := NewTransitionRepository(db).ListByLoanID(ctx, numericID)
	if len(recs) != 0 {
		t.Fatalf("expected no transitions after rollback, got %+v", recs)
	}
}

func TestGormUoW_WithinLoanTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	if err := loanRepo.Create(ctx, makeLoan("LN-TARGET", "Carol")); err != nil {
		t.Fatalf("seed loan: %v", err)
	}

	err := guow.WithinLoanTx(ctx, "LN-TARGET", func(r uow.Repos, l *loanDomain.Loan) error {
		if l == nil || l.LoanID != "LN-TARGET" || l.Status != loanDomain.StatusPending {
			t.Fatalf("unexpected loan passed to fn: %+v", l)
		}
		ok, err := r.Loans.UpdateStatus(ctx, l.LoanID, loanDomain.StatusPending, loanDomain.StatusReviewed)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("swap should apply inside the locking tx")
		}
		return r.Transitions.Create(ctx, makeRecord("TR-LOCK", l.ID, loanDomain.StatusPending, loanDomain.StatusReviewed))
	})
	if err != nil {
		t.Fatalf("WithinLoanTx commit err: %v", err)
	}

	got, err := loanRepo.GetByLoanID(ctx, "LN-TARGET")
	if err != nil {
		t.Fatalf("GetByLoanID post-commit: %v", err)
	}
	if got.Status != loanDomain.StatusReviewed {
		t.Fatalf("loan status not updated, got=%s", got.Status)
	}
	if got.StatusUpdatedAt.IsZero() || got.StatusUpdatedAt.After(time.Now().Add(time.Minute)) {
		t.Fatalf("status_updated_at not maintained: %v", got.StatusUpdatedAt)
	}
}

func TestGormUoW_WithinLoanTx_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	if err := loanRepo.Create(ctx, makeLoan("LN-RB-TGT", "Dan")); err != nil {
		t.Fatalf("seed loan: %v", err)
	}

	sentinel := errors.New("stop")
	_ = guow.WithinLoanTx(ctx, "LN-RB-TGT", func(r uow.Repos, l *loanDomain.Loan) error {
		if _, err := r.Loans.UpdateStatus(ctx, l.LoanID, loanDomain.StatusPending, loanDomain.StatusReviewed); err != nil {
			return err
		}
		return sentinel // force rollback
	})

	got, err := loanRepo.GetByLoanID(ctx, "LN-RB-TGT")
	if err != nil {
		t.Fatalf("post-rollback GetByLoanID: %v", err)
	}
	if got.Status != loanDomain.StatusPending {
		t.Fatalf("expected pending after rollback, got %s", got.Status)
	}
}

func TestGormUoW_WithinLoanTx_LoanNotFound(t *testing.T) {
	db := openTestDB(t)
	guow := NewGormUoW(db)

	err := guow.WithinLoanTx(context.Background(), "LN-NOPE", func(r uow.Repos, l *loanDomain.Loan) error {
		t.Fatalf("callback should not be called when loan missing")
		return nil
	})
	if !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
