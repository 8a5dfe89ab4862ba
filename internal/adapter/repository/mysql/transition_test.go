package mysql

import (
	"context"
	"testing"

	"loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
)

func TestTransition_CreateAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransitionRepository(db)
	ctx := context.Background()

	recs := []*transition.Record{
		{TransitionID: "t1", LoanID: 7, FromStatus: "", ToStatus: loan.StatusPending, ActorID: "u1"},
		{TransitionID: "t2", LoanID: 7, FromStatus: loan.StatusPending, ToStatus: loan.StatusReviewed, ActorID: "u2"},
		{TransitionID: "t3", LoanID: 8, FromStatus: "", ToStatus: loan.StatusPending},
	}
	for _, r := range recs {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", r.TransitionID, err)
		}
	}

	got, err := repo.ListByLoanID(ctx, 7)
	if err != nil {
		t.Fatalf("ListByLoanID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].TransitionID != "t1" || got[1].ToStatus != loan.StatusReviewed || got[1].ActorID != "u2" {
		t.Fatalf("unexpected records: %+v", got)
	}

	none, err := repo.ListByLoanID(ctx, 99)
	if err != nil {
		t.Fatalf("ListByLoanID(99): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no records, got %+v", none)
	}
}
