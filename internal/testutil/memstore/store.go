// Package memstore is an in-memory loan store for tests. It takes no row
// locks: the status compare-and-swap in UpdateStatus is its only write guard,
// which makes it suitable for exercising lost-update races.
package memstore

import (
	"context"
	"sync"
	"time"

	"loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
	"loanflow/internal/domain/uow"
)

var (
	_ loan.Repository       = (*Store)(nil)
	_ transition.Repository = (*Transitions)(nil)
	_ uow.UnitOfWork        = (*Store)(nil)
)

type Store struct {
	mu      sync.Mutex
	seq     uint64
	loans   map[string]*loan.Loan
	order   []string
	records []transition.Record

	// AfterRead, when set, runs after every loan read with the loan id.
	// Tests use it as a barrier to line up concurrent readers.
	AfterRead func(loanID string)
}

func New() *Store { return &Store{loans: map[string]*loan.Loan{}} }

func (s *Store) Create(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[l.LoanID]; ok {
		return loan.ErrConflict
	}
	s.seq++
	now := time.Now().UTC()
	l.ID = s.seq
	l.CreatedAt, l.UpdatedAt = now, now
	cp := *l
	s.loans[l.LoanID] = &cp
	s.order = append(s.order, l.LoanID)
	return nil
}

func (s *Store) GetByLoanID(_ context.Context, loanID string) (*loan.Loan, error) {
	s.mu.Lock()
	l, ok := s.loans[loanID]
	var cp loan.Loan
	if ok {
		cp = *l
	}
	s.mu.Unlock()

	if s.AfterRead != nil {
		s.AfterRead(loanID)
	}
	if !ok {
		return nil, loan.ErrNotFound
	}
	return &cp, nil
}

func (s *Store) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return s.GetByLoanID(ctx, loanID)
}

func (s *Store) UpdateStatus(_ context.Context, loanID string, from, to loan.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok || l.Status != from {
		return false, nil
	}
	now := time.Now().UTC()
	l.Status = to
	l.StatusUpdatedAt, l.UpdatedAt = now, now
	return true, nil
}

func (s *Store) List(_ context.Context) ([]loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]loan.Loan, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.loans[id])
	}
	return out, nil
}

// Transitions is the transition-record view of a Store.
type Transitions struct{ s *Store }

func (s *Store) Transitions() *Transitions { return &Transitions{s: s} }

func (t *Transitions) Create(_ context.Context, r *transition.Record) error {
	t.s.createRecord(r)
	return nil
}

func (t *Transitions) ListByLoanID(_ context.Context, loanNumericID uint64) ([]transition.Record, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []transition.Record{}
	for _, r := range s.records {
		if r.LoanID == loanNumericID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Records returns a copy of every stored transition record.
func (s *Store) Records() []transition.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transition.Record(nil), s.records...)
}

func (s *Store) createRecord(r *transition.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uint64(len(s.records) + 1)
	r.CreatedAt = time.Now().UTC()
	s.records = append(s.records, *r)
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	t := &tx{s: s}
	if err := fn(uow.Repos{Loans: t, Transitions: &txTransitions{t: t}}); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return s.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
