package loan

import (
	"context"
	"errors"
	"time"

	"loanflow/internal/domain/identity"
	domain "loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"
	"loanflow/internal/domain/uow"
	"loanflow/pkg/id"

	"go.uber.org/zap"
)

// Usecase drives the loan lifecycle. Every write runs in one unit of work and
// status changes go through a compare-and-swap on the status observed under lock.
type Usecase struct {
	tx        uow.UnitOfWork
	loans     domain.Repository
	records   transition.Repository
	publisher domain.Publisher
	log       *zap.Logger
	now       func() time.Time
}

type Option func(*Usecase)

func WithLogger(l *zap.Logger) Option { return func(u *Usecase) { u.log = l } }

func WithPublisher(p domain.Publisher) Option { return func(u *Usecase) { u.publisher = p } }

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

// NewUsecase: tx for writes, loans and records for plain reads.
func NewUsecase(tx uow.UnitOfWork, loans domain.Repository, records transition.Repository, opts ...Option) *Usecase {
	u := &Usecase{
		tx:        tx,
		loans:     loans,
		records:   records,
		publisher: domain.NopPublisher{},
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	now := u.now().UTC()
	l, err := domain.NewLoan(in.ID, in.Applicant, in.Amount, now)
	if err != nil {
		return nil, err
	}
	supplied := in.ID != ""
	if supplied && !id.Valid(in.ID) {
		return nil, domain.NewValidationError("id", "must be 1-64 characters of letters, digits, '-' or '_'")
	}
	if !supplied {
		l.LoanID = id.NewID32()
	}

	err = u.tx.WithinTx(ctx, func(r uow.Repos) error {
		if supplied {
			_, err := r.Loans.GetByLoanID(ctx, l.LoanID)
			switch {
			case err == nil:
				return domain.ErrConflict
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		return r.Transitions.Create(ctx, u.record(ctx, l.ID, "", domain.StatusPending))
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, domain.EventCreated, l)
	return toDTO(l), nil
}

func (u *Usecase) Review(ctx context.Context, loanID string) (*LoanDTO, error) {
	return u.apply(ctx, loanID, domain.Review, domain.EventReviewed)
}

func (u *Usecase) Approve(ctx context.Context, loanID string) (*LoanDTO, error) {
	return u.apply(ctx, loanID, domain.Approve, domain.EventApproved)
}

func (u *Usecase) apply(ctx context.Context, loanID string, t domain.Transition, ev domain.EventType) (*LoanDTO, error) {
	var out *domain.Loan

	err := u.tx.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if err := t.Check(l); err != nil {
			return err
		}
		ok, err := r.Loans.UpdateStatus(ctx, l.LoanID, t.From, t.To)
		if err != nil {
			return err
		}
		if !ok {
			// Another writer moved the loan after we read it.
			cur := l.Status
			fresh, err := r.Loans.GetByLoanID(ctx, l.LoanID)
			if err != nil {
				u.log.Warn("re-read after lost status update failed; reporting the locked status",
					zap.String("loan_id", l.LoanID), zap.Error(err))
			} else {
				cur = fresh.Status
			}
			return &domain.TransitionError{LoanID: l.LoanID, From: cur, To: t.To, Guard: t.Guard}
		}
		if err := r.Transitions.Create(ctx, u.record(ctx, l.ID, t.From, t.To)); err != nil {
			return err
		}
		l.Status = t.To
		l.StatusUpdatedAt = u.now().UTC()
		l.UpdatedAt = l.StatusUpdatedAt
		out = l
		return nil
	})
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			u.log.Info("loan transition rejected",
				zap.String("loan_id", loanID),
				zap.String("from", string(te.From)),
				zap.String("to", string(te.To)),
				zap.String("guard", te.Guard))
		}
		return nil, err
	}

	u.publish(ctx, ev, out)
	return toDTO(out), nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return toDTO(l), nil
}

// List returns every loan in creation order.
func (u *Usecase) List(ctx context.Context) ([]LoanDTO, error) {
	all, err := u.loans.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(all))
	for i := range all {
		out = append(out, *toDTO(&all[i]))
	}
	return out, nil
}

// History returns the transitions of a loan, oldest first.
func (u *Usecase) History(ctx context.Context, loanID string) ([]TransitionDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	recs, err := u.records.ListByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	out := make([]TransitionDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, toTransitionDTO(r))
	}
	return out, nil
}

func (u *Usecase) record(ctx context.Context, loanNumericID uint64, from, to domain.Status) *transition.Record {
	r := &transition.Record{
		TransitionID: id.NewID32(),
		LoanID:       loanNumericID,
		FromStatus:   from,
		ToStatus:     to,
	}
	if p, ok := identity.FromContext(ctx); ok {
		r.ActorID = p.Subject
	}
	return r
}

// publish runs after commit; the state change is already durable so a
// failure is only logged.
func (u *Usecase) publish(ctx context.Context, typ domain.EventType, l *domain.Loan) {
	ev := domain.Event{
		Type:       typ,
		LoanID:     l.LoanID,
		Status:     l.Status,
		OccurredAt: u.now().UTC(),
	}
	if p, ok := identity.FromContext(ctx); ok {
		ev.ActorID = p.Subject
	}
	if err := u.publisher.Publish(ctx, ev); err != nil {
		u.log.Warn("publish loan event failed",
			zap.String("event", string(typ)),
			zap.String("loan_id", l.LoanID),
			zap.Error(err))
	}
}
