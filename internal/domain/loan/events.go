package loan

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated  EventType = "loan.created"
	EventReviewed EventType = "loan.reviewed"
	EventApproved EventType = "loan.approved"
)

type Event struct {
	Type       EventType `json:"type"`
	LoanID     string    `json:"loan_id"`
	Status     Status    `json:"status"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
