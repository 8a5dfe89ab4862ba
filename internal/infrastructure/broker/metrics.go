package broker

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"loanflow/internal/domain/loan"
)

var loanEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "loan_events_total",
	Help: "Committed loan lifecycle events by type and publish outcome.",
}, []string{"type", "outcome"})

// Counting counts every event handed to next, including failed publishes.
type Counting struct{ next loan.Publisher }

func NewCounting(next loan.Publisher) *Counting { return &Counting{next: next} }

func (c *Counting) Publish(ctx context.Context, ev loan.Event) error {
	err := c.next.Publish(ctx, ev)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	loanEventsTotal.WithLabelValues(string(ev.Type), outcome).Inc()
	return err
}
