// internal/utils/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sonia-Koppisetti/SolStake/internal/events"
	"github.com/Sonia-Koppisetti/SolStake/internal/journal"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

// Subscribe feeds operation and audit events from bus into the collector
// and exports the bus drop counter.
func (c *Collector) Subscribe(bus *events.Bus) events.Subscription {
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events the bus dropped because its buffer was full",
	}, func() float64 { return float64(bus.Stats().Dropped) })
	// повторная подписка оставляет первый счётчик
	_ = c.registry.Register(dropped)

	return bus.SubscribeFunc(events.AnyEvent, func(_ context.Context, e events.Event) error {
		c.Observe(e)
		return nil
	})
}

// Observe records a single event.
func (c *Collector) Observe(e events.Event) {
	switch ev := e.(type) {
	case events.OperationCommittedEvent:
		c.operations.WithLabelValues(ev.Operation, journal.OutcomeCommitted).Inc()
	case events.OperationRejectedEvent:
		c.operations.WithLabelValues(ev.Operation, journal.OutcomeRejected).Inc()
	case events.TransferUnconfirmedEvent:
		c.operations.WithLabelValues(ev.Operation, journal.OutcomeUnconfirmed).Inc()
	case events.ReserveShortfallEvent:
		c.reserveShortfall.WithLabelValues(ev.PoolAddress.String()).Set(float64(ev.Liability - ev.Available))
	case events.AuditCompletedEvent:
		c.auditPools.Set(float64(ev.Pools))
		c.auditShortfalls.Set(float64(ev.Shortfalls))
		c.auditFailures.Set(float64(ev.Failures))
		c.auditDuration.Set(ev.Duration.Seconds())
	}
}

// RecordTransfer записывает метрики перевода
func (c *Collector) RecordTransfer(ctx context.Context, duration time.Duration, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, staking.ErrTransferUnconfirmed):
		status = "unconfirmed"
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		status = "cancelled"
	default:
		status = "failed"
	}
	c.transfers.WithLabelValues(status).Inc()
	c.transferDuration.Observe(duration.Seconds())
}

// InstrumentGateway wraps g so every transfer is counted and timed.
func (c *Collector) InstrumentGateway(g staking.Gateway) staking.Gateway {
	return &instrumentedGateway{next: g, collector: c}
}

type instrumentedGateway struct {
	next      staking.Gateway
	collector *Collector
}

func (g *instrumentedGateway) Transfer(ctx context.Context, t staking.Transfer) error {
	start := time.Now()
	err := g.next.Transfer(ctx, t)
	g.collector.RecordTransfer(ctx, time.Since(start), err)
	return err
}
