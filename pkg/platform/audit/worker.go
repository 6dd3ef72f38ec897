package audit

import (
	"context"
	"log/slog"
	"time"

	"verity/pkg/platform/circuit"
)

// Worker consumes audit entries from the publisher inbox and persists them
// with bounded retry. A circuit breaker turns a persistently failing sink
// into fast drops with warnings instead of a backlog that stalls the inbox.
type Worker struct {
	store   Store
	inbox   <-chan Entry
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics Metrics

	maxAttempts int
	baseBackoff time.Duration
}

// NewWorker creates a worker draining inbox into store. Retries are bounded:
// three attempts with doubling backoff, then the entry is dropped and
// surfaced as an operational warning.
func NewWorker(store Store, inbox <-chan Entry, logger *slog.Logger, metrics Metrics) *Worker {
	return &Worker{
		store:       store,
		inbox:       inbox,
		breaker:     circuit.New("audit-sink"),
		logger:      logger,
		metrics:     metrics,
		maxAttempts: 3,
		baseBackoff: 50 * time.Millisecond,
	}
}

// Run drains the inbox until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.persist(ctx, entry)
		}
	}
}

func (w *Worker) persist(ctx context.Context, entry Entry) {
	if w.breaker.IsOpen() {
		// Probe with a single attempt so the breaker can close again.
		if err := w.store.Append(ctx, entry); err != nil {
			w.breaker.RecordFailure()
			w.drop(ctx, entry, err)
			return
		}
		w.breaker.RecordSuccess()
		return
	}

	var lastErr error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			if w.metrics != nil {
				w.metrics.IncAuditRetried()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.baseBackoff << (attempt - 1)):
			}
		}
		lastErr = w.store.Append(ctx, entry)
		if lastErr == nil {
			w.breaker.RecordSuccess()
			return
		}
	}

	if _, change := w.breaker.RecordFailure(); change.Opened && w.logger != nil {
		w.logger.ErrorContext(ctx, "audit sink circuit opened", "sink", w.breaker.Name())
	}
	w.drop(ctx, entry, lastErr)
}

func (w *Worker) drop(ctx context.Context, entry Entry, err error) {
	if w.metrics != nil {
		w.metrics.IncAuditDropped()
	}
	if w.logger != nil {
		w.logger.WarnContext(ctx, "audit entry dropped after retries",
			"operation", entry.Operation,
			"reference_id", entry.ReferenceID,
			"error", err,
		)
	}
}
