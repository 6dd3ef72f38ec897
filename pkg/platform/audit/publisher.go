package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"verity/pkg/requestcontext"
)

// Metrics is the minimal observability hook the pipeline needs. Nil-safe at
// every call site so tests can skip wiring.
type Metrics interface {
	IncAuditEmitted()
	IncAuditDropped()
	IncAuditRetried()
}

// Publisher accepts audit entries from the verification critical path and
// hands them to the background worker through a bounded inbox. Emit never
// blocks indefinitely and never fails the caller: when the inbox is full the
// entry is dropped with a degraded-mode warning, because the verification
// outcome is authoritative even if its audit trail is temporarily degraded.
type Publisher struct {
	inbox   chan Entry
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewPublisher creates a publisher with the given inbox capacity.
func NewPublisher(buffer int, logger *slog.Logger, metrics Metrics) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:   make(chan Entry, buffer),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Inbox exposes the channel the worker drains.
func (p *Publisher) Inbox() <-chan Entry {
	return p.inbox
}

// Emit enriches and enqueues an entry. Trace ID comes from the active span,
// correlation metadata from the request context.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = p.now()
	}
	if entry.TraceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			entry.TraceID = sc.TraceID().String()
		} else {
			entry.TraceID = requestcontext.RequestID(ctx)
		}
	}
	if entry.Channel == "" {
		entry.Channel = requestcontext.Channel(ctx)
	}

	select {
	case p.inbox <- entry:
		if p.metrics != nil {
			p.metrics.IncAuditEmitted()
		}
	default:
		if p.metrics != nil {
			p.metrics.IncAuditDropped()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit inbox full, entry dropped",
				"operation", entry.Operation,
				"reference_id", entry.ReferenceID,
			)
		}
	}
}
