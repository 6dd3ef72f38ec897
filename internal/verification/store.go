package verification

import (
	"context"
	"time"
)

// Store persists verification requests. Interface-driven so the orchestrator
// stays testable and the storage engine swappable.
type Store interface {
	Save(ctx context.Context, request *Request) error
	FindByReference(ctx context.Context, referenceID string) (*Request, error)
	// FindExpired returns requests whose last transition predates the cutoff
	// and whose status is terminal but not yet ARCHIVED. Retention input.
	FindExpired(ctx context.Context, before time.Time) ([]*Request, error)
}
