package audit

import "context"

// Store is the durable sink for audit entries. The orchestrator only ever
// writes; reads exist for the admin trace endpoint and tests.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByReference(ctx context.Context, referenceID string) ([]Entry, error)
}
