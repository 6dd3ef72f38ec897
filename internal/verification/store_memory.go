package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"verity/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in memory for tests and single-process
// deployments. It intentionally favors clarity over performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[string]*Request)}
}

func (s *InMemoryStore) Save(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *request
	if request.Challenge != nil {
		ch := *request.Challenge
		cp.Challenge = &ch
	}
	s.requests[request.ReferenceID] = &cp
	return nil
}

func (s *InMemoryStore) FindByReference(_ context.Context, referenceID string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[referenceID]
	if !ok {
		return nil, fmt.Errorf("request %q: %w", referenceID, sentinel.ErrNotFound)
	}
	cp := *req
	if req.Challenge != nil {
		ch := *req.Challenge
		cp.Challenge = &ch
	}
	return &cp, nil
}

func (s *InMemoryStore) FindExpired(_ context.Context, before time.Time) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, req := range s.requests {
		if req.Status == StatusArchived || !req.Status.Terminal() {
			continue
		}
		if req.LastTransitionAt.Before(before) {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}
