package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/pkg/requestcontext"
)

type recordingStore struct {
	mu      sync.Mutex
	entries []Entry
	failFor int
	calls   int
}

func (s *recordingStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFor {
		return errors.New("sink down")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingStore) ListByReference(_ context.Context, ref string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ReferenceID == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestPublisher_EnrichesEntries(t *testing.T) {
	p := NewPublisher(4, nil, nil)
	ctx := requestcontext.WithChannel(requestcontext.WithRequestID(context.Background(), "req-1"), "mobile")

	p.Emit(ctx, Entry{ReferenceID: "ref", Operation: OpEkycInitiated, Outcome: OutcomeSuccess})

	select {
	case e := <-p.Inbox():
		assert.NotZero(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, "req-1", e.TraceID)
		assert.Equal(t, "mobile", e.Channel)
	default:
		t.Fatal("entry not enqueued")
	}
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	p := NewPublisher(1, nil, nil)
	ctx := context.Background()

	p.Emit(ctx, Entry{ReferenceID: "a", Operation: OpEkycInitiated})
	// Inbox is full; this must not block or panic.
	done := make(chan struct{})
	go func() {
		p.Emit(ctx, Entry{ReferenceID: "b", Operation: OpEkycInitiated})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
}

func TestWorker_PersistsEntries(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(8, nil, nil)
	w := NewWorker(store, p.Inbox(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	p.Emit(ctx, Entry{ReferenceID: "ref", Operation: OpOtpDispatched, Outcome: OutcomeSuccess})

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
	entries, err := store.ListByReference(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, OpOtpDispatched, entries[0].Operation)
}

func TestWorker_RetriesThenSucceeds(t *testing.T) {
	store := &recordingStore{failFor: 2}
	p := NewPublisher(8, nil, nil)
	w := NewWorker(store, p.Inbox(), nil, nil)
	w.baseBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	p.Emit(ctx, Entry{ReferenceID: "ref", Operation: OpOtpVerified})

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWorker_DropsAfterBoundedRetries(t *testing.T) {
	store := &recordingStore{failFor: 1 << 30}
	p := NewPublisher(8, nil, nil)
	w := NewWorker(store, p.Inbox(), nil, nil)
	w.baseBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	p.Emit(ctx, Entry{ReferenceID: "ref", Operation: OpOtpVerified})

	// The entry is dropped; the sink keeps seeing only bounded attempts.
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.calls >= 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, store.count())
}
