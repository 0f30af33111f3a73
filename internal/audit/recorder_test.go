package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorderStampsAndPersists(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, discardLogger(), RecorderOptions{QueueSize: 8})

	rec.Record(Record{
		EventType: EventPolicyDenied,
		ActorID:   "u1",
		Severity:  SeverityHigh,
	})
	rec.Record(Record{EventType: EventPolicyAllowed})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := store.Records()
	if len(got) != 2 {
		t.Fatalf("expected 2 records after drain, got %d", len(got))
	}
	for _, r := range got {
		if r.ID == "" {
			t.Fatalf("record id not stamped: %+v", r)
		}
		if r.CreatedAt.IsZero() {
			t.Fatalf("created_at not stamped: %+v", r)
		}
		if r.Severity == "" {
			t.Fatalf("severity not defaulted: %+v", r)
		}
	}
	if got[0].Severity != SeverityHigh {
		t.Fatalf("explicit severity overwritten: %q", got[0].Severity)
	}
	if got[1].Severity != SeverityLow {
		t.Fatalf("expected default severity low, got %q", got[1].Severity)
	}
}

func TestRecorderRedactsBeforeStore(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, discardLogger(), RecorderOptions{QueueSize: 8})

	rec.Record(Record{
		EventType: EventPolicyAllowed,
		NewValues: map[string]any{
			"password": "hunter2",
			"nested":   map[string]any{"token": "tok-1"},
		},
		AdditionalData: map[string]any{"api_key": "k"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := store.Records()
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	nv := got[0].NewValues
	if nv["password"] != RedactedValue {
		t.Fatalf("password reached store unredacted: %v", nv["password"])
	}
	if nv["nested"].(map[string]any)["token"] != RedactedValue {
		t.Fatalf("nested token reached store unredacted")
	}
	if got[0].AdditionalData["api_key"] != RedactedValue {
		t.Fatalf("api_key reached store unredacted")
	}
}

// blockingStore parks Insert until released so tests can hold the worker
// busy while filling the queue.
type blockingStore struct {
	mem     *MemoryStore
	started chan struct{}
	release chan struct{}
}

func (s *blockingStore) Provision(ctx context.Context) error { return nil }

func (s *blockingStore) Insert(ctx context.Context, rec Record) error {
	s.started <- struct{}{}
	<-s.release
	return s.mem.Insert(ctx, rec)
}

func (s *blockingStore) FetchExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]Record, error) {
	return s.mem.FetchExpired(ctx, cutoff, limit, offset)
}

func (s *blockingStore) DeleteExpired(ctx context.Context, cutoff time.Time, batchSize int, pause time.Duration) (int64, error) {
	return s.mem.DeleteExpired(ctx, cutoff, batchSize, pause)
}

func TestRecorderDropsOnFullQueueWithoutBlocking(t *testing.T) {
	store := &blockingStore{
		mem:     NewMemoryStore(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	rec := NewRecorder(store, discardLogger(), RecorderOptions{QueueSize: 1})

	// First record: the worker picks it up and parks inside Insert.
	rec.Record(Record{EventType: "t.first"})
	<-store.started

	// Second fills the queue; third has nowhere to go and must be dropped
	// without blocking the caller.
	rec.Record(Record{EventType: "t.second"})
	done := make(chan struct{})
	go func() {
		rec.Record(Record{EventType: "t.third"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Record blocked on a full queue")
	}

	close(store.release)
	go func() {
		for range store.started { // let remaining inserts proceed
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(store.started)

	got := store.mem.Records()
	if len(got) != 2 {
		t.Fatalf("expected first two records persisted, got %d", len(got))
	}
	if got[0].EventType != "t.first" || got[1].EventType != "t.second" {
		t.Fatalf("unexpected persisted order: %q, %q", got[0].EventType, got[1].EventType)
	}
}

func TestRecorderRecordAfterCloseIsNoop(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, discardLogger(), RecorderOptions{QueueSize: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Must not panic on the closed channel, and must not persist.
	rec.Record(Record{EventType: "t.late"})
	if n := len(store.Records()); n != 0 {
		t.Fatalf("expected 0 records, got %d", n)
	}
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
