package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"officiating-platform/internal/metrics"

	"github.com/google/uuid"
)

// Store is the persistence contract for audit records.
// It MUST be append-only on the write path; deletion happens only through
// the retention job.
type Store interface {
	// Provision creates the backing schema. Called once at startup, before
	// traffic, so the write path needs no existence checks.
	Provision(ctx context.Context) error
	Insert(ctx context.Context, rec Record) error
	// FetchExpired pages records older than cutoff, oldest first.
	FetchExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]Record, error)
	// DeleteExpired removes records older than cutoff in batches of
	// batchSize inside one transaction, pausing between batches.
	DeleteExpired(ctx context.Context, cutoff time.Time, batchSize int, pause time.Duration) (int64, error)
}

// Recorder persists audit records through a bounded background queue.
//
// Record never blocks and never returns an error: a full queue drops the
// record with a logged warning, and insert failures are logged, not
// propagated. The worker runs on a detached context so a client disconnect
// cannot suppress an already-enqueued record.
type Recorder struct {
	store Store
	log   *slog.Logger
	clock func() time.Time

	queue chan Record
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type RecorderOptions struct {
	QueueSize     int
	InsertTimeout time.Duration
}

func NewRecorder(store Store, log *slog.Logger, opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.InsertTimeout <= 0 {
		opts.InsertTimeout = 5 * time.Second
	}
	r := &Recorder{
		store: store,
		log:   log,
		clock: time.Now,
		queue: make(chan Record, opts.QueueSize),
	}
	r.wg.Add(1)
	go r.worker(opts.InsertTimeout)
	return r
}

// Record redacts, stamps and enqueues one record. Safe for concurrent use.
func (r *Recorder) Record(rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock().UTC()
	}
	if rec.Severity == "" {
		rec.Severity = SeverityLow
	}

	// Redact before the record leaves this call; nothing sensitive may sit
	// in the queue or reach the store.
	rec.OldValues = Redact(rec.OldValues)
	rec.NewValues = Redact(rec.NewValues)
	rec.AdditionalData = Redact(rec.AdditionalData)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Warn("audit record after close dropped", "event_type", rec.EventType)
		return
	}
	select {
	case r.queue <- rec:
	default:
		metrics.AuditDroppedTotal.Inc()
		r.log.Warn("audit queue full, record dropped", "event_type", rec.EventType)
	}
}

func (r *Recorder) worker(insertTimeout time.Duration) {
	defer r.wg.Done()
	for rec := range r.queue {
		// Detached from any request context: the audit trail outlives the
		// request that produced it.
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := r.store.Insert(ctx, rec); err != nil {
			r.log.Error("audit insert failed", "err", err, "event_type", rec.EventType, "record_id", rec.ID)
		}
		cancel()
	}
}

// Close stops accepting new records and flushes the queue, bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
