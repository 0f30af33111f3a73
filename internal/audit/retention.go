package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"officiating-platform/internal/metrics"
)

// RetentionPolicy governs how long audit records are kept and how they are
// archived and purged. Loaded once at startup.
type RetentionPolicy struct {
	RetentionDays  int
	BatchSize      int
	ArchiveEnabled bool
	ArchiveDir     string
	// BatchPause spaces delete batches to bound database load.
	BatchPause time.Duration
}

// JobLocker is a cross-instance mutual exclusion primitive for the
// retention job. utils.JobLock implements it over redis.
type JobLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const retentionLockKey = "audit:retention:lock"

// RetentionJob archives and purges audit records older than the retention
// horizon. Archival writes the snapshot file before the delete transaction
// commits; a crash in between leaves records both archived and present,
// never deleted-but-unarchived.
type RetentionJob struct {
	Store  Store
	Policy RetentionPolicy
	Lock   JobLocker
	Log    *slog.Logger
	Now    func() time.Time

	running atomic.Bool
}

func NewRetentionJob(store Store, policy RetentionPolicy, lock JobLocker, log *slog.Logger) *RetentionJob {
	return &RetentionJob{Store: store, Policy: policy, Lock: lock, Log: log, Now: time.Now}
}

// Run executes one retention pass. A concurrent call while one is in
// progress is a no-op, logged rather than queued.
func (j *RetentionJob) Run(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		j.Log.Info("retention run already in progress, skipping")
		return nil
	}
	defer j.running.Store(false)

	if j.Lock != nil {
		ok, err := j.Lock.Acquire(ctx, retentionLockKey, 15*time.Minute)
		if err != nil {
			return fmt.Errorf("audit: acquire retention lock: %w", err)
		}
		if !ok {
			j.Log.Info("retention lock held by another instance, skipping")
			return nil
		}
		defer func() {
			if err := j.Lock.Release(context.WithoutCancel(ctx), retentionLockKey); err != nil {
				j.Log.Warn("retention lock release failed", "err", err)
			}
		}()
	}

	cutoff := j.Now().UTC().AddDate(0, 0, -j.Policy.RetentionDays)

	var archived int
	if j.Policy.ArchiveEnabled {
		n, path, err := j.archive(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("audit: archive before delete: %w", err)
		}
		archived = n
		if n > 0 {
			j.Log.Info("audit records archived", "count", n, "file", path)
		}
	}

	deleted, err := j.Store.DeleteExpired(ctx, cutoff, j.Policy.BatchSize, j.Policy.BatchPause)
	if err != nil {
		return fmt.Errorf("audit: purge expired: %w", err)
	}
	metrics.RetentionDeletedTotal.Add(float64(deleted))

	j.Log.Info("retention run completed",
		"cutoff", cutoff,
		"archived", archived,
		"deleted", deleted,
	)
	return nil
}

// archive streams expired records in batches into one timestamped JSONL
// snapshot. No file is created when nothing has expired.
func (j *RetentionJob) archive(ctx context.Context, cutoff time.Time) (int, string, error) {
	batch, err := j.Store.FetchExpired(ctx, cutoff, j.Policy.BatchSize, 0)
	if err != nil {
		return 0, "", err
	}
	if len(batch) == 0 {
		return 0, "", nil
	}

	if err := os.MkdirAll(j.Policy.ArchiveDir, 0o750); err != nil {
		return 0, "", fmt.Errorf("create archive dir: %w", err)
	}
	name := fmt.Sprintf("audit-archive-%s.jsonl", j.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(j.Policy.ArchiveDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return 0, "", fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	total := 0
	offset := 0
	for len(batch) > 0 {
		for _, rec := range batch {
			if err := enc.Encode(rec); err != nil {
				return total, path, fmt.Errorf("write archive record: %w", err)
			}
		}
		total += len(batch)
		if len(batch) < j.Policy.BatchSize {
			break
		}
		offset += len(batch)
		batch, err = j.Store.FetchExpired(ctx, cutoff, j.Policy.BatchSize, offset)
		if err != nil {
			return total, path, err
		}
	}

	if err := w.Flush(); err != nil {
		return total, path, fmt.Errorf("flush archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return total, path, fmt.Errorf("sync archive: %w", err)
	}
	return total, path, nil
}

// Start runs the job on a fixed interval until ctx is cancelled.
// Failures are logged and leave state unchanged for the next tick.
func (j *RetentionJob) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := j.Run(ctx); err != nil {
					j.Log.Error("retention run failed", "err", err)
				}
			}
		}
	}()
}
