package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

type fakeLocker struct {
	held       bool
	acquireErr error
	acquires   int
	releases   int
	lastScope  string
}

func (f *fakeLocker) AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error) {
	f.acquires++
	f.lastScope = scope
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, scope string) error {
	f.releases++
	f.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string              { return j.name }
func (j *countingJob) Schedule() string          { return "@every 1m" }
func (j *countingJob) Run(context.Context) error { j.runs++; return j.err }

func newTestScheduler(t *testing.T, lock *fakeLocker) *Scheduler {
	t.Helper()
	scheduler, err := NewScheduler(SchedulerParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Locker: lock,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return scheduler
}

func TestRunJobAcquiresAndReleasesLock(t *testing.T) {
	lock := &fakeLocker{}
	scheduler := newTestScheduler(t, lock)
	job := &countingJob{name: "sync"}

	scheduler.runJob(context.Background(), job)

	if job.runs != 1 {
		t.Fatalf("expected job to run once, ran %d", job.runs)
	}
	if lock.lastScope != "cron:sync" {
		t.Fatalf("unexpected lock scope %q", lock.lastScope)
	}
	if lock.releases != 1 {
		t.Fatalf("lock must be released, releases=%d", lock.releases)
	}
}

func TestRunJobSkipsWhenLockHeldElsewhere(t *testing.T) {
	lock := &fakeLocker{held: true}
	scheduler := newTestScheduler(t, lock)
	job := &countingJob{name: "sync"}

	scheduler.runJob(context.Background(), job)

	if job.runs != 0 {
		t.Fatalf("job must not run while another worker holds the lock, ran %d", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("a lock we never took must not be released, releases=%d", lock.releases)
	}
}

func TestRunJobSkipsOnLockError(t *testing.T) {
	lock := &fakeLocker{acquireErr: errors.New("redis down")}
	scheduler := newTestScheduler(t, lock)
	job := &countingJob{name: "sync"}

	scheduler.runJob(context.Background(), job)

	if job.runs != 0 {
		t.Fatalf("job must not run when lock acquisition fails, ran %d", job.runs)
	}
}

func TestRunJobReleasesLockAfterFailure(t *testing.T) {
	lock := &fakeLocker{}
	scheduler := newTestScheduler(t, lock)
	job := &countingJob{name: "sync", err: errors.New("boom")}

	scheduler.runJob(context.Background(), job)

	if job.runs != 1 {
		t.Fatalf("expected job to run once, ran %d", job.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock must be released after a failed run, releases=%d", lock.releases)
	}
}
