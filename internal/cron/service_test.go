package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/pkg/logger"
)

type memoryLock struct {
	held     bool
	released int
}

func (l *memoryLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *memoryLock) Release(context.Context) error {
	l.held = false
	l.released++
	return nil
}

type countingJob struct {
	name        string
	err         error
	runs        int
	hadDeadline bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	_, j.hadDeadline = ctx.Deadline()
	return j.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Interval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsEveryJobAndJoinsFailures(t *testing.T) {
	ok := &countingJob{name: "ledger-reconcile"}
	failing := &countingJob{name: "ledger-export", err: errors.New("warehouse down")}
	last := &countingJob{name: "outbox-retention"}
	lock := &memoryLock{}

	err := newTestService(t, lock, ok, failing, last).RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger-export: warehouse down")
	assert.Equal(t, []int{1, 1, 1}, []int{ok.runs, failing.runs, last.runs})
	assert.True(t, ok.hadDeadline, "jobs run under a timeout")
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.released)
}

func TestRunOnceSkipsWhileLockHeld(t *testing.T) {
	job := &countingJob{name: "only"}

	err := newTestService(t, &memoryLock{held: true}, job).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, job.runs)
}

func TestRunJobRunsOnlyTheNamedJob(t *testing.T) {
	boom := errors.New("boom")
	target := &countingJob{name: "target", err: boom}
	other := &countingJob{name: "other"}
	lock := &memoryLock{}
	svc := newTestService(t, lock, other, target)

	assert.ErrorIs(t, svc.RunJob(context.Background(), "target"), boom)
	assert.Equal(t, 1, target.runs)
	assert.Zero(t, other.runs)
	assert.False(t, lock.held)

	assert.ErrorContains(t, svc.RunJob(context.Background(), "missing"), "unknown cron job")

	lock.held = true
	assert.ErrorIs(t, svc.RunJob(context.Background(), "target"), ErrLockHeld)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "tick"}
	svc := newTestService(t, &memoryLock{}, job)
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
	assert.GreaterOrEqual(t, job.runs, 2)
}

func TestNewServiceDefaults(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &memoryLock{}})
	require.Error(t, err)

	svc, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard}), Lock: &memoryLock{}})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, svc.Interval)
	assert.Equal(t, 2*time.Minute, svc.JobTimeout)
	assert.NotNil(t, svc.Registry)
}
