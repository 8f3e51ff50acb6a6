package task

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestJob(fn func(ctx context.Context) error) JobFunc {
	if fn == nil {
		fn = func(context.Context) error { return nil }
	}
	return JobFunc{JobID: uuid.New(), Fn: fn}
}

func TestNewJobQueue(t *testing.T) {
	queue := NewJobQueue(10, setupTestLogger())

	assert.Equal(t, 10, queue.Cap())
	assert.Equal(t, 0, queue.Len())
	assert.False(t, queue.closed)

	assert.Equal(t, 1, NewJobQueue(0, nil).Cap(), "non-positive size is raised to 1")
}

func TestJobQueueEnqueue(t *testing.T) {
	queue := NewJobQueue(2, setupTestLogger())

	require.NoError(t, queue.Enqueue(newTestJob(nil)))
	require.NoError(t, queue.Enqueue(newTestJob(nil)))
	assert.Equal(t, 2, queue.Len())

	err := queue.Enqueue(newTestJob(nil))
	assert.ErrorIs(t, err, ErrQueueFull)

	queue.Close()
	assert.ErrorIs(t, queue.Enqueue(newTestJob(nil)), ErrQueueClosed)
}

func TestJobQueueCloseKeepsBufferedJobs(t *testing.T) {
	queue := NewJobQueue(3, setupTestLogger())
	first := newTestJob(nil)
	second := newTestJob(nil)
	require.NoError(t, queue.Enqueue(first))
	require.NoError(t, queue.Enqueue(second))

	queue.Close()
	queue.Close()

	var got []uuid.UUID
	for job := range queue.Channel() {
		got = append(got, job.ID())
	}
	assert.Equal(t, []uuid.UUID{first.ID(), second.ID()}, got)
}

func TestJobFunc(t *testing.T) {
	called := false
	job := newTestJob(func(context.Context) error {
		called = true
		return nil
	})

	assert.NotEqual(t, uuid.Nil, job.ID())
	require.NoError(t, job.Execute(context.Background()))
	assert.True(t, called)
}
