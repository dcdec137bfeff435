package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	processed := make(map[string]int)
	done := make(chan struct{}, 3)

	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		processed[job.ID]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}
	q := NewQueue("test", handler, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"j1", "j2", "j3"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "email"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, processed, 3)
	for id, count := range processed {
		assert.Equal(t, 1, count, "job %s processed more than once", id)
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	succeeded := make(chan struct{})

	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return errors.New("transient failure")
		}
		close(succeeded)
		return nil
	}
	q := NewQueue("retry", handler, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "email"}))

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded after retries")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "j1"})
	require.Error(t, err)
}

func TestQueueStopWaitsForWorkers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	finished := false
	var mu sync.Mutex

	handler := func(ctx context.Context, job Job) error {
		close(started)
		<-release
		mu.Lock()
		finished = true
		mu.Unlock()
		return nil
	}
	q := NewQueue("drain", handler, QueueConfig{Workers: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "j1"}))
	<-started
	close(release)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished)
}
