package reactor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsComputeAndInvokesOnDone(t *testing.T) {
	var mu sync.Mutex
	var results [][]byte

	pool := newWorkerPool(2, nil, func(result []byte, err error, continuation func([]byte, error)) {
		require.NoError(t, err)
		mu.Lock()
		results = append(results, result)
		mu.Unlock()
		continuation(result, err)
	})
	defer pool.Close()

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		i := i
		pool.Submit(&task{
			compute:      func() ([]byte, error) { return []byte{byte(i)}, nil },
			continuation: func([]byte, error) { wg.Done() },
		})
	}

	require.Eventually(t, func() bool {
		wg.Wait()
		return true
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, results, 3)
}

func TestWorkerPoolRecoversPanickingTask(t *testing.T) {
	done := make(chan error, 1)
	pool := newWorkerPool(1, nil, func(result []byte, err error, continuation func([]byte, error)) {
		continuation(result, err)
	})
	defer pool.Close()

	pool.Submit(&task{
		compute: func() ([]byte, error) { panic("boom") },
		continuation: func(_ []byte, err error) {
			done <- err
		},
	})

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTaskPanicked))
	case <-time.After(time.Second):
		t.Fatal("panicking task never reported through onDone")
	}
}

func TestWorkerPoolCloseJoinsAllWorkers(t *testing.T) {
	var active atomic.Int32
	pool := newWorkerPool(4, nil, nil)

	for i := 0; i < 4; i++ {
		pool.Submit(&task{
			compute: func() ([]byte, error) {
				active.Add(1)
				return nil, nil
			},
		})
	}

	require.Eventually(t, func() bool { return active.Load() == 4 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		pool.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close never returned")
	}
}

func TestWorkerPoolDefaultsToOneWorkerWhenNIsNonPositive(t *testing.T) {
	pool := newWorkerPool(0, nil, nil)
	defer pool.Close()
	assert.Equal(t, 1, pool.n)
}
