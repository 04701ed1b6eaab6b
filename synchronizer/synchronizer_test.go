package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizer_SameKeyRunsInSubmissionOrder(t *testing.T) {
	s := New[string]()

	const n = 10
	var mu sync.Mutex
	var done []int
	var running atomic.Int32

	// The first operation holds the key until every submission is queued.
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), "sameKey", func(context.Context) error {
				if running.Add(1) != 1 {
					t.Errorf("operation %d overlapped another", i)
				}
				if i == 0 {
					<-gate
				}
				time.Sleep(time.Duration(n-i) * time.Millisecond)
				mu.Lock()
				done = append(done, i)
				mu.Unlock()
				running.Add(-1)
				return nil
			})
		}()
		require.Eventually(t, func() bool { return s.Pending("sameKey") == i+1 }, time.Second, time.Millisecond)
	}
	close(gate)
	wg.Wait()

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, done)
	assert.Zero(t, s.Len())
}

func TestSynchronizer_DistinctKeysRaceFreely(t *testing.T) {
	s := New[string]()

	const n = 10
	var mu sync.Mutex
	var done []int
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), fmt.Sprint(i), func(context.Context) error {
				<-gate
				time.Sleep(time.Duration(n-i) * 10 * time.Millisecond)
				mu.Lock()
				done = append(done, i)
				mu.Unlock()
				return nil
			})
		}()
	}
	require.Eventually(t, func() bool { return s.Len() == n }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	require.Len(t, done, n)
	// Later submissions sleep less, so they finish first.
	assert.Equal(t, n-1, done[0])
	assert.Equal(t, 0, done[n-1])
	assert.Zero(t, s.Len())
}

func TestSynchronizer_ParallelAcrossKeys(t *testing.T) {
	s := New[string]()

	var running atomic.Int32
	var maxRunning atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), key, func(context.Context) error {
				cur := running.Add(1)
				for {
					max := maxRunning.Load()
					if cur <= max || maxRunning.CompareAndSwap(max, cur) {
						break
					}
				}
				time.Sleep(50 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, maxRunning.Load(), int32(2))
}

func TestSynchronizer_ErrorPropagation(t *testing.T) {
	s := New[string]()

	expectedErr := errors.New("task error")
	err := s.Do(context.Background(), "key", func(context.Context) error {
		return expectedErr
	})
	assert.ErrorIs(t, err, expectedErr)

	// The chain is still usable after a failure.
	err = s.Do(context.Background(), "key", func(context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestSynchronizer_FailureDoesNotBreakQueue(t *testing.T) {
	s := New[string]()
	boom := errors.New("boom")

	gate := make(chan struct{})
	errs := make([]error, 3)
	var order []int
	var mu sync.Mutex
	record := func(i int) {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Do(context.Background(), "key", func(context.Context) error {
				if i == 0 {
					<-gate
				}
				record(i)
				if i == 1 {
					return boom
				}
				return nil
			})
		}()
		require.Eventually(t, func() bool { return s.Pending("key") == i+1 }, time.Second, time.Millisecond)
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2}, order)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.Zero(t, s.Len())
}

func TestSynchronizer_PanicReleasesKey(t *testing.T) {
	s := New[string]()

	func() {
		defer func() {
			assert.NotNil(t, recover())
		}()
		_ = s.Do(context.Background(), "key", func(context.Context) error {
			panic("producer exploded")
		})
	}()

	assert.Zero(t, s.Len())
	err := s.Do(context.Background(), "key", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestSynchronizer_RefcountTracksQueue(t *testing.T) {
	s := New[string]()

	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Do(context.Background(), "key", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), "key", func(context.Context) error { return nil })
		}()
	}

	require.Eventually(t, func() bool { return s.Pending("key") == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, s.Pending("other"))

	close(release)
	wg.Wait()

	assert.Zero(t, s.Pending("key"))
	assert.Zero(t, s.Len())
}

func TestSynchronizer_ManyKeysAreCollected(t *testing.T) {
	s := New[int]()

	var wg sync.WaitGroup
	var total atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), i%7, func(context.Context) error {
				total.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), total.Load())
	assert.Zero(t, s.Len())
}

func TestSynchronizer_CancelledBeforeSubmit(t *testing.T) {
	s := New[string]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Do(ctx, "key", func(context.Context) error {
		t.Error("task should not execute")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Len())
}

func TestSynchronizer_CancelWhileQueuedKeepsOrder(t *testing.T) {
	s := New[string]()

	release := make(chan struct{})
	started := make(chan struct{})
	var order []int
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Do(context.Background(), "key", func(context.Context) error {
			close(started)
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	<-started

	// Second submission gives up while the first is still running.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Do(ctx, "key", func(context.Context) error {
		t.Error("timed out task should not execute")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Third submission still waits for the first one.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Do(context.Background(), "key", func(context.Context) error {
			mu.Lock()
			order = append(order, 2)
			mu.Unlock()
			return nil
		})
	}()
	require.Eventually(t, func() bool { return s.Pending("key") == 3 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 2}, order)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
}

func TestRun_ReturnsValue(t *testing.T) {
	s := New[string]()

	v, err := Run(context.Background(), s, "key", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	v, err = Run(context.Background(), s, "key", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, v)
}

func TestDefault_PointerKeys(t *testing.T) {
	type owner struct{ _ int }
	a, b := &owner{}, &owner{}

	gate := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = Default.Do(context.Background(), a, func(context.Context) error {
			close(started)
			<-gate
			return nil
		})
	}()
	<-started

	// A different pointer is a different key and does not wait for a.
	err := Default.Do(context.Background(), b, func(context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, Default.Pending(a))

	close(gate)
	assert.Eventually(t, func() bool { return Default.Pending(a) == 0 }, time.Second, time.Millisecond)
}
