// This file implements the auto updater: a background loop that keeps a
// cached value fresh without waiting for a reader to hit a miss.

package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("refresh: interval must be positive")

/*
Updater is what the scheduler refreshes. A cached provider implements it;
Update re-validates the value against the refresh TTL and calls the producer
if it has gone stale.
*/
type Updater interface {
	Update(ctx context.Context) error
}

// Config describes one run of the scheduler.
type Config struct {

	// Interval between ticks. Required.
	Interval time.Duration

	// ShouldContinue is polled once per tick before refreshing. Returning
	// false stops the scheduler without refreshing on that tick.
	ShouldContinue func() bool

	// OnError receives refresh failures. If nil, failures are logged and dropped.
	OnError func(error)
}

/*
Scheduler calls Updater.Update on a fixed interval.

States: stopped → Start → running → Stop (or ShouldContinue returns false) → stopped.
A stopped scheduler can be started again. A failed refresh never stops it.
*/
type Scheduler struct {
	updater Updater

	mu      sync.Mutex
	current *run

	// wg tracks every loop goroutine, including ones already told to stop.
	wg sync.WaitGroup
}

type run struct {
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler for u.
func NewScheduler(u Updater) *Scheduler {
	return &Scheduler{updater: u}
}

// Start begins refreshing every cfg.Interval. A running schedule is stopped first.
func (s *Scheduler) Start(cfg Config) error {
	if cfg.Interval <= 0 {
		return ErrInvalidInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel}

	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.current = r
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx, r, cfg)
	return nil
}

// Stop ends the current schedule. An Update already in flight is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}

// IsRunning reports whether a schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Wait blocks until every loop started so far has exited. Call it after Stop.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, r *run, cfg Config) {
	defer s.wg.Done()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Stop may have raced with the tick.
		if ctx.Err() != nil {
			return
		}

		if cfg.ShouldContinue != nil && !cfg.ShouldContinue() {
			s.finish(r)
			return
		}

		if err := s.tick(); err != nil {
			if cfg.OnError != nil {
				cfg.OnError(err)
			} else if glog.V(2) {
				glog.Infof("refresh: update failed: %v", err)
			}
		}
	}
}

// finish moves the scheduler to stopped unless r was already replaced.
func (s *Scheduler) finish(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.cancel()
	if s.current == r {
		s.current = nil
	}
}

// tick runs one refresh, turning a panic into an error so the loop survives it.
// The refresh gets its own context: stopping the schedule does not cancel it.
func (s *Scheduler) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh: update panicked: %v", r)
		}
	}()
	return s.updater.Update(context.Background())
}
