package poller

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Tick identifies one polling cycle.
type Tick struct {
	// ID is a random identifier used to correlate log lines of one cycle.
	ID string

	// Seq is the 1-based cycle number since Start.
	Seq uint64

	// StartedAt is when the cycle began.
	StartedAt time.Time
}

// Job is a unit of work started once per tick.
//
// Run receives the scheduler's context, which is cancelled by
// [Scheduler.Stop]. A non-nil error is reported on [Scheduler.Results]; it
// never affects other jobs or later ticks.
type Job struct {
	Name string
	Run  func(ctx context.Context, tick Tick) error
}

// JobResult is the outcome of one job run.
type JobResult struct {
	Tick     Tick
	Job      string
	Duration time.Duration
	Err      error
}

// Scheduler starts every job once per tick: immediately on Start, then every
// interval until stopped.
//
// Jobs of a tick run in their own goroutines and are not awaited before the
// next tick, so a slow job may still be in flight when the following tick
// starts the same job again. Each run reports a [JobResult] on
// [Scheduler.Results]; runs still finishing during Stop may not.
//
// Start and Stop may be called from any goroutine.
type Scheduler struct {
	jobs     []Job
	interval time.Duration
	client   *Client
	results  chan JobResult
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	running  bool
	finished bool
	closed   sync.Once

	ticks atomic.Uint64
}

// NewScheduler returns an idle [Scheduler] for jobs.
//
// client, when non-nil, has its idle connections released by
// [Scheduler.Stop]. logger receives tick and panic events.
func NewScheduler(jobs []Job, interval time.Duration, client *Client, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		interval: interval,
		client:   client,
		results:  make(chan JobResult, 4*len(jobs)),
		logger:   logger,
	}
}

// Results returns a receive-only channel that emits [JobResult] values.
//
// The channel is closed once the scheduler has stopped and every in-flight
// job has returned. Consumers should read until it is closed.
func (s *Scheduler) Results() <-chan JobResult {
	return s.results
}

// Ticks returns the number of ticks started so far.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Start runs the first tick now and one more every interval, in the
// background, until ctx is cancelled or [Scheduler.Stop] is called.
//
// Only the first call has an effect, and none after Stop. A nil ctx is
// treated as context.Background().
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.finished {
		s.mu.Unlock()
		return
	}
	s.running = true

	runCtx, cancel := context.WithCancel(cmp.Or(ctx, context.Background()))
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		var inflight sync.WaitGroup
		defer func() {
			// results may only be closed once no job can send any more
			inflight.Wait()
			s.closeResults()
		}()

		s.tick(runCtx, &inflight)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.tick(runCtx, &inflight)
			}
		}
	}()
}

// Stop cancels in-flight jobs and returns once they have all finished and
// Results is closed. It may be called any number of times, before or after
// Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.finished = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.client.Close()
	s.closeResults() // Start may never have run
}

func (s *Scheduler) closeResults() {
	s.closed.Do(func() { close(s.results) })
}

// tick starts every job without waiting for any of them.
func (s *Scheduler) tick(ctx context.Context, inflight *sync.WaitGroup) {
	t := Tick{
		ID:        uuid.NewString(),
		Seq:       s.ticks.Add(1),
		StartedAt: time.Now(),
	}
	s.logger.Debug("tick started", "tick", t.ID, "seq", t.Seq, "jobs", len(s.jobs))

	for _, job := range s.jobs {
		inflight.Add(1)
		go func(job Job) {
			defer inflight.Done()

			start := time.Now()
			err := s.safeRun(ctx, job, t)
			result := JobResult{
				Tick:     t,
				Job:      job.Name,
				Duration: time.Since(start),
				Err:      err,
			}

			select {
			case s.results <- result:
			case <-ctx.Done():
			}
		}(job)
	}
}

// safeRun runs job, turning a panic into an error. The stack is only
// logged; the error carries a correlation ID pointing at that log line.
func (s *Scheduler) safeRun(ctx context.Context, job Job, t Tick) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		id := uuid.NewString()
		s.logger.Error("job panic",
			"correlation_id", id,
			"job", job.Name,
			"tick", t.ID,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()),
		)
		err = fmt.Errorf("job panic (correlation_id: %s)", id)
	}()
	return job.Run(ctx, t)
}
