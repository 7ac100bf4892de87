package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Submit when enough builds are already pending.
var ErrQueueFull = errors.New("build queue is full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("orchestrator stopped")

// RunStatus is the state of a requested build.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one requested build.
type Run struct {
	mu sync.Mutex

	ID        string
	Trigger   string
	Status    RunStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time

	report *Report
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"id"`
	Trigger   string    `json:"trigger"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	BuildID   string    `json:"build_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Run) set(status RunStatus, report *Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	if report != nil {
		r.report = report
	}
	if err != nil {
		r.Error = err.Error()
	}
	r.UpdatedAt = time.Now()
}

// Report returns the build report once the run has completed.
func (r *Run) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RunSnapshot{
		ID:        r.ID,
		Trigger:   r.Trigger,
		Status:    r.Status,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.report != nil {
		s.BuildID = r.report.RunID
	}
	return s
}

// Orchestrator serialises build requests from the API and the watcher.
// Builds share the output directory, so exactly one runs at a time.
type Orchestrator struct {
	pipeline *Pipeline
	queue    chan *Run
	log      *slog.Logger
	ttl      time.Duration
	stats    *DurationStats

	// building serialises execute between the queue and BuildNow.
	building sync.Mutex

	mu      sync.Mutex
	runs    map[string]*Run
	last    *Report
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the build queue. queueSize bounds pending builds.
func NewOrchestrator(p *Pipeline, queueSize int, ttl time.Duration, log *slog.Logger) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Orchestrator{
		pipeline: p,
		queue:    make(chan *Run, queueSize),
		log:      log,
		ttl:      ttl,
		stats:    NewDurationStats(ttl),
		runs:     make(map[string]*Run),
	}
}

// Start launches the build goroutine and periodic cleanup.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case run, ok := <-o.queue:
				if !ok {
					return
				}
				o.execute(workerCtx, run)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.cleanup()
			}
		}
	}()
}

// Stop cancels a running build and waits for the goroutines to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a build. trigger describes the requester for logs.
func (o *Orchestrator) Submit(trigger string) (*Run, error) {
	now := time.Now()
	run := &Run{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Trigger:   trigger,
		Status:    RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, ErrStopped
	}
	select {
	case o.queue <- run:
		o.runs[run.ID] = run
		return run, nil
	default:
		return nil, fmt.Errorf("%w (%d pending)", ErrQueueFull, cap(o.queue))
	}
}

// BuildNow runs a build synchronously on the caller's goroutine.
func (o *Orchestrator) BuildNow(ctx context.Context, trigger string) (*Report, error) {
	run := &Run{ID: uuid.Must(uuid.NewV7()).String(), Trigger: trigger, Status: RunQueued, CreatedAt: time.Now()}
	o.mu.Lock()
	o.runs[run.ID] = run
	o.mu.Unlock()
	o.execute(ctx, run)
	if r := run.Report(); r != nil {
		return r, nil
	}
	return nil, errors.New(run.Snapshot().Error)
}

// execute builds, retrying batch-level failures that look transient.
func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	o.building.Lock()
	defer o.building.Unlock()

	log := o.log.With("build_request", run.ID, "trigger", run.Trigger)
	run.set(RunRunning, nil, nil)

	start := time.Now()
	var (
		report *Report
		err    error
	)
	for attempt := range MaxRetries {
		report, err = o.pipeline.Build(ctx)
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable build error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	o.stats.Record(time.Since(start), err != nil || (report != nil && !report.OK()))

	if err != nil {
		log.Error("build failed", "error", err)
		run.set(RunFailed, nil, err)
		return
	}

	o.mu.Lock()
	o.last = report
	o.mu.Unlock()
	run.set(RunCompleted, report, nil)
}

func (o *Orchestrator) cleanup() {
	o.pipeline.Jobs().Cleanup()

	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for id, run := range o.runs {
		s := run.Snapshot()
		if s.Status != RunQueued && s.Status != RunRunning && now.Sub(s.UpdatedAt) > o.ttl {
			delete(o.runs, id)
		}
	}
}

// GetRun returns a build request by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs[id]
}

// GetJob returns a document job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.pipeline.Jobs().Get(id)
}

// LastReport returns the report of the most recent successful build, or nil.
func (o *Orchestrator) LastReport() *Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// QueueDepth returns the number of pending builds.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// BuildStats returns build timings within the TTL window.
func (o *Orchestrator) BuildStats() StatsSnapshot {
	return o.stats.Snapshot()
}

// DocumentStats returns per-document classification timings.
func (o *Orchestrator) DocumentStats() StatsSnapshot {
	return o.pipeline.DocumentStats()
}
