// Package dispatch runs lookup pipelines as independent background jobs on
// a fixed worker pool. A job attempt is wrapped so that a panic or returned
// error is caught and logged instead of killing the worker; failures are
// terminal and reported through error events by the jobs themselves, never
// re-queued here.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"supplement-scout/internal/common/errors"
	"supplement-scout/internal/common/logging"
)

// JobKind identifies a registered job implementation
type JobKind string

// Job kinds run by the lookup core
const (
	KindFetchLabelDetails    JobKind = "fetch_label_details"
	KindRecommendByRanked    JobKind = "recommend_by_essentials_ranked"
	KindRecommendByText      JobKind = "recommend_by_text_search"
	KindFetchNutritionData   JobKind = "fetch_nutrition_data"
	KindProductsForEssential JobKind = "products_for_essential"
)

// Args carries a job's parameters
type Args map[string]interface{}

// String returns the string value for a key, or empty
func (a Args) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer value for a key, or the given default. JSON
// round-trips turn numbers into float64, so both are accepted.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean value for a key, or false
func (a Args) Bool(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}

// Strings returns the string-slice value for a key, accepting both
// []string and []interface{} shapes
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// State is a job's lifecycle state
type State int32

const (
	StateQueued State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one unit of asynchronous work as seen by a handler
type Job struct {
	ID   string
	Kind JobKind
	Args Args
}

// Handler executes one job attempt
type Handler func(ctx context.Context, job *Job) error

// JobHandle tracks a submitted job
type JobHandle struct {
	ID   string
	Kind JobKind

	state atomic.Int32
	err   atomic.Value
	done  chan struct{}
}

// State returns the job's current lifecycle state
func (h *JobHandle) State() State {
	return State(h.state.Load())
}

// Done is closed once the job reaches a terminal state
func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the job's terminal error, if any. Only meaningful after Done
// is closed.
func (h *JobHandle) Err() error {
	if v := h.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

type queuedJob struct {
	job    *Job
	handle *JobHandle
}

// Dispatcher owns the worker pool and the job registry
type Dispatcher struct {
	handlers map[JobKind]Handler
	queue    chan queuedJob
	workers  int
	logger   logging.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a dispatcher with the given pool size and queue capacity
func New(workers, queueSize int, logger logging.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Dispatcher{
		handlers: make(map[JobKind]Handler),
		queue:    make(chan queuedJob, queueSize),
		workers:  workers,
		logger:   logger.WithFields(logging.Field{Key: "component", Value: "dispatch"}),
	}
}

// Register binds a handler to a job kind. Must be called before Start.
func (d *Dispatcher) Register(kind JobKind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

// Start launches the worker pool
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info("dispatcher started",
		logging.Field{Key: "workers", Value: d.workers},
		logging.Field{Key: "queue_size", Value: cap(d.queue)},
	)
}

// Enqueue submits a job for execution. It fails when the dispatcher has
// been stopped, the kind is unknown, or the queue is full; it never blocks.
// The mutex is held across the send so a concurrent Stop cannot close the
// queue between the stopped check and the send.
func (d *Dispatcher) Enqueue(kind JobKind, args Args) (*JobHandle, error) {
	handle := &JobHandle{
		ID:   uuid.NewString(),
		Kind: kind,
		done: make(chan struct{}),
	}
	qj := queuedJob{
		job:    &Job{ID: handle.ID, Kind: kind, Args: args},
		handle: handle,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil, errors.ValidationError("dispatcher is stopped")
	}
	if _, ok := d.handlers[kind]; !ok {
		return nil, errors.ValidationError(fmt.Sprintf("unknown job kind %q", kind))
	}

	select {
	case d.queue <- qj:
		d.logger.Debug("job queued",
			logging.Field{Key: "job_id", Value: handle.ID},
			logging.Field{Key: "kind", Value: kind},
		)
		return handle, nil
	default:
		return nil, errors.InternalError("job queue is full", nil).WithContext("kind", kind)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case qj, ok := <-d.queue:
			if !ok {
				return
			}
			d.run(ctx, qj)
		}
	}
}

// run executes one attempt. Panics are converted into terminal failures so
// a misbehaving job cannot take a worker down with it.
func (d *Dispatcher) run(ctx context.Context, qj queuedJob) {
	qj.handle.state.Store(int32(StateRunning))

	defer func() {
		if r := recover(); r != nil {
			err := errors.InternalError(fmt.Sprintf("job panicked: %v", r), nil)
			qj.handle.err.Store(error(err))
			qj.handle.state.Store(int32(StateFailed))
			close(qj.handle.done)
			d.logger.Error("job panicked", err,
				logging.Field{Key: "job_id", Value: qj.job.ID},
				logging.Field{Key: "kind", Value: qj.job.Kind},
			)
		}
	}()

	d.mu.Lock()
	handler := d.handlers[qj.job.Kind]
	d.mu.Unlock()

	if err := handler(ctx, qj.job); err != nil {
		qj.handle.err.Store(err)
		qj.handle.state.Store(int32(StateFailed))
		d.logger.Warn("job failed",
			logging.Field{Key: "job_id", Value: qj.job.ID},
			logging.Field{Key: "kind", Value: qj.job.Kind},
			logging.Field{Key: "error", Value: err.Error()},
		)
	} else {
		qj.handle.state.Store(int32(StateSucceeded))
		d.logger.Debug("job succeeded",
			logging.Field{Key: "job_id", Value: qj.job.ID},
			logging.Field{Key: "kind", Value: qj.job.Kind},
		)
	}
	close(qj.handle.done)
}

// Stop closes intake and waits for in-flight jobs to finish, or for ctx to
// expire. Enqueue fails once Stop has been called.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher stop timed out: %w", ctx.Err())
	}
}
