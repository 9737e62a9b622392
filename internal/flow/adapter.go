// Package flow implements the adapter lifecycle and capacity state machine
// that wraps one backend execution engine.
package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowdeck/flowdeck/pkg/models"
)

// Config holds the construction-time settings for one adapter.
type Config struct {
	// Name is the unique flow name.
	Name string
	// Type tags the backend class.
	Type models.FlowType
	// Capabilities lists the capability tags the flow declares.
	Capabilities []string
	// MaxLoad is the concurrent task ceiling. Must be > 0.
	MaxLoad int
	// Timeout bounds each backend attempt. Must be > 0.
	Timeout time.Duration
	// RetryAttempts is the number of backend attempts per task.
	// Values below 1 are treated as 1.
	RetryAttempts int
	// RequiresAuth gates execution on the authenticator.
	RequiresAuth bool
}

// TaskRecord is one entry in an adapter's execution history.
type TaskRecord struct {
	// TaskID is the executed task's ID.
	TaskID string
	// Description is the task description.
	Description string
	// Type is the task type.
	Type models.TaskType
	// Success reports whether the final attempt succeeded.
	Success bool
	// Duration is the wall-clock execution time.
	Duration time.Duration
	// CompletedAt is when execution finished.
	CompletedAt time.Time
}

// Adapter wraps one backend with capacity limiting, retry, health and auth
// gating. It owns its load counter and status: every accepted task
// increments load and re-evaluates status, every completion decrements
// symmetrically, so 0 <= load <= max holds at every instant.
type Adapter struct {
	cfg     Config
	backend Backend
	auth    Authenticator
	emitter *Emitter

	// mu guards status, load, history, execCount and pending. Load and
	// status are always updated together under the lock so the
	// busy/available invariant never tears.
	mu        sync.Mutex
	status    models.FlowStatus
	load      int
	history   []TaskRecord
	execCount int

	// pending queues events raised under mu. Emit can wait out a grace
	// period on a full buffer, so emission happens in flushEvents after
	// the lock is released, never while it is held.
	pending []Event
}

// NewAdapter creates an adapter over the given backend.
// It rejects non-positive MaxLoad or Timeout with a ConfigurationError;
// these are fatal and never recoverable.
func NewAdapter(cfg Config, backend Backend, auth Authenticator, emitter *Emitter) (*Adapter, error) {
	if cfg.MaxLoad <= 0 {
		return nil, &ConfigurationError{Field: "max_load", Reason: fmt.Sprintf("must be > 0, got %d", cfg.MaxLoad)}
	}
	if cfg.Timeout <= 0 {
		return nil, &ConfigurationError{Field: "timeout", Reason: fmt.Sprintf("must be > 0, got %s", cfg.Timeout)}
	}
	if cfg.Name == "" {
		return nil, &ConfigurationError{Field: "name", Reason: "must not be empty"}
	}
	if backend == nil {
		return nil, &ConfigurationError{Field: "backend", Reason: "must not be nil"}
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if auth == nil {
		auth = NoAuth()
	}
	return &Adapter{
		cfg:     cfg,
		backend: backend,
		auth:    auth,
		emitter: emitter,
		status:  models.FlowStatusOffline,
	}, nil
}

// Name returns the unique flow name.
func (a *Adapter) Name() string {
	return a.cfg.Name
}

// Type returns the backend class tag.
func (a *Adapter) Type() models.FlowType {
	return a.cfg.Type
}

// Capabilities returns a copy of the declared capability set.
func (a *Adapter) Capabilities() []string {
	caps := make([]string, len(a.cfg.Capabilities))
	copy(caps, a.cfg.Capabilities)
	return caps
}

// Initialize transitions the adapter from offline to available.
// Idempotent: a second call on an initialized adapter is a no-op.
// An adapter stuck in error is re-initialized to available.
func (a *Adapter) Initialize() error {
	a.mu.Lock()
	defer a.flushEvents()
	defer a.mu.Unlock()

	switch a.status {
	case models.FlowStatusAvailable, models.FlowStatusBusy:
		return nil
	case models.FlowStatusOffline, models.FlowStatusError:
		a.setStatusLocked(models.FlowStatusAvailable)
		return nil
	default:
		return fmt.Errorf("flow %q: unexpected status %q", a.cfg.Name, a.status)
	}
}

// Shutdown transitions the adapter to offline.
func (a *Adapter) Shutdown() {
	a.mu.Lock()
	defer a.flushEvents()
	defer a.mu.Unlock()
	a.setStatusLocked(models.FlowStatusOffline)
}

// CanAcceptTask reports whether the adapter will accept a new task.
// Pure query: true iff status is available (load below max, not offline
// or in error).
func (a *Adapter) CanAcceptTask() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status == models.FlowStatusAvailable
}

// CheckHealth reports whether the adapter is healthy: true iff the
// current status is not error.
func (a *Adapter) CheckHealth() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status != models.FlowStatusError
}

// ResetStatus clears a sticky error, restoring available or busy from the
// current load. No-op when the adapter is not in error.
func (a *Adapter) ResetStatus() {
	a.mu.Lock()
	defer a.flushEvents()
	defer a.mu.Unlock()
	if a.status != models.FlowStatusError {
		return
	}
	a.refreshStatusLocked()
}

// MarkError forces the adapter into the sticky error state.
// Used when the backend reports an unrecoverable condition.
func (a *Adapter) MarkError() {
	a.mu.Lock()
	defer a.flushEvents()
	defer a.mu.Unlock()
	a.setStatusLocked(models.FlowStatusError)
}

// Authenticate runs the auth collaborator.
func (a *Adapter) Authenticate(ctx context.Context) error {
	return a.auth.Authenticate(ctx)
}

// IsAuthenticated reports whether the backend is authenticated.
func (a *Adapter) IsAuthenticated() bool {
	return a.auth.IsAuthenticated()
}

// AuthURL returns the authentication URL, if any.
func (a *Adapter) AuthURL() string {
	return a.auth.AuthURL()
}

// ExecuteTask runs the task on the backend.
//
// It fails fast with a CapacityError when the adapter cannot accept the
// task (no queueing; backpressure is the caller's responsibility) and
// with an AuthenticationError when required auth is missing, neither of
// which touches the load counter. Otherwise load is incremented, the
// backend is attempted up to RetryAttempts times, and load is decremented
// exactly once before returning, regardless of outcome.
//
// Backend failures are captured in the returned ExecutionResult rather
// than raised, so callers can record the outcome and attempt fallback.
func (a *Adapter) ExecuteTask(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
	if err := a.acceptTask(); err != nil {
		return nil, err
	}
	defer a.releaseTask()

	task.SetStatus(models.TaskStatusRunning)

	start := time.Now()
	var output string
	var lastErr error
	attempts := 0
	for attempts < a.cfg.RetryAttempts {
		attempts++
		output, lastErr = a.attempt(ctx, task.Description)
		if lastErr == nil {
			break
		}
		a.emitter.Emit(Event{
			Type:    EventExecutionError,
			Flow:    a.cfg.Name,
			TaskID:  task.ID,
			Message: fmt.Sprintf("attempt %d/%d failed", attempts, a.cfg.RetryAttempts),
			Err:     lastErr,
		})
	}
	duration := time.Since(start)

	result := &models.ExecutionResult{
		Success:  lastErr == nil,
		FlowName: a.cfg.Name,
		Duration: duration,
		Metadata: map[string]string{
			"attempts":  fmt.Sprintf("%d", attempts),
			"task_type": string(task.Type),
		},
	}
	if lastErr == nil {
		result.Output = output
		task.SetStatus(models.TaskStatusCompleted)
	} else {
		backendErr := &BackendExecutionError{Flow: a.cfg.Name, Attempts: attempts, Err: lastErr}
		result.Error = backendErr.Error()
		task.SetStatus(models.TaskStatusFailed)
	}

	a.recordTask(task, result.Success, duration)
	return result, nil
}

// attempt runs one backend call bounded by the configured timeout.
func (a *Adapter) attempt(ctx context.Context, description string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.backend.Execute(attemptCtx, description)
}

// acceptTask atomically admits one task: capacity and auth checks first,
// then increment-then-evaluate-status.
func (a *Adapter) acceptTask() error {
	a.mu.Lock()
	defer a.flushEvents()
	defer a.mu.Unlock()

	if a.status != models.FlowStatusAvailable {
		return &CapacityError{Flow: a.cfg.Name, Load: a.load, Max: a.cfg.MaxLoad}
	}
	if a.cfg.RequiresAuth && !a.auth.IsAuthenticated() {
		return &AuthenticationError{Flow: a.cfg.Name, AuthURL: a.auth.AuthURL()}
	}

	a.setLoadLocked(a.load + 1)
	a.execCount++
	return nil
}

// releaseTask undoes one admission: decrement-then-evaluate-status.
func (a *Adapter) releaseTask() {
	a.mu.Lock()
	defer a.flushEvents()
	defer a.mu.Unlock()
	if a.load <= 0 {
		return
	}
	a.setLoadLocked(a.load - 1)
}

// recordTask appends an entry to the execution history.
func (a *Adapter) recordTask(task *models.Task, success bool, duration time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, TaskRecord{
		TaskID:      task.ID,
		Description: task.Description,
		Type:        task.Type,
		Success:     success,
		Duration:    duration,
		CompletedAt: time.Now(),
	})
}

// TaskHistory returns a copy of all executed task records in submission order.
func (a *Adapter) TaskHistory() []TaskRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	records := make([]TaskRecord, len(a.history))
	copy(records, a.history)
	return records
}

// ExecutionCount returns the total number of tasks this adapter accepted.
func (a *Adapter) ExecutionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.execCount
}

// Status returns the current lifecycle status.
func (a *Adapter) Status() models.FlowStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// CurrentLoad returns the number of tasks in flight.
func (a *Adapter) CurrentLoad() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load
}

// MaxLoad returns the load ceiling.
func (a *Adapter) MaxLoad() int {
	return a.cfg.MaxLoad
}

// Snapshot returns the registry-visible view of the adapter.
func (a *Adapter) Snapshot() models.FlowInstance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return models.FlowInstance{
		Name:         a.cfg.Name,
		Type:         a.cfg.Type,
		Capabilities: a.Capabilities(),
		Status:       a.status,
		CurrentLoad:  a.load,
		MaxLoad:      a.cfg.MaxLoad,
	}
}

// flushEvents emits events queued while the lock was held. Called via
// defer after mu is released, so Emit's grace period on a full buffer
// never stalls concurrent state queries.
func (a *Adapter) flushEvents() {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()
	for _, ev := range pending {
		a.emitter.Emit(ev)
	}
}

// setLoadLocked updates the load counter and re-evaluates status,
// queuing a load-changed event. Callers must hold mu.
func (a *Adapter) setLoadLocked(load int) {
	old := a.load
	a.load = load
	a.pending = append(a.pending, Event{
		Type:      EventLoadChanged,
		Flow:      a.cfg.Name,
		OldLoad:   old,
		NewLoad:   load,
		Timestamp: time.Now(),
	})
	// The error state is sticky: load changes never clear it.
	if a.status == models.FlowStatusError || a.status == models.FlowStatusOffline {
		return
	}
	a.refreshStatusLocked()
}

// refreshStatusLocked derives available/busy from the load counter.
// Callers must hold mu.
func (a *Adapter) refreshStatusLocked() {
	if a.load >= a.cfg.MaxLoad {
		a.setStatusLocked(models.FlowStatusBusy)
	} else {
		a.setStatusLocked(models.FlowStatusAvailable)
	}
}

// setStatusLocked transitions the status and queues a status-changed event
// when the value actually changes. Callers must hold mu.
func (a *Adapter) setStatusLocked(status models.FlowStatus) {
	if a.status == status {
		return
	}
	old := a.status
	a.status = status
	a.pending = append(a.pending, Event{
		Type:      EventStatusChanged,
		Flow:      a.cfg.Name,
		OldStatus: old,
		NewStatus: status,
		Timestamp: time.Now(),
	})
}
