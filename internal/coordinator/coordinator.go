// Package coordinator implements strategy-selectable task delegation with
// a global concurrency ceiling, retry/backoff policy, and an auditable
// delegation history.
package coordinator

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/registry"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// Config holds the coordination policy.
type Config struct {
	// Strategy selects the delegation strategy.
	Strategy Strategy
	// MaxConcurrentTasks is the global in-flight ceiling across all
	// flows, independent of per-adapter ceilings. Must be > 0.
	MaxConcurrentTasks int
	// TaskTimeout bounds a delegated execution. Advisory: in-flight
	// cancellation of a backend call is the adapter's concern.
	TaskTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffMultiplier grows the delay between retries.
	BackoffMultiplier float64
	// InitialDelay is the first retry delay.
	InitialDelay time.Duration
	// PrimaryFlow receives high-priority tasks under the
	// priority-based strategy.
	PrimaryFlow string
	// PriorityThreshold marks tasks as high priority. Defaults to 3.
	PriorityThreshold int
	// Debug enables decision logging.
	Debug bool
}

// DelegationRecord is one audit entry, appended on every delegation.
type DelegationRecord struct {
	// TaskID is the delegated task.
	TaskID string `json:"task_id"`
	// Flow is the delegation target.
	Flow string `json:"flow"`
	// Reason is the strategy's explanation.
	Reason string `json:"reason"`
	// Confidence is the strategy confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Alternatives lists the other flows considered.
	Alternatives []string `json:"alternatives,omitempty"`
	// Strategy produced the decision.
	Strategy Strategy `json:"strategy"`
	// Timestamp is when the delegation was made.
	Timestamp time.Time `json:"timestamp"`
}

// AuditSink persists delegation records for post-hoc inspection.
// Persistence is best-effort and never feeds routing decisions.
type AuditSink interface {
	RecordDelegation(rec DelegationRecord) error
}

// Coordinator delegates tasks to flows under a selected strategy.
// It owns the global in-flight counter and its own delegation history;
// per-flow load lives in the adapters and is reached only through the
// registry.
type Coordinator struct {
	cfg      Config
	registry *registry.Registry
	emitter  *flow.Emitter
	audit    AuditSink

	// mu guards inFlight, rrCursor, history and the metric counters.
	mu       sync.Mutex
	inFlight int
	rrCursor int
	history  []DelegationRecord

	totalDelegations int64
	succeeded        int64
	failed           int64
	totalDuration    time.Duration
	perFlow          map[string]int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEmitter attaches an event emitter for diagnostic events.
func WithEmitter(emitter *flow.Emitter) Option {
	return func(c *Coordinator) { c.emitter = emitter }
}

// WithAuditSink attaches a persistent sink for delegation records.
func WithAuditSink(sink AuditSink) Option {
	return func(c *Coordinator) { c.audit = sink }
}

// New creates a Coordinator over the registry.
// Invalid ceilings and timeouts are configuration errors, fatal at
// construction.
func New(reg *registry.Registry, cfg Config, opts ...Option) (*Coordinator, error) {
	if cfg.MaxConcurrentTasks <= 0 {
		return nil, &flow.ConfigurationError{Field: "max_concurrent_tasks", Reason: "must be > 0"}
	}
	if cfg.TaskTimeout <= 0 {
		return nil, &flow.ConfigurationError{Field: "task_timeout", Reason: "must be > 0"}
	}
	if !cfg.Strategy.Valid() {
		return nil, &flow.ConfigurationError{Field: "strategy", Reason: "unknown strategy " + string(cfg.Strategy)}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.PriorityThreshold <= 0 {
		cfg.PriorityThreshold = 3
	}

	c := &Coordinator{
		cfg:      cfg,
		registry: reg,
		perFlow:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MakeSelectionDecision runs the strategy without executing or recording.
// Used for dry-run inspection; it is side-effect free.
func (c *Coordinator) MakeSelectionDecision(task *models.Task) (*Decision, error) {
	return c.decide(task, false)
}

// Delegate picks a flow for the task, executes it, and records the
// decision. The global ceiling is enforced first: once MaxConcurrentTasks
// are in flight, new delegations fail with a capacity error until one
// completes. On execution failure the strategy is re-run after an
// exponential backoff, up to MaxRetries times; the target may change
// between attempts when availability shifted.
func (c *Coordinator) Delegate(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
	if err := c.acquireSlot(); err != nil {
		return nil, err
	}
	defer c.releaseSlot()

	var lastResult *models.ExecutionResult
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt - 1)
			c.debugLog("task %s retry %d/%d after %s", task.ID, attempt, c.cfg.MaxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		decision, err := c.decide(task, true)
		if err != nil {
			lastErr = err
			continue
		}
		c.recordDecision(task, decision)

		execCtx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
		result, err := c.registry.ExecuteOnFlow(execCtx, decision.Flow, task)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		c.recordOutcome(decision.Flow, result)
		if result.Success {
			c.emit(flow.Event{
				Type:    flow.EventTaskDelegated,
				Flow:    decision.Flow,
				TaskID:  task.ID,
				Message: decision.Reason,
			})
			return result, nil
		}
		lastResult, lastErr = result, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResult, nil
}

// backoffDelay computes initialDelay × multiplier^attempt.
func (c *Coordinator) backoffDelay(attempt int) time.Duration {
	scale := math.Pow(c.cfg.BackoffMultiplier, float64(attempt))
	return time.Duration(float64(c.cfg.InitialDelay) * scale)
}

// acquireSlot admits one task under the global ceiling.
func (c *Coordinator) acquireSlot() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight >= c.cfg.MaxConcurrentTasks {
		return &flow.CapacityError{Flow: "coordinator", Load: c.inFlight, Max: c.cfg.MaxConcurrentTasks}
	}
	c.inFlight++
	return nil
}

// releaseSlot frees one admission. Paired with acquireSlot exactly once
// per accepted task, regardless of how the delegation exits.
func (c *Coordinator) releaseSlot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.inFlight--
	}
}

// recordDecision appends the delegation record, emits the decision event,
// and hands the record to the audit sink.
func (c *Coordinator) recordDecision(task *models.Task, d *Decision) {
	rec := DelegationRecord{
		TaskID:       task.ID,
		Flow:         d.Flow,
		Reason:       d.Reason,
		Confidence:   d.Confidence,
		Alternatives: d.Alternatives,
		Strategy:     d.Strategy,
		Timestamp:    d.Timestamp,
	}

	c.mu.Lock()
	c.history = append(c.history, rec)
	c.totalDelegations++
	c.perFlow[d.Flow]++
	c.mu.Unlock()

	c.emit(flow.Event{
		Type:    flow.EventCoordinationDecision,
		Flow:    d.Flow,
		TaskID:  task.ID,
		Message: d.Reason,
	})

	if c.audit != nil {
		if err := c.audit.RecordDelegation(rec); err != nil {
			log.Printf("[coordinator] audit record failed: %v", err)
		}
	}
}

// recordOutcome updates the aggregate execution metrics.
func (c *Coordinator) recordOutcome(flowName string, result *models.ExecutionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if result.Success {
		c.succeeded++
	} else {
		c.failed++
	}
	c.totalDuration += result.Duration
}

func (c *Coordinator) emit(ev flow.Event) {
	if c.emitter != nil {
		c.emitter.Emit(ev)
	}
}

func (c *Coordinator) debugLog(format string, args ...interface{}) {
	if c.cfg.Debug {
		log.Printf("[coordinator] "+format, args...)
	}
}
