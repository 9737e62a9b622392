package flow

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/flowdeck/flowdeck/pkg/models"
)

// EventType represents the type of flow event.
type EventType string

const (
	// EventStatusChanged indicates an adapter status transition.
	EventStatusChanged EventType = "status_changed"
	// EventLoadChanged indicates an adapter load change.
	EventLoadChanged EventType = "load_changed"
	// EventExecutionError indicates a failed backend attempt.
	EventExecutionError EventType = "execution_error"
	// EventTaskDelegated indicates the coordinator delegated a task.
	EventTaskDelegated EventType = "task_delegated"
	// EventCoordinationDecision indicates a coordinator strategy decision.
	EventCoordinationDecision EventType = "coordination_decision"
)

// Event is a diagnostic notification emitted by adapters and the
// coordinator. Events are purely observational: no component depends on
// listeners being attached for correctness.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// Flow is the name of the flow the event concerns.
	Flow string
	// OldStatus and NewStatus carry the transition for status events.
	OldStatus models.FlowStatus
	NewStatus models.FlowStatus
	// OldLoad and NewLoad carry the counters for load events.
	OldLoad int
	NewLoad int
	// TaskID is the related task, if applicable.
	TaskID string
	// Message provides additional context.
	Message string
	// Err contains error details for execution_error events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emitter fans events out to a buffered channel for external observers
// (metrics exporters, CLIs). Emission never blocks the caller for long:
// when the channel stays full past a short grace period the event is
// dropped and counted.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel, dropping it after a short timeout
// if no consumer drains the buffer. Because of that grace period, Emit
// must not be called while holding a lock that observers query under.
func (e *Emitter) Emit(event Event) {
	if e == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // log every 10th drop to avoid spam
			log.Printf("[flow] WARNING: event channel full, dropped event (total dropped: %d): type=%s flow=%s", count, event.Type, event.Flow)
		}
	}
}

// Events returns the read-only channel of events for subscribers.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// DroppedCount returns the total number of dropped events.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Close closes the events channel. Call only after all emitting
// components have stopped.
func (e *Emitter) Close() {
	close(e.events)
}
