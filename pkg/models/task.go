package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is being executed by a flow.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// TaskType categorizes the kind of work a task describes.
type TaskType string

const (
	// TaskTypeCodeGeneration indicates writing new code.
	TaskTypeCodeGeneration TaskType = "code-generation"
	// TaskTypeCodeReview indicates reviewing existing code.
	TaskTypeCodeReview TaskType = "code-review"
	// TaskTypeResearch indicates information gathering.
	TaskTypeResearch TaskType = "research"
	// TaskTypeAnalysis indicates analyzing data or code.
	TaskTypeAnalysis TaskType = "analysis"
	// TaskTypeDocumentation indicates writing documentation.
	TaskTypeDocumentation TaskType = "documentation"
	// TaskTypeTesting indicates writing or running tests.
	TaskTypeTesting TaskType = "testing"
	// TaskTypeRefactoring indicates restructuring existing code.
	TaskTypeRefactoring TaskType = "refactoring"
	// TaskTypeOrchestration indicates coordinating other work.
	TaskTypeOrchestration TaskType = "orchestration"
	// TaskTypeGeneral is the catch-all for untyped tasks.
	TaskTypeGeneral TaskType = "general"
)

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeCodeGeneration, TaskTypeCodeReview, TaskTypeResearch,
		TaskTypeAnalysis, TaskTypeDocumentation, TaskTypeTesting,
		TaskTypeRefactoring, TaskTypeOrchestration, TaskTypeGeneral:
		return true
	default:
		return false
	}
}

// Task represents a unit of work submitted for delegation.
// A task is mutated only by the component currently executing it and is
// never shared for concurrent mutation.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the free-text description of the work.
	Description string `json:"description"`
	// Type categorizes the task for routing.
	Type TaskType `json:"type"`
	// Priority orders tasks; higher values are more urgent.
	Priority int `json:"priority"`
	// Status is the current lifecycle state of the task.
	Status TaskStatus `json:"status"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// Metadata is an open key-value bag for caller annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewTask creates a pending task with a generated ID and timestamps.
// Unknown task types fall back to TaskTypeGeneral.
func NewTask(description string, taskType TaskType, priority int) *Task {
	now := time.Now()
	if !taskType.Valid() {
		taskType = TaskTypeGeneral
	}
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		Type:        taskType,
		Priority:    priority,
		Status:      TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    make(map[string]string),
	}
}

// SetStatus updates the lifecycle status and the UpdatedAt timestamp.
func (t *Task) SetStatus(status TaskStatus) {
	t.Status = status
	t.UpdatedAt = time.Now()
}
