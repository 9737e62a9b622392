package models

import (
	"testing"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"running is valid", TaskStatusRunning, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("paused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskType_Valid(t *testing.T) {
	tests := []struct {
		name     string
		taskType TaskType
		want     bool
	}{
		{"code-generation is valid", TaskTypeCodeGeneration, true},
		{"code-review is valid", TaskTypeCodeReview, true},
		{"research is valid", TaskTypeResearch, true},
		{"analysis is valid", TaskTypeAnalysis, true},
		{"documentation is valid", TaskTypeDocumentation, true},
		{"testing is valid", TaskTypeTesting, true},
		{"refactoring is valid", TaskTypeRefactoring, true},
		{"orchestration is valid", TaskTypeOrchestration, true},
		{"general is valid", TaskTypeGeneral, true},
		{"empty string is invalid", TaskType(""), false},
		{"unknown type is invalid", TaskType("deploy"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.taskType.Valid(); got != tt.want {
				t.Errorf("TaskType(%q).Valid() = %v, want %v", tt.taskType, got, tt.want)
			}
		})
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask("implement login handler", TaskTypeCodeGeneration, 2)

	if task.ID == "" {
		t.Error("NewTask() did not assign an ID")
	}
	if task.Status != TaskStatusPending {
		t.Errorf("NewTask() status = %q, want %q", task.Status, TaskStatusPending)
	}
	if task.Type != TaskTypeCodeGeneration {
		t.Errorf("NewTask() type = %q, want %q", task.Type, TaskTypeCodeGeneration)
	}
	if task.Priority != 2 {
		t.Errorf("NewTask() priority = %d, want 2", task.Priority)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("NewTask() did not set timestamps")
	}
	if task.Metadata == nil {
		t.Error("NewTask() did not initialize metadata")
	}

	other := NewTask("another task", TaskTypeResearch, 1)
	if other.ID == task.ID {
		t.Error("NewTask() generated duplicate IDs")
	}
}

func TestNewTask_UnknownTypeFallsBackToGeneral(t *testing.T) {
	task := NewTask("do something", TaskType("mystery"), 1)
	if task.Type != TaskTypeGeneral {
		t.Errorf("NewTask() type = %q, want %q", task.Type, TaskTypeGeneral)
	}
}

func TestTask_SetStatus(t *testing.T) {
	task := NewTask("run the suite", TaskTypeTesting, 1)
	before := task.UpdatedAt

	task.SetStatus(TaskStatusRunning)

	if task.Status != TaskStatusRunning {
		t.Errorf("SetStatus() status = %q, want %q", task.Status, TaskStatusRunning)
	}
	if task.UpdatedAt.Before(before) {
		t.Error("SetStatus() did not advance UpdatedAt")
	}
}
