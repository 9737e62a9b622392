package models

import "time"

// ExecutionResult captures the outcome of one task execution on a flow.
// Results are immutable once produced; failures are reported through the
// Success flag rather than raised, so routers can record the outcome and
// attempt fallback.
type ExecutionResult struct {
	// Success reports whether the final attempt succeeded.
	Success bool `json:"success"`
	// Output is the backend output text on success.
	Output string `json:"output,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
	// FlowName is the flow that executed the task.
	FlowName string `json:"flow_name"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`
	// Metadata carries execution details such as attempt counts.
	Metadata map[string]string `json:"metadata,omitempty"`
}
