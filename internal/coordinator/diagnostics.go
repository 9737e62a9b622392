package coordinator

import (
	"time"

	"github.com/flowdeck/flowdeck/pkg/models"
)

// SystemStatus is the read-only snapshot exposed to status tooling.
// It never exposes mutable internal state.
type SystemStatus struct {
	// Strategy is the configured delegation strategy.
	Strategy Strategy `json:"strategy"`
	// InFlight is the number of tasks currently delegated.
	InFlight int `json:"in_flight"`
	// MaxConcurrentTasks is the global ceiling.
	MaxConcurrentTasks int `json:"max_concurrent_tasks"`
	// Flows is the registry snapshot at the time of the call.
	Flows []models.FlowInstance `json:"flows"`
}

// PerformanceMetrics aggregates delegation outcomes.
type PerformanceMetrics struct {
	// TotalDelegations counts delegation decisions made.
	TotalDelegations int64 `json:"total_delegations"`
	// Succeeded counts successful executions.
	Succeeded int64 `json:"succeeded"`
	// Failed counts failed executions.
	Failed int64 `json:"failed"`
	// SuccessRate is Succeeded over completed executions, 0 when none.
	SuccessRate float64 `json:"success_rate"`
	// AverageDuration is the mean execution wall-clock time.
	AverageDuration time.Duration `json:"average_duration"`
	// DelegationsPerFlow counts decisions per target flow.
	DelegationsPerFlow map[string]int64 `json:"delegations_per_flow"`
}

// SystemStatus returns the current coordination snapshot.
func (c *Coordinator) SystemStatus() SystemStatus {
	c.mu.Lock()
	inFlight := c.inFlight
	c.mu.Unlock()

	return SystemStatus{
		Strategy:           c.cfg.Strategy,
		InFlight:           inFlight,
		MaxConcurrentTasks: c.cfg.MaxConcurrentTasks,
		Flows:              c.registry.Snapshot(),
	}
}

// PerformanceMetrics returns aggregate delegation metrics.
func (c *Coordinator) PerformanceMetrics() PerformanceMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	completed := c.succeeded + c.failed
	m := PerformanceMetrics{
		TotalDelegations:   c.totalDelegations,
		Succeeded:          c.succeeded,
		Failed:             c.failed,
		DelegationsPerFlow: make(map[string]int64, len(c.perFlow)),
	}
	for name, count := range c.perFlow {
		m.DelegationsPerFlow[name] = count
	}
	if completed > 0 {
		m.SuccessRate = float64(c.succeeded) / float64(completed)
		m.AverageDuration = c.totalDuration / time.Duration(completed)
	}
	return m
}

// DelegationHistory returns the most recent n delegation records, oldest
// first. n <= 0 returns the full history.
func (c *Coordinator) DelegationHistory(n int) []DelegationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	if n > 0 && len(c.history) > n {
		start = len(c.history) - n
	}
	out := make([]DelegationRecord, len(c.history)-start)
	copy(out, c.history[start:])
	return out
}
