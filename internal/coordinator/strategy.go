package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/portal"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// Strategy selects how the coordinator picks a target flow.
type Strategy string

const (
	// StrategyCapabilityBased picks the flow with the best capability
	// coverage of the task's inferred requirements.
	StrategyCapabilityBased Strategy = "capability-based"
	// StrategyLoadBalanced picks the available flow with the lowest
	// load ratio.
	StrategyLoadBalanced Strategy = "load-balanced"
	// StrategyAdaptive combines capability match and load balance.
	StrategyAdaptive Strategy = "adaptive"
	// StrategyPriorityBased routes high-priority tasks to the primary
	// flow and the rest by load.
	StrategyPriorityBased Strategy = "priority-based"
	// StrategyRoundRobin cycles through available flows in
	// registration order, ignoring task content.
	StrategyRoundRobin Strategy = "round-robin"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyCapabilityBased, StrategyLoadBalanced, StrategyAdaptive,
		StrategyPriorityBased, StrategyRoundRobin:
		return true
	default:
		return false
	}
}

// Decision is one delegation decision: the target flow, a human-readable
// reason, a confidence score in [0,1], and the alternatives considered.
type Decision struct {
	// Flow is the chosen target.
	Flow string `json:"flow"`
	// Reason explains the choice.
	Reason string `json:"reason"`
	// Confidence is the strategy's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Alternatives lists the other flows considered.
	Alternatives []string `json:"alternatives,omitempty"`
	// Strategy is the strategy that produced the decision.
	Strategy Strategy `json:"strategy"`
	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// Adaptive strategy weights: the same family as the portal scorer, where
// capability match weighs 3 and idle capacity weighs 5.
const (
	adaptiveCapabilityWeight = 3.0
	adaptiveIdleWeight       = 5.0
)

// roundRobinConfidence is nominal: round-robin uses no content signal.
const roundRobinConfidence = 0.5

// decide runs the configured strategy over the currently available flows.
// advanceCursor controls whether round-robin state moves; dry runs leave
// it untouched.
func (c *Coordinator) decide(task *models.Task, advanceCursor bool) (*Decision, error) {
	available := c.registry.GetAvailable()
	if len(available) == 0 {
		return nil, &flow.RoutingError{Reason: "no available flows"}
	}

	var d *Decision
	switch c.cfg.Strategy {
	case StrategyCapabilityBased:
		d = c.decideCapability(task, available)
	case StrategyAdaptive:
		d = c.decideAdaptive(task, available)
	case StrategyPriorityBased:
		d = c.decidePriority(task, available)
	case StrategyRoundRobin:
		d = c.decideRoundRobin(available, advanceCursor)
	default:
		d = c.decideLoadBalanced(available)
	}

	d.Strategy = c.cfg.Strategy
	d.Timestamp = time.Now()
	return d, nil
}

// decideCapability restricts candidates to flows covering the task's
// inferred capability requirements, preferring the highest match count.
// Confidence is the matched/required ratio of the winner.
func (c *Coordinator) decideCapability(task *models.Task, available []*flow.Adapter) *Decision {
	required := portal.InferCapabilities(task)
	if len(required) == 0 {
		d := c.decideLoadBalanced(available)
		d.Reason = "no capability requirements inferred; " + d.Reason
		return d
	}

	best := available[0]
	bestMatched := countMatches(best.Capabilities(), required)
	for _, a := range available[1:] {
		if matched := countMatches(a.Capabilities(), required); matched > bestMatched {
			best = a
			bestMatched = matched
		}
	}

	return &Decision{
		Flow: best.Name(),
		Reason: fmt.Sprintf("capability match %d/%d for [%s]",
			bestMatched, len(required), strings.Join(required, " ")),
		Confidence:   float64(bestMatched) / float64(len(required)),
		Alternatives: alternatives(available, best.Name()),
	}
}

// decideLoadBalanced picks the available flow with the lowest load ratio.
// Confidence is the winner's idle-capacity fraction.
func (c *Coordinator) decideLoadBalanced(available []*flow.Adapter) *Decision {
	best := available[0]
	bestSnap := best.Snapshot()
	bestRatio := bestSnap.LoadRatio()
	for _, a := range available[1:] {
		snap := a.Snapshot()
		if ratio := snap.LoadRatio(); ratio < bestRatio {
			best = a
			bestRatio = ratio
		}
	}

	return &Decision{
		Flow:         best.Name(),
		Reason:       fmt.Sprintf("lowest load ratio %.2f", bestRatio),
		Confidence:   1 - bestRatio,
		Alternatives: alternatives(available, best.Name()),
	}
}

// decideAdaptive combines capability match and idle capacity linearly.
// Confidence is the winner's combined score normalized to [0,1].
func (c *Coordinator) decideAdaptive(task *models.Task, available []*flow.Adapter) *Decision {
	required := portal.InferCapabilities(task)

	score := func(a *flow.Adapter) float64 {
		matched := countMatches(a.Capabilities(), required)
		snap := a.Snapshot()
		idle := 1 - snap.LoadRatio()
		return adaptiveCapabilityWeight*float64(matched) + adaptiveIdleWeight*idle
	}

	best := available[0]
	bestScore := score(best)
	for _, a := range available[1:] {
		if s := score(a); s > bestScore {
			best = a
			bestScore = s
		}
	}

	maxScore := adaptiveCapabilityWeight*float64(len(required)) + adaptiveIdleWeight
	return &Decision{
		Flow:         best.Name(),
		Reason:       fmt.Sprintf("adaptive score %.2f (capability + load)", bestScore),
		Confidence:   bestScore / maxScore,
		Alternatives: alternatives(available, best.Name()),
	}
}

// decidePriority routes tasks at or above the priority threshold to the
// primary flow with full confidence; everything else is load-balanced.
func (c *Coordinator) decidePriority(task *models.Task, available []*flow.Adapter) *Decision {
	if task.Priority >= c.cfg.PriorityThreshold && c.cfg.PrimaryFlow != "" {
		for _, a := range available {
			if a.Name() == c.cfg.PrimaryFlow {
				return &Decision{
					Flow:         a.Name(),
					Reason:       fmt.Sprintf("priority %d routed to primary flow", task.Priority),
					Confidence:   1.0,
					Alternatives: alternatives(available, a.Name()),
				}
			}
		}
	}
	return c.decideLoadBalanced(available)
}

// decideRoundRobin cycles through available flows in registration order,
// independent of task content.
func (c *Coordinator) decideRoundRobin(available []*flow.Adapter, advanceCursor bool) *Decision {
	c.mu.Lock()
	idx := c.rrCursor % len(available)
	if advanceCursor {
		c.rrCursor++
	}
	c.mu.Unlock()

	chosen := available[idx]
	return &Decision{
		Flow:         chosen.Name(),
		Reason:       fmt.Sprintf("round-robin position %d", idx),
		Confidence:   roundRobinConfidence,
		Alternatives: alternatives(available, chosen.Name()),
	}
}

func countMatches(declared, required []string) int {
	set := make(map[string]bool, len(declared))
	for _, c := range declared {
		set[c] = true
	}
	matched := 0
	for _, r := range required {
		if set[r] {
			matched++
		}
	}
	return matched
}

func alternatives(available []*flow.Adapter, chosen string) []string {
	var names []string
	for _, a := range available {
		if a.Name() != chosen {
			names = append(names, a.Name())
		}
	}
	return names
}
