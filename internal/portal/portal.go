package portal

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/registry"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// Config holds the portal's routing settings, supplied by the
// configuration collaborator.
type Config struct {
	// DefaultFlow is used when auto-detection is disabled or yields
	// no candidate.
	DefaultFlow string
	// AutoDetect enables capability scoring over available flows.
	AutoDetect bool
	// FallbackChain is the ordered list of flows tried after the
	// primary choice fails.
	FallbackChain []string
	// Debug enables routing decision logging.
	Debug bool
}

// Portal routes tasks to flows: cache first, then capability scoring,
// then the configured default, learning from every outcome.
type Portal struct {
	cfg      Config
	registry *registry.Registry
	history  *history
	// routedCount counts RouteTask calls that reached execution.
	routedCount atomic.Int64
}

// New creates a Portal over the given registry.
func New(reg *registry.Registry, cfg Config) *Portal {
	return &Portal{
		cfg:      cfg,
		registry: reg,
		history:  newHistory(),
	}
}

// RouteTask picks one flow for the task, executes it, and learns from the
// outcome. On failure it walks the fallback chain in order, recording an
// outcome per attempt, and returns the first success; when the chain is
// exhausted the original failure is propagated.
func (p *Portal) RouteTask(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
	pattern := Pattern(task)
	key := cacheKey(pattern, task.Priority)

	target, fromCache := p.selectFlow(task, key)
	if target == "" {
		return nil, &flow.RoutingError{Reason: "no available flow for task " + task.ID}
	}
	p.routedCount.Add(1)
	p.debugLog("routing task %s to %s (pattern=%s cache_hit=%v)", task.ID, target, pattern, fromCache)

	result, err := p.registry.ExecuteOnFlow(ctx, target, task)
	if err == nil && result.Success {
		p.learn(key, pattern, target, true)
		return result, nil
	}

	// Record the failed primary attempt; a hard error (capacity, auth)
	// means the flow never ran the task, so only completed attempts are
	// logged as outcomes.
	if err == nil {
		p.history.record(pattern, target, false)
	}

	attempted := map[string]bool{target: true}
	for _, name := range p.cfg.FallbackChain {
		if attempted[name] {
			continue
		}
		attempted[name] = true

		a := p.registry.Get(name)
		if a == nil || a.Status() != models.FlowStatusAvailable {
			continue
		}
		p.debugLog("task %s falling back to %s", task.ID, name)

		fbResult, fbErr := p.registry.ExecuteOnFlow(ctx, name, task)
		if fbErr != nil {
			continue
		}
		p.history.record(pattern, name, fbResult.Success)
		if fbResult.Success {
			p.history.store(key, name)
			return fbResult, nil
		}
	}

	// Fallback exhausted: surface the original failure.
	if err != nil {
		return nil, err
	}
	return result, nil
}

// selectFlow resolves the target flow name for a task. A cached flow is
// used only when it is still available (stale entries are ignored and the
// task is re-scored); otherwise scoring or the default applies.
func (p *Portal) selectFlow(task *models.Task, key string) (name string, fromCache bool) {
	if cached, ok := p.history.lookup(key); ok {
		if a := p.registry.Get(cached); a != nil && a.Status() == models.FlowStatusAvailable {
			return cached, true
		}
	}

	if p.cfg.AutoDetect {
		if best := p.bestFlow(task); best != "" {
			return best, false
		}
	}

	if a := p.registry.Get(p.cfg.DefaultFlow); a != nil {
		return p.cfg.DefaultFlow, false
	}
	return "", false
}

// bestFlow scores every available flow and returns the maximum.
// Ties break toward the first-encountered flow in registration order.
func (p *Portal) bestFlow(task *models.Task) string {
	inferred := InferCapabilities(task)
	pattern := Pattern(task)

	best := ""
	bestScore := 0.0
	for _, a := range p.registry.GetAvailable() {
		score := scoreFlow(a, task, inferred, p.history.successRate(pattern, a.Name()))
		if best == "" || score > bestScore {
			best = a.Name()
			bestScore = score
		}
	}
	return best
}

// RecommendFlow returns the max-scoring available flow for a task without
// executing anything. Side-effect free.
func (p *Portal) RecommendFlow(task *models.Task) (string, error) {
	best := p.bestFlow(task)
	if best == "" {
		return "", &flow.RoutingError{Reason: "no available flow to recommend"}
	}
	return best, nil
}

// CapableFlows returns the names of flows declaring the capability.
func (p *Portal) CapableFlows(capability string) []string {
	adapters := p.registry.GetByCapability(capability)
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	return names
}

// learn records a successful outcome and refreshes the cache entry.
// The cache is only ever updated on success.
func (p *Portal) learn(key, pattern, flowName string, success bool) {
	p.history.record(pattern, flowName, success)
	if success {
		p.history.store(key, flowName)
	}
}

// RoutingStats summarizes portal activity for status tooling.
type RoutingStats struct {
	// TotalRouted counts tasks that reached execution.
	TotalRouted int64 `json:"total_routed"`
	// CacheHitRate approximates cache effectiveness as
	// cacheSize / max(historyLength, 1), capped at 1. Not an exact hit
	// counter; drifts when the outcome log is trimmed.
	CacheHitRate float64 `json:"cache_hit_rate"`
	// HistoryLength is the current outcome log length.
	HistoryLength int `json:"history_length"`
	// FlowUsage counts recorded outcomes per flow.
	FlowUsage map[string]int `json:"flow_usage"`
	// FlowSuccessRates maps flows to their success rate over the log.
	FlowSuccessRates map[string]float64 `json:"flow_success_rates"`
}

// Stats returns current routing statistics.
func (p *Portal) Stats() RoutingStats {
	usage, successes := p.history.flowCounts()
	rates := make(map[string]float64, len(usage))
	for name, count := range usage {
		rates[name] = float64(successes[name]) / float64(count)
	}

	histLen := p.history.length()
	denom := histLen
	if denom < 1 {
		denom = 1
	}
	hitRate := float64(p.history.cacheSize()) / float64(denom)
	if hitRate > 1 {
		hitRate = 1
	}

	return RoutingStats{
		TotalRouted:      p.routedCount.Load(),
		CacheHitRate:     hitRate,
		HistoryLength:    histLen,
		FlowUsage:        usage,
		FlowSuccessRates: rates,
	}
}

func (p *Portal) debugLog(format string, args ...interface{}) {
	if p.cfg.Debug {
		log.Printf("[portal] "+format, args...)
	}
}
