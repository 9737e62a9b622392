package portal

import (
	"fmt"
	"sync"
)

const (
	// maxOutcomeHistory is the outcome log length that triggers a trim.
	maxOutcomeHistory = 1000
	// trimmedOutcomeHistory is the length kept after a batch trim.
	trimmedOutcomeHistory = 800
)

// OutcomeRecord is one append-only entry in the routing outcome log.
type OutcomeRecord struct {
	// Pattern is the task digest the routing decision was made under.
	Pattern string
	// Flow is the flow that executed the task.
	Flow string
	// Success reports the execution outcome.
	Success bool
}

// history owns the routing cache and the capped outcome log. Appends and
// cache writes are serialized under one mutex so concurrent routing never
// loses entries or tears the batch trim.
type history struct {
	mu sync.Mutex
	// cache maps (pattern, priority) keys to the flow that last
	// succeeded for them. Entries are overwritten, never merged; stale
	// entries are validated at read time rather than evicted.
	cache map[string]string
	// outcomes is the append-only log, batch-trimmed: when length
	// exceeds maxOutcomeHistory it is cut to the most recent
	// trimmedOutcomeHistory entries.
	outcomes []OutcomeRecord
}

func newHistory() *history {
	return &history{cache: make(map[string]string)}
}

// cacheKey builds the routing cache key from a pattern and priority.
func cacheKey(pattern string, priority int) string {
	return fmt.Sprintf("%s|%d", pattern, priority)
}

// lookup returns the cached flow for the key, if any.
func (h *history) lookup(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.cache[key]
	return name, ok
}

// store overwrites the cache entry for the key.
func (h *history) store(key, flowName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache[key] = flowName
}

// record appends an outcome and batch-trims the log when it exceeds the cap.
func (h *history) record(pattern, flowName string, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, OutcomeRecord{Pattern: pattern, Flow: flowName, Success: success})
	if len(h.outcomes) > maxOutcomeHistory {
		trimmed := make([]OutcomeRecord, trimmedOutcomeHistory)
		copy(trimmed, h.outcomes[len(h.outcomes)-trimmedOutcomeHistory:])
		h.outcomes = trimmed
	}
}

// successRate returns the historical success rate for the (pattern, flow)
// pair over the outcome log, or 0 when there is no history.
func (h *history) successRate(pattern, flowName string) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	total, succeeded := 0, 0
	for _, rec := range h.outcomes {
		if rec.Pattern == pattern && rec.Flow == flowName {
			total++
			if rec.Success {
				succeeded++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(succeeded) / float64(total)
}

// length returns the current outcome log length.
func (h *history) length() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.outcomes)
}

// cacheSize returns the number of cached routing entries.
func (h *history) cacheSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cache)
}

// flowCounts aggregates per-flow usage and success counts from the log.
func (h *history) flowCounts() (usage map[string]int, successes map[string]int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	usage = make(map[string]int)
	successes = make(map[string]int)
	for _, rec := range h.outcomes {
		usage[rec.Flow]++
		if rec.Success {
			successes[rec.Flow]++
		}
	}
	return usage, successes
}
