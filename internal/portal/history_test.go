package portal

import (
	"fmt"
	"sync"
	"testing"
)

func TestHistory_RecordAndSuccessRate(t *testing.T) {
	h := newHistory()

	h.record("cod:short:coding", "alpha", true)
	h.record("cod:short:coding", "alpha", true)
	h.record("cod:short:coding", "alpha", false)
	h.record("res:short:research", "beta", false)

	tests := []struct {
		name    string
		pattern string
		flow    string
		want    float64
	}{
		{"two of three succeeded", "cod:short:coding", "alpha", 2.0 / 3.0},
		{"all failed", "res:short:research", "beta", 0},
		{"no history", "ana:short:analysis", "alpha", 0},
		{"wrong flow", "cod:short:coding", "beta", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.successRate(tt.pattern, tt.flow); got != tt.want {
				t.Errorf("successRate(%q, %q) = %v, want %v", tt.pattern, tt.flow, got, tt.want)
			}
		})
	}
}

// TestHistory_BatchTrim checks the literal truncation boundary: the log
// grows to 1000, and appending the 1001st entry cuts it to the newest 800.
func TestHistory_BatchTrim(t *testing.T) {
	h := newHistory()

	for i := 0; i < maxOutcomeHistory; i++ {
		h.record(fmt.Sprintf("p%d", i), "alpha", true)
	}
	if got := h.length(); got != maxOutcomeHistory {
		t.Fatalf("length() = %d, want %d before trim", got, maxOutcomeHistory)
	}

	h.record("final", "alpha", true)
	if got := h.length(); got != trimmedOutcomeHistory {
		t.Fatalf("length() = %d, want %d after trim", got, trimmedOutcomeHistory)
	}

	// The oldest 201 entries are gone; the newest survive.
	if got := h.successRate("p0", "alpha"); got != 0 {
		t.Error("oldest entry survived the trim")
	}
	if got := h.successRate("p999", "alpha"); got != 1 {
		t.Error("newest pre-trim entry was dropped")
	}
	if got := h.successRate("final", "alpha"); got != 1 {
		t.Error("triggering entry was dropped")
	}
}

func TestHistory_CacheOverwrite(t *testing.T) {
	h := newHistory()
	key := cacheKey("cod:short:coding", 2)

	h.store(key, "alpha")
	h.store(key, "beta")

	got, ok := h.lookup(key)
	if !ok || got != "beta" {
		t.Errorf("lookup() = %q, %v; want beta (entries overwrite, not merge)", got, ok)
	}

	if _, ok := h.lookup(cacheKey("cod:short:coding", 3)); ok {
		t.Error("lookup() hit for a different priority")
	}
}

// TestHistory_ConcurrentAppends checks that concurrent appends are never
// lost below the trim threshold.
func TestHistory_ConcurrentAppends(t *testing.T) {
	h := newHistory()
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				h.record(fmt.Sprintf("w%d", w), "alpha", true)
			}
		}(w)
	}
	wg.Wait()

	if got := h.length(); got != workers*perWorker {
		t.Errorf("length() = %d, want %d (appends lost)", got, workers*perWorker)
	}
}
