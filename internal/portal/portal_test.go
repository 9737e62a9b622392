package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/registry"
	"github.com/flowdeck/flowdeck/pkg/models"
)

func newFlow(t *testing.T, name string, flowType models.FlowType, caps []string, maxLoad int, backend flow.Backend) *flow.Adapter {
	t.Helper()
	if backend == nil {
		backend = flow.NewMockBackend()
	}
	a, err := flow.NewAdapter(flow.Config{
		Name:         name,
		Type:         flowType,
		Capabilities: caps,
		MaxLoad:      maxLoad,
		Timeout:      5 * time.Second,
	}, backend, nil, nil)
	if err != nil {
		t.Fatalf("NewAdapter(%s) error = %v", name, err)
	}
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize(%s) error = %v", name, err)
	}
	return a
}

// TestPortal_CapabilityMatchWins routes a code-generation task between a
// coding flow and a research flow with equal loads: the capability match
// must decide.
func TestPortal_CapabilityMatchWins(t *testing.T) {
	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 3, nil))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"research"}, 2, nil))

	p := New(reg, Config{AutoDetect: true, DefaultFlow: "B"})

	task := models.NewTask("implement function", models.TaskTypeCodeGeneration, 1)
	result, err := p.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask() error = %v", err)
	}
	if result.FlowName != "A" {
		t.Errorf("RouteTask() chose %q, want A (capability match)", result.FlowName)
	}
}

// TestPortal_Fallback exercises the chain: the primary flow fails on
// execution, the portal must attempt the next available flow, record one
// failed outcome for the primary and one success for the fallback.
func TestPortal_Fallback(t *testing.T) {
	failing := flow.NewMockBackend()
	failing.ScriptErrors(errors.New("backend down"))

	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 2, failing))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"coding"}, 2, nil))

	p := New(reg, Config{DefaultFlow: "A", FallbackChain: []string{"A", "B"}})

	task := models.NewTask("implement function", models.TaskTypeCodeGeneration, 1)
	result, err := p.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask() error = %v", err)
	}
	if !result.Success || result.FlowName != "B" {
		t.Fatalf("RouteTask() = {Success:%v Flow:%q}, want success on B", result.Success, result.FlowName)
	}

	stats := p.Stats()
	if stats.FlowUsage["A"] != 1 || stats.FlowSuccessRates["A"] != 0 {
		t.Errorf("flow A outcomes = %d (success rate %v), want exactly one failure",
			stats.FlowUsage["A"], stats.FlowSuccessRates["A"])
	}
	if stats.FlowUsage["B"] != 1 || stats.FlowSuccessRates["B"] != 1 {
		t.Errorf("flow B outcomes = %d (success rate %v), want exactly one success",
			stats.FlowUsage["B"], stats.FlowSuccessRates["B"])
	}
}

func TestPortal_FallbackExhausted(t *testing.T) {
	failingA := flow.NewMockBackend()
	failingA.ScriptErrors(errors.New("a down"))
	failingB := flow.NewMockBackend()
	failingB.ScriptErrors(errors.New("b down"))

	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, nil, 2, failingA))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, nil, 2, failingB))

	p := New(reg, Config{DefaultFlow: "A", FallbackChain: []string{"B"}})

	result, err := p.RouteTask(context.Background(), models.NewTask("x", models.TaskTypeGeneral, 1))
	if err != nil {
		t.Fatalf("RouteTask() error = %v, want the original failed result", err)
	}
	if result.Success {
		t.Error("result.Success = true after full chain failure")
	}
	if result.FlowName != "A" {
		t.Errorf("result.FlowName = %q, want the original flow A", result.FlowName)
	}
}

// TestPortal_CacheHit verifies that a prior successful routing pins the
// same flow for a matching (pattern, priority), bypassing scoring.
func TestPortal_CacheHit(t *testing.T) {
	reg := registry.New()
	// B would out-score A on capability match, so a second routing that
	// still lands on A proves the cache decided.
	reg.Register(newFlow(t, "A", models.FlowTypeMock, nil, 4, nil))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"coding"}, 4, nil))

	p := New(reg, Config{AutoDetect: true, DefaultFlow: "A"})

	task := models.NewTask("implement function", models.TaskTypeCodeGeneration, 1)
	key := cacheKey(Pattern(task), task.Priority)
	p.history.store(key, "A")
	p.history.record(Pattern(task), "A", true)

	result, err := p.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask() error = %v", err)
	}
	if result.FlowName != "A" {
		t.Errorf("RouteTask() chose %q, want cached flow A", result.FlowName)
	}
}

// TestPortal_StaleCacheEntryIgnored verifies that a cached flow that is no
// longer available is ignored and the task re-scored.
func TestPortal_StaleCacheEntryIgnored(t *testing.T) {
	reg := registry.New()
	a := newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 2, nil)
	reg.Register(a)
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"coding"}, 2, nil))

	p := New(reg, Config{AutoDetect: true, DefaultFlow: "B"})

	task := models.NewTask("implement function", models.TaskTypeCodeGeneration, 1)
	p.history.store(cacheKey(Pattern(task), task.Priority), "A")
	a.MarkError()

	result, err := p.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask() error = %v", err)
	}
	if result.FlowName != "B" {
		t.Errorf("RouteTask() chose %q, want B (stale cache entry must be ignored)", result.FlowName)
	}
}

func TestPortal_CacheNotUpdatedOnFailure(t *testing.T) {
	failing := flow.NewMockBackend()
	failing.ScriptErrors(errors.New("down"))

	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, nil, 2, failing))

	p := New(reg, Config{DefaultFlow: "A"})

	task := models.NewTask("x", models.TaskTypeGeneral, 1)
	if _, err := p.RouteTask(context.Background(), task); err != nil {
		t.Fatalf("RouteTask() error = %v", err)
	}

	if _, ok := p.history.lookup(cacheKey(Pattern(task), task.Priority)); ok {
		t.Error("cache updated on a failed routing")
	}
}

func TestPortal_DefaultFlowWhenAutoDetectOff(t *testing.T) {
	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 2, nil))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"research"}, 2, nil))

	p := New(reg, Config{AutoDetect: false, DefaultFlow: "B"})

	result, err := p.RouteTask(context.Background(), models.NewTask("implement function", models.TaskTypeCodeGeneration, 1))
	if err != nil {
		t.Fatalf("RouteTask() error = %v", err)
	}
	if result.FlowName != "B" {
		t.Errorf("RouteTask() chose %q, want configured default B", result.FlowName)
	}
}

func TestPortal_NoFlows(t *testing.T) {
	p := New(registry.New(), Config{AutoDetect: true})

	_, err := p.RouteTask(context.Background(), models.NewTask("x", models.TaskTypeGeneral, 1))
	if !flow.IsRouting(err) {
		t.Errorf("RouteTask() error = %v, want RoutingError", err)
	}
}

func TestPortal_RecommendFlow(t *testing.T) {
	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 3, nil))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"research"}, 2, nil))

	p := New(reg, Config{AutoDetect: true})

	name, err := p.RecommendFlow(models.NewTask("research the ecosystem", models.TaskTypeResearch, 1))
	if err != nil {
		t.Fatalf("RecommendFlow() error = %v", err)
	}
	if name != "B" {
		t.Errorf("RecommendFlow() = %q, want B", name)
	}

	// Dry-run: no outcome or routing state may change.
	if got := p.Stats().TotalRouted; got != 0 {
		t.Errorf("TotalRouted = %d after RecommendFlow, want 0", got)
	}
	if got := p.history.length(); got != 0 {
		t.Errorf("history length = %d after RecommendFlow, want 0", got)
	}
}

func TestPortal_TypeBonuses(t *testing.T) {
	tests := []struct {
		name        string
		flowType    models.FlowType
		taskType    models.TaskType
		priority    int
		description string
		rival       models.FlowType
	}{
		{"multimodal bonus on visual terms", models.FlowTypeGemini, models.TaskTypeGeneral, 1, "describe this image", models.FlowTypeMock},
		{"privacy bonus on confidential terms", models.FlowTypeLocal, models.TaskTypeGeneral, 1, "summarize confidential notes", models.FlowTypeMock},
		{"coordination bonus on high priority", models.FlowTypeCoordinator, models.TaskTypeGeneral, 3, "urgent work", models.FlowTypeMock},
		{"coordination bonus on orchestration", models.FlowTypeCoordinator, models.TaskTypeOrchestration, 1, "sequence the jobs", models.FlowTypeMock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New()
			reg.Register(newFlow(t, "rival", tt.rival, nil, 2, nil))
			reg.Register(newFlow(t, "bonused", tt.flowType, nil, 2, nil))

			p := New(reg, Config{AutoDetect: true})
			task := models.NewTask(tt.description, tt.taskType, tt.priority)

			name, err := p.RecommendFlow(task)
			if err != nil {
				t.Fatalf("RecommendFlow() error = %v", err)
			}
			if name != "bonused" {
				t.Errorf("RecommendFlow() = %q, want bonused flow to win on its type bonus", name)
			}
		})
	}
}

func TestPortal_TieBreakFirstRegistered(t *testing.T) {
	reg := registry.New()
	reg.Register(newFlow(t, "first", models.FlowTypeMock, []string{"coding"}, 2, nil))
	reg.Register(newFlow(t, "second", models.FlowTypeMock, []string{"coding"}, 2, nil))

	p := New(reg, Config{AutoDetect: true})

	name, err := p.RecommendFlow(models.NewTask("implement function", models.TaskTypeCodeGeneration, 1))
	if err != nil {
		t.Fatalf("RecommendFlow() error = %v", err)
	}
	if name != "first" {
		t.Errorf("RecommendFlow() = %q, want first (stable tie-break)", name)
	}
}

func TestPortal_CapableFlows(t *testing.T) {
	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 2, nil))
	reg.Register(newFlow(t, "B", models.FlowTypeMock, []string{"research", "coding"}, 2, nil))

	p := New(reg, Config{})

	got := p.CapableFlows("coding")
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("CapableFlows(coding) = %v, want [A B]", got)
	}
}

func TestPortal_Stats(t *testing.T) {
	reg := registry.New()
	reg.Register(newFlow(t, "A", models.FlowTypeMock, []string{"coding"}, 2, nil))

	p := New(reg, Config{AutoDetect: true})

	for i := 0; i < 3; i++ {
		task := models.NewTask("implement function", models.TaskTypeCodeGeneration, 1)
		if _, err := p.RouteTask(context.Background(), task); err != nil {
			t.Fatalf("RouteTask() error = %v", err)
		}
	}

	stats := p.Stats()
	if stats.TotalRouted != 3 {
		t.Errorf("TotalRouted = %d, want 3", stats.TotalRouted)
	}
	if stats.HistoryLength != 3 {
		t.Errorf("HistoryLength = %d, want 3", stats.HistoryLength)
	}
	if stats.FlowUsage["A"] != 3 {
		t.Errorf("FlowUsage[A] = %d, want 3", stats.FlowUsage["A"])
	}
	if stats.FlowSuccessRates["A"] != 1 {
		t.Errorf("FlowSuccessRates[A] = %v, want 1", stats.FlowSuccessRates["A"])
	}
	// One cache entry over three outcomes.
	want := 1.0 / 3.0
	if diff := stats.CacheHitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CacheHitRate = %v, want %v", stats.CacheHitRate, want)
	}
}
