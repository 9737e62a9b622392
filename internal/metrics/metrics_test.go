package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/pkg/models"
)

func TestMetrics_Observe(t *testing.T) {
	m := New("flowdeck")

	m.Observe(flow.Event{Type: flow.EventLoadChanged, Flow: "A", OldLoad: 0, NewLoad: 2})
	m.Observe(flow.Event{Type: flow.EventStatusChanged, Flow: "A", NewStatus: models.FlowStatusAvailable})
	m.Observe(flow.Event{Type: flow.EventStatusChanged, Flow: "A", NewStatus: models.FlowStatusError})
	m.Observe(flow.Event{Type: flow.EventExecutionError, Flow: "A", Err: errors.New("backend down")})
	m.Observe(flow.Event{Type: flow.EventTaskDelegated, Flow: "A", TaskID: "t1"})
	m.Observe(flow.Event{Type: flow.EventCoordinationDecision, Flow: "A"})

	if got := testutil.ToFloat64(m.FlowLoad.WithLabelValues("A")); got != 2 {
		t.Errorf("flow_load = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FlowAvailable.WithLabelValues("A")); got != 0 {
		t.Errorf("flow_available = %v, want 0 after error transition", got)
	}
	if got := testutil.ToFloat64(m.StatusChangesTotal.WithLabelValues("A", "error")); got != 1 {
		t.Errorf("status_changes_total{status=error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ExecutionErrorsTotal.WithLabelValues("A")); got != 1 {
		t.Errorf("execution_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DelegationsTotal.WithLabelValues("A")); got != 1 {
		t.Errorf("delegations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DecisionsTotal); got != 1 {
		t.Errorf("coordination_decisions_total = %v, want 1", got)
	}
}

func TestObserver_DrainsEmitter(t *testing.T) {
	m := New("flowdeck")
	emitter := flow.NewEmitter(10)
	o := NewObserver(m, emitter)
	defer o.Close()

	emitter.Emit(flow.Event{Type: flow.EventTaskDelegated, Flow: "A"})
	emitter.Emit(flow.Event{Type: flow.EventTaskDelegated, Flow: "A"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(m.DelegationsTotal.WithLabelValues("A")) == 2 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("delegations_total = %v, want 2",
		testutil.ToFloat64(m.DelegationsTotal.WithLabelValues("A")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("flowdeck")
	m.Observe(flow.Event{Type: flow.EventLoadChanged, Flow: "A", NewLoad: 1})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "flowdeck_flow_load") {
		t.Error("exposition output missing flowdeck_flow_load")
	}
}
