package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flowdeck/flowdeck/internal/coordinator"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/pkg/models"
)

func testSources() Sources {
	return Sources{
		Flows: func() []models.FlowInstance {
			return []models.FlowInstance{
				{Name: "claude-main", Type: models.FlowTypeClaude, Status: models.FlowStatusAvailable, CurrentLoad: 1, MaxLoad: 3, Capabilities: []string{"coding"}},
				{Name: "mock", Type: models.FlowTypeMock, Status: models.FlowStatusOffline, MaxLoad: 3},
			}
		},
		Metrics: func() coordinator.PerformanceMetrics {
			return coordinator.PerformanceMetrics{TotalDelegations: 4, Succeeded: 3, Failed: 1, SuccessRate: 0.75, AverageDuration: 120 * time.Millisecond}
		},
		InFlight: func() int { return 2 },
	}
}

func TestDashboard_RefreshRows(t *testing.T) {
	d := NewDashboard(testSources(), time.Second)
	d.refreshRows()

	rows := d.flowTable.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Sorted by name.
	if rows[0][0] != "claude-main" || rows[1][0] != "mock" {
		t.Errorf("row order = [%s %s], want [claude-main mock]", rows[0][0], rows[1][0])
	}
	if rows[0][3] != "1/3" {
		t.Errorf("load cell = %q, want 1/3", rows[0][3])
	}
}

func TestDashboard_EventFeed(t *testing.T) {
	d := NewDashboard(testSources(), time.Second)

	events := []flow.Event{
		{Type: flow.EventStatusChanged, Flow: "A", OldStatus: models.FlowStatusOffline, NewStatus: models.FlowStatusAvailable, Timestamp: time.Now()},
		{Type: flow.EventLoadChanged, Flow: "A", OldLoad: 0, NewLoad: 1, Timestamp: time.Now()},
		{Type: flow.EventExecutionError, Flow: "A", Err: errors.New("backend down"), Timestamp: time.Now()},
	}
	for _, ev := range events {
		d.Update(FlowEventMsg(ev))
	}

	logs := d.Logs()
	if len(logs) != 3 {
		t.Fatalf("logs = %d, want 3", len(logs))
	}
	if !strings.Contains(logs[0].Message, "offline → available") {
		t.Errorf("status entry = %q", logs[0].Message)
	}
	if !strings.Contains(logs[1].Message, "load 0 → 1") {
		t.Errorf("load entry = %q", logs[1].Message)
	}
	if logs[2].Level != "ERROR" {
		t.Errorf("error event level = %q, want ERROR", logs[2].Level)
	}
}

func TestDashboard_EventFeedCapped(t *testing.T) {
	d := NewDashboard(testSources(), time.Second)
	for i := 0; i < maxEventLog+50; i++ {
		d.Update(FlowEventMsg(flow.Event{Type: flow.EventLoadChanged, Flow: "A", Timestamp: time.Now()}))
	}
	if got := len(d.Logs()); got != maxEventLog {
		t.Errorf("log length = %d, want %d", got, maxEventLog)
	}
}

func TestDashboard_QuitKey(t *testing.T) {
	d := NewDashboard(testSources(), time.Second)
	model, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q did not produce a command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("q produced %v, want tea.Quit", msg)
	}
	if view := model.View(); !strings.Contains(view, "Goodbye") {
		t.Errorf("quitting view = %q", view)
	}
}

func TestDashboard_View(t *testing.T) {
	d := NewDashboard(testSources(), time.Second)
	d.refreshRows()

	view := d.View()
	if !strings.Contains(view, "flowdeck watch") {
		t.Error("view missing title")
	}
	if !strings.Contains(view, "claude-main") {
		t.Error("view missing flow row")
	}
	if !strings.Contains(view, "delegated 4") || !strings.Contains(view, "in flight 2") {
		t.Error("view missing stats line")
	}
	if !strings.Contains(view, "No events yet") {
		t.Error("view missing empty event feed placeholder")
	}
}
