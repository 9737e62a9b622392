// Package tui provides the live watch dashboard for flowdeck.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowdeck/flowdeck/internal/coordinator"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// maxEventLog caps the in-memory event feed.
const maxEventLog = 200

// FlowEventMsg wraps an emitter event for the dashboard.
type FlowEventMsg flow.Event

// tickMsg drives the periodic snapshot refresh.
type tickMsg time.Time

// LogEntry is one line in the event feed.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// Sources supplies the dashboard with live data. Fields may be nil; the
// corresponding panel section is then omitted.
type Sources struct {
	// Flows returns the current registry snapshot.
	Flows func() []models.FlowInstance
	// Metrics returns coordinator performance counters.
	Metrics func() coordinator.PerformanceMetrics
	// InFlight returns the number of delegations in flight.
	InFlight func() int
}

// Dashboard is the bubbletea model for flowdeck watch.
type Dashboard struct {
	sources Sources
	refresh time.Duration

	// flowTable lists the registered flows.
	flowTable table.Model
	// logs is the event feed, newest last.
	logs []LogEntry
	// width and height track the terminal size.
	width  int
	height int
	// quitting indicates the dashboard is shutting down.
	quitting bool

	titleStyle  lipgloss.Style
	statsStyle  lipgloss.Style
	hintStyle   lipgloss.Style
	errorStyle  lipgloss.Style
	statusStyle map[models.FlowStatus]lipgloss.Style
}

// NewDashboard creates a dashboard refreshing at the given rate.
func NewDashboard(sources Sources, refresh time.Duration) *Dashboard {
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}

	columns := []table.Column{
		{Title: "Flow", Width: 18},
		{Title: "Type", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Load", Width: 8},
		{Title: "Capabilities", Width: 32},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return &Dashboard{
		sources:   sources,
		refresh:   refresh,
		flowTable: t,

		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true),
		statsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		statusStyle: map[models.FlowStatus]lipgloss.Style{
			models.FlowStatusAvailable: lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
			models.FlowStatusBusy:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			models.FlowStatusError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			models.FlowStatusOffline:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	d.refreshRows()
	return d.tick()
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.quitting = true
			return d, tea.Quit
		}
		var cmd tea.Cmd
		d.flowTable, cmd = d.flowTable.Update(msg)
		return d, cmd

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height

	case tickMsg:
		d.refreshRows()
		return d, d.tick()

	case FlowEventMsg:
		d.appendEvent(flow.Event(msg))
	}

	return d, nil
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.quitting {
		return "Goodbye!\n"
	}

	sections := []string{
		d.titleStyle.Render("flowdeck watch"),
		d.flowTable.View(),
	}
	if stats := d.viewStats(); stats != "" {
		sections = append(sections, stats)
	}
	sections = append(sections,
		d.viewLogs(),
		d.hintStyle.Render("↑/↓ select flow │ q quit"),
	)
	return strings.Join(sections, "\n\n")
}

// refreshRows pulls a fresh registry snapshot into the table.
func (d *Dashboard) refreshRows() {
	if d.sources.Flows == nil {
		return
	}
	flows := d.sources.Flows()
	sort.Slice(flows, func(i, j int) bool { return flows[i].Name < flows[j].Name })

	rows := make([]table.Row, 0, len(flows))
	for _, f := range flows {
		status := string(f.Status)
		if style, ok := d.statusStyle[f.Status]; ok {
			status = style.Render(status)
		}
		rows = append(rows, table.Row{
			f.Name,
			string(f.Type),
			status,
			fmt.Sprintf("%d/%d", f.CurrentLoad, f.MaxLoad),
			strings.Join(f.Capabilities, ", "),
		})
	}
	d.flowTable.SetRows(rows)
}

// viewStats renders the coordinator counters line.
func (d *Dashboard) viewStats() string {
	if d.sources.Metrics == nil {
		return ""
	}
	m := d.sources.Metrics()
	parts := []string{
		fmt.Sprintf("delegated %d", m.TotalDelegations),
		fmt.Sprintf("✓%d", m.Succeeded),
		fmt.Sprintf("✗%d", m.Failed),
	}
	if m.TotalDelegations > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%% ok", m.SuccessRate*100))
		parts = append(parts, fmt.Sprintf("avg %s", m.AverageDuration.Round(time.Millisecond)))
	}
	if d.sources.InFlight != nil {
		parts = append(parts, fmt.Sprintf("in flight %d", d.sources.InFlight()))
	}
	return d.statsStyle.Render(strings.Join(parts, " │ "))
}

// viewLogs renders the most recent event feed lines.
func (d *Dashboard) viewLogs() string {
	if len(d.logs) == 0 {
		return d.hintStyle.Render("No events yet")
	}

	// Show the most recent entries (up to 10)
	start := 0
	if len(d.logs) > 10 {
		start = len(d.logs) - 10
	}

	var b strings.Builder
	for _, entry := range d.logs[start:] {
		line := fmt.Sprintf("  %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
		if entry.Level == "ERROR" {
			line = d.errorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// appendEvent converts an emitter event into a feed entry.
func (d *Dashboard) appendEvent(ev flow.Event) {
	entry := LogEntry{Timestamp: ev.Timestamp, Level: "INFO"}
	switch ev.Type {
	case flow.EventStatusChanged:
		entry.Message = fmt.Sprintf("%s: %s → %s", ev.Flow, ev.OldStatus, ev.NewStatus)
		if ev.NewStatus == models.FlowStatusError {
			entry.Level = "ERROR"
		}
	case flow.EventLoadChanged:
		entry.Message = fmt.Sprintf("%s: load %d → %d", ev.Flow, ev.OldLoad, ev.NewLoad)
	case flow.EventExecutionError:
		entry.Level = "ERROR"
		entry.Message = fmt.Sprintf("%s: execution error: %v", ev.Flow, ev.Err)
	case flow.EventTaskDelegated:
		entry.Message = fmt.Sprintf("%s: task %s delegated (%s)", ev.Flow, shortID(ev.TaskID), ev.Message)
	case flow.EventCoordinationDecision:
		entry.Message = fmt.Sprintf("%s: selected for task %s: %s", ev.Flow, shortID(ev.TaskID), ev.Message)
	default:
		entry.Message = fmt.Sprintf("%s: %s", ev.Flow, ev.Type)
	}

	d.logs = append(d.logs, entry)
	if len(d.logs) > maxEventLog {
		d.logs = d.logs[len(d.logs)-maxEventLog:]
	}
}

// shortID truncates a task ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Logs returns a copy of the current event feed.
func (d *Dashboard) Logs() []LogEntry {
	out := make([]LogEntry, len(d.logs))
	copy(out, d.logs)
	return out
}

// NewProgram creates a bubbletea program for the dashboard. Callers feed
// emitter events in via Send(FlowEventMsg(ev)).
func NewProgram(sources Sources, refresh time.Duration) (*tea.Program, *Dashboard) {
	d := NewDashboard(sources, refresh)
	p := tea.NewProgram(d, tea.WithAltScreen())
	return p, d
}
