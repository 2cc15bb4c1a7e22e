// Package tui implements the live terminal dashboard: a periodically
// refreshed view of the event store and the current automation
// recommendations.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/analysis"
	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/version"
)

// defaultRefreshInterval is how often the dashboard recomputes the
// analysis unless the caller overrides it.
const defaultRefreshInterval = 5 * time.Second

// Model represents the dashboard TUI model
type Model struct {
	ctx     context.Context
	cfg     *config.Config
	store   events.Store
	table   table.Model
	refresh time.Duration
	result  *analysis.Result
	summary *events.Summary
	err     error

	ready       bool
	refreshing  bool
	lastRefresh time.Time
	width       int
	height      int

	titleStyle  lipgloss.Style
	labelStyle  lipgloss.Style
	statusStyle lipgloss.Style
	errorStyle  lipgloss.Style
}

type refreshTickMsg time.Time

// refreshDoneMsg carries one completed refresh pass.
type refreshDoneMsg struct {
	result  *analysis.Result
	summary *events.Summary
	err     error
}

// NewModel creates a new dashboard model. A refresh of zero or less
// falls back to the default interval.
func NewModel(ctx context.Context, cfg *config.Config, store events.Store, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = defaultRefreshInterval
	}

	columns := []table.Column{
		{Title: "Target", Width: 22},
		{Title: "Priority", Width: 10},
		{Title: "Count", Width: 7},
		{Title: "Per Day", Width: 9},
		{Title: "Sources", Width: 16},
		{Title: "Reason", Width: 48},
	}

	tbl := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("205")).
		Bold(true)
	tbl.SetStyles(styles)

	return Model{
		ctx:        ctx,
		cfg:        cfg,
		store:      store,
		table:      tbl,
		refresh:    refresh,
		refreshing: true,
		titleStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		labelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		statusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true),
	}
}

// Init schedules the first refresh and the periodic tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.scheduleRefresh())
}

// refreshCmd recomputes the analysis and store summary off the UI loop.
func (m Model) refreshCmd() tea.Cmd {
	ctx, cfg, store := m.ctx, m.cfg, m.store
	return func() tea.Msg {
		result, err := analysis.Run(ctx, cfg, store, analysis.Options{})
		if err != nil {
			return refreshDoneMsg{err: err}
		}
		summary, err := store.Summary(ctx)
		if err != nil {
			return refreshDoneMsg{result: result, err: err}
		}
		return refreshDoneMsg{result: result, summary: summary}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// Update handles the message updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, m.refreshCmd()
		}

	case refreshTickMsg:
		if m.refreshing {
			return m, m.scheduleRefresh()
		}
		m.refreshing = true
		return m, tea.Batch(m.refreshCmd(), m.scheduleRefresh())

	case refreshDoneMsg:
		m.refreshing = false
		m.lastRefresh = time.Now()
		m.err = msg.err
		if msg.result != nil {
			m.result = msg.result
			m.table.SetRows(BuildRows(msg.result))
		}
		if msg.summary != nil {
			m.summary = msg.summary
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 3
		tableHeight := msg.Height - headerHeight - footerHeight
		if tableHeight < 3 {
			tableHeight = 3
		}
		m.table.SetHeight(tableHeight)

		if !m.ready {
			m.ready = true
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		m.table.View(),
		m.statusView(),
	)
}

// headerView renders the title and the store/analysis summary lines.
func (m Model) headerView() string {
	title := m.titleStyle.Render(fmt.Sprintf("Hindsight (%s)", version.Version))

	summaryLine := "store summary pending"
	if m.summary != nil {
		summaryLine = fmt.Sprintf("%d events stored / %d recorded all-time",
			m.summary.TotalEvents, m.summary.TotalRecorded)
	}

	analysisLine := "first analysis pending"
	if m.result != nil {
		analysisLine = fmt.Sprintf("window %dd / min %d / threshold %s / %s",
			m.result.WindowDays, m.result.MinOccurrences, m.result.AutoThreshold, CountsLine(m.result))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.labelStyle.Render(summaryLine),
		m.labelStyle.Render(analysisLine),
		"",
	)
}

// statusView renders the status bar
func (m Model) statusView() string {
	status := "Idle"
	if m.refreshing {
		status = "Refreshing..."
	} else if !m.lastRefresh.IsZero() {
		status = fmt.Sprintf("Refreshed %s", m.lastRefresh.Format("15:04:05"))
	}

	line := m.statusStyle.Render(status + " │ q: Quit │ r: Refresh │ ↑/↓: Scroll")
	if m.err != nil {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.errorStyle.Render("analysis error: "+m.err.Error()),
			line,
		)
	}
	return line
}

// StartDashboard runs the dashboard until the user quits.
func StartDashboard(ctx context.Context, cfg *config.Config, store events.Store, refresh time.Duration) error {
	p := tea.NewProgram(NewModel(ctx, cfg, store, refresh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "error running dashboard")
	}
	return nil
}
