// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-platesolve/internal/history"
	"github.com/litescript/ls-platesolve/internal/platesolve"
	"github.com/litescript/ls-platesolve/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewProgress ViewMode = iota
	ViewHistory
)

// Msg types for Bubble Tea
type (
	// TickMsg refreshes the history snapshot.
	TickMsg time.Time

	// AnimTickMsg drives the spinner.
	AnimTickMsg time.Time

	// EventMsg carries a progress event from the solver goroutine.
	EventMsg struct {
		Event platesolve.Event
	}

	// DoneMsg signals that the job finished.
	DoneMsg struct {
		Result platesolve.PlateSolveResult
		Err    error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	title   string
	history *history.Manager
	cancel  context.CancelFunc

	viewMode ViewMode
	width    int
	height   int
	ready    bool
	animTick int

	progress    ProgressModel
	historyView HistoryModel

	done   bool
	result platesolve.PlateSolveResult
	err    error
}

// New creates the root model. threshold is the centering tolerance in
// arc-minutes, or 0 when not centering. cancel is called when the user quits
// before the job finishes.
func New(title string, hist *history.Manager, threshold float64, cancel context.CancelFunc) Model {
	return Model{
		title:       title,
		history:     hist,
		cancel:      cancel,
		viewMode:    ViewProgress,
		progress:    NewProgressModel(threshold),
		historyView: NewHistoryModel(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), animTickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "1", "p":
			m.viewMode = ViewProgress
		case "2", "h":
			m.viewMode = ViewHistory
		case "tab":
			m.viewMode = (m.viewMode + 1) % 2
		default:
			if m.viewMode == ViewHistory {
				m.historyView, _ = m.historyView.Update(msg)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		contentHeight := msg.Height - 6
		m.progress = m.progress.SetSize(msg.Width, contentHeight)
		m.historyView = m.historyView.SetSize(msg.Width, contentHeight)

	case TickMsg:
		cmds = append(cmds, tickCmd())
		if m.history != nil {
			m.historyView = m.historyView.UpdateData(m.history.Snapshot())
		}

	case AnimTickMsg:
		cmds = append(cmds, animTickCmd())
		m.animTick++

	case EventMsg:
		m.progress = m.progress.Observe(msg.Event)

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		m.progress = m.progress.Finish(msg.Result, msg.Err)
		if m.history != nil {
			m.historyView = m.historyView.UpdateData(m.history.Snapshot())
		}
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewProgress:
		content = m.progress.View()
	case ViewHistory:
		content = m.historyView.View()
	}

	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

// Done reports whether a DoneMsg has been received.
func (m Model) Done() bool { return m.done }

// Result returns the job outcome. It is only meaningful once Done is true.
func (m Model) Result() (platesolve.PlateSolveResult, error) {
	return m.result, m.err
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(gradientText(m.title))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	b.WriteString(muted.Render(fmt.Sprintf("  v%s", version.Version)))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Progress", "[2] History"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := spinnerFrames[m.animTick%len(spinnerFrames)]

	var status string
	switch {
	case m.done && m.err != nil:
		status = errorStyle.Render("ERROR: " + m.err.Error())
	case m.done && m.result.Success:
		status = successStyle.Render("done")
	case m.done:
		status = warnStyle.Render("no solution")
	default:
		status = accentStyle.Render(spinner) + " " + m.progress.phaseLabel()
	}

	var help string
	switch m.viewMode {
	case ViewHistory:
		help = dimStyle.Render("↑↓: navigate | tab: switch view | q: quit")
	default:
		help = dimStyle.Render("tab: switch view | q: quit")
	}

	return "  " + status + "  " + dimStyle.Render("|") + "  " + help
}

// Sink returns a progress sink that forwards events to the program.
func Sink(send func(tea.Msg)) platesolve.ProgressSink {
	return platesolve.ProgressFunc(func(e platesolve.Event) {
		send(EventMsg{Event: e})
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}

// gradientText renders text with a blue to pink horizontal gradient.
func gradientText(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(gradientColor(i, len(runes))))
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// gradientColor returns a hex color for position col of width.
// Blue (#3B82F6) -> Purple (#8B5CF6) -> Pink (#EC4899)
func gradientColor(col, width int) string {
	if width <= 1 {
		return "#3B82F6"
	}
	t := float64(col) / float64(width-1)

	var r, g, b float64
	if t < 0.5 {
		u := t / 0.5
		r = 59 + u*(139-59)
		g = 130 + u*(92-130)
		b = 246
	} else {
		u := (t - 0.5) / 0.5
		r = 139 + u*(236-139)
		g = 92 + u*(72-92)
		b = 246 + u*(153-246)
	}
	return fmt.Sprintf("#%02X%02X%02X", clampByte(r), clampByte(g), clampByte(b))
}

func clampByte(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}
