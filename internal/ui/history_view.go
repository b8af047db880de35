package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/litescript/ls-platesolve/internal/history"
)

// HistoryModel lists recorded solve attempts, newest last.
type HistoryModel struct {
	width    int
	height   int
	cursor   int
	snapshot history.Snapshot
}

// NewHistoryModel creates a history view.
func NewHistoryModel() HistoryModel {
	return HistoryModel{}
}

// SetSize updates the viewport size.
func (m HistoryModel) SetSize(width, height int) HistoryModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData replaces the snapshot, keeping the cursor on the newest row when
// it was already there.
func (m HistoryModel) UpdateData(snap history.Snapshot) HistoryModel {
	follow := m.cursor >= len(m.snapshot.Attempts)-1
	m.snapshot = snap
	if follow || m.cursor >= len(snap.Attempts) {
		m.cursor = max(len(snap.Attempts)-1, 0)
	}
	return m
}

// Update handles navigation keys.
func (m HistoryModel) Update(msg tea.Msg) (HistoryModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.snapshot.Attempts)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = max(len(m.snapshot.Attempts)-1, 0)
		}
	}
	return m, nil
}

// View renders the history table.
func (m HistoryModel) View() string {
	var b strings.Builder

	st := m.snapshot.Stats
	b.WriteString(titleStyle.Render("  Solve history"))
	b.WriteString(rowStyle.Render(fmt.Sprintf("   %d total · %d solved · %d failed", st.Total, st.Solved, st.Failed)))
	b.WriteString("\n\n")

	header := fmt.Sprintf("%-9s %4s %4s  %-8s %10s %10s %7s %8s", "TIME", "ATT", "ITER", "RESULT", "RA", "DEC", "ROT", "SEP")
	b.WriteString("  " + headerStyle.Render(header) + "\n")

	if len(m.snapshot.Attempts) == 0 {
		b.WriteString("  " + rowStyle.Render("No solves yet") + "\n")
		return b.String()
	}

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		line := formatAttempt(m.snapshot.Attempts[i])
		if i == m.cursor {
			b.WriteString("  " + selectedRowStyle.Render(line) + "\n")
		} else {
			b.WriteString("  " + rowStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

// visibleRange keeps the cursor on screen.
func (m HistoryModel) visibleRange() (int, int) {
	n := len(m.snapshot.Attempts)
	rows := m.height - 4
	if rows <= 0 || rows >= n {
		return 0, n
	}
	start := m.cursor - rows + 1
	if start < 0 {
		start = 0
	}
	return start, start + rows
}

func formatAttempt(a history.Attempt) string {
	result := "failed"
	ra, dec, rot := "-", "-", "-"
	if a.Success {
		result = "solved"
		ra = fmt.Sprintf("%.4f°", a.RA)
		dec = fmt.Sprintf("%+.4f°", a.Dec)
		rot = fmt.Sprintf("%.1f°", a.Orientation)
	}
	sep := "-"
	if a.SeparationArcmin != nil {
		sep = fmt.Sprintf("%.2f'", *a.SeparationArcmin)
	}
	iter := "-"
	if a.Iteration > 0 {
		iter = fmt.Sprintf("%d", a.Iteration)
	}
	return fmt.Sprintf("%-9s %4d %4s  %-8s %10s %10s %7s %8s",
		a.Time.Format("15:04:05"), a.Attempt, iter, result, ra, dec, rot, sep)
}
