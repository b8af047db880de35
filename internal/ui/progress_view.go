package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// Styles shared by the views
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Width(14)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2EC4B6"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB703"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E84A27"))
)

const maxLogLines = 8

// ProgressModel shows the live state of a solve, capture or centering job.
type ProgressModel struct {
	width     int
	height    int
	threshold float64 // arcmin; 0 outside centering

	started   bool
	phase     platesolve.Phase
	state     platesolve.CenteringState
	attempt   int
	iteration int

	imageName  string
	imageBytes int
	stats      *platesolve.ImageStatistics
	last       *platesolve.PlateSolveResult
	separation float64 // arcmin, valid when hasSep
	hasSep     bool

	finished bool
	err      error

	log []string
}

// NewProgressModel creates a progress view.
func NewProgressModel(threshold float64) ProgressModel {
	return ProgressModel{threshold: threshold}
}

// SetSize updates the viewport size.
func (m ProgressModel) SetSize(width, height int) ProgressModel {
	m.width = width
	m.height = height
	return m
}

// Observe applies a progress event.
func (m ProgressModel) Observe(e platesolve.Event) ProgressModel {
	m.started = true
	m.phase = e.Phase
	if e.Attempt > 0 {
		m.attempt = e.Attempt
	}
	if e.Iteration > 0 {
		m.iteration = e.Iteration
		m.state = e.State
	}
	if e.Image != nil {
		m.imageName = e.Image.Name
		m.imageBytes = len(e.Image.Data)
	}
	if e.Statistics != nil {
		st := *e.Statistics
		m.stats = &st
	}
	if e.Result != nil {
		res := *e.Result
		m.last = &res
	}
	if e.Separation != nil {
		m.separation = e.Separation.Distance.ArcMinutes()
		m.hasSep = true
	}

	line := e.Time.Format("15:04:05") + " " + e.Phase.String()
	if m.iteration > 0 && e.Iteration > 0 {
		line += fmt.Sprintf(" [iter %d, %s]", e.Iteration, e.State)
	}
	if e.Message != "" {
		line += ": " + e.Message
	}
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
	return m
}

// Finish records the job outcome.
func (m ProgressModel) Finish(res platesolve.PlateSolveResult, err error) ProgressModel {
	m.finished = true
	m.err = err
	if err == nil {
		m.last = &res
	}
	return m
}

// View renders the progress view.
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Current job"))
	b.WriteString("\n\n")

	m.row(&b, "Phase", m.phaseLabel())
	if m.attempt > 0 {
		m.row(&b, "Attempt", fmt.Sprintf("%d", m.attempt))
	}
	if m.iteration > 0 {
		m.row(&b, "Iteration", fmt.Sprintf("%d (%s)", m.iteration, m.state))
	}
	if m.imageName != "" {
		m.row(&b, "Image", fmt.Sprintf("%s (%s)", m.imageName, formatBytes(m.imageBytes)))
	}
	if m.stats != nil {
		m.row(&b, "Stars", fmt.Sprintf("%d  HFR %.2f", m.stats.StarCount, m.stats.HFR))
	}
	if m.last != nil {
		m.row(&b, "Solution", m.renderResult(*m.last))
	}
	if m.hasSep {
		sep := fmt.Sprintf("%.2f'", m.separation)
		if m.threshold > 0 {
			sep = m.renderSeparationBar(m.separation, 20) + " " + sep + fmt.Sprintf(" / %.2f'", m.threshold)
		}
		m.row(&b, "Separation", sep)
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Events"))
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString("  " + rowStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

func (m ProgressModel) row(b *strings.Builder, label, value string) {
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func (m ProgressModel) phaseLabel() string {
	switch {
	case m.finished && m.err != nil:
		return errorStyle.Render("failed")
	case m.finished && m.iteration > 0 && m.state == platesolve.StateConverged:
		return successStyle.Render("centered")
	case m.finished && m.last != nil && m.last.Success:
		return successStyle.Render("solved")
	case m.finished:
		return warnStyle.Render("no solution")
	case !m.started:
		return "starting"
	}
	return m.phase.String()
}

func (m ProgressModel) renderResult(res platesolve.PlateSolveResult) string {
	if !res.Success {
		return warnStyle.Render("no solution")
	}
	s := fmt.Sprintf("%s  rot %.1f°  %.2f\"/px", res.Coordinates, res.Orientation, res.Pixscale)
	if res.Flipped {
		s += "  flipped"
	}
	return s
}

// renderSeparationBar fills the bar as the separation approaches the
// threshold. A separation within the threshold fills it completely.
func (m ProgressModel) renderSeparationBar(sepArcmin float64, width int) string {
	ratio := 1.0
	if sepArcmin > m.threshold && sepArcmin > 0 {
		ratio = m.threshold / sepArcmin
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
