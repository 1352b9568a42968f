package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"calgrid/internal/viewmodel"
)

const cellWidth = 6

var (
	primary = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	accent  = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	muted   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
	danger  = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

	monthStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	weekdayStyle  = lipgloss.NewStyle().Foreground(muted).Width(cellWidth).Align(lipgloss.Center)
	dayStyle      = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center)
	outsideStyle  = dayStyle.Foreground(muted).Faint(true)
	todayStyle    = dayStyle.Bold(true).Underline(true).Foreground(primary)
	selectedStyle = dayStyle.Bold(true).Reverse(true)
	badgeStyle    = lipgloss.NewStyle().Foreground(accent)
	headingStyle  = lipgloss.NewStyle().Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(muted).Italic(true)
	statusStyle   = lipgloss.NewStyle().Foreground(danger)
	frameStyle    = lipgloss.NewStyle().Padding(1, 2)
)

func (m Model) View() string {
	v := m.state.Render(m.clock.Now(), m.labels)

	var b strings.Builder
	b.WriteString(monthStyle.Render(v.MonthLabel))
	b.WriteString("\n\n")
	b.WriteString(renderGrid(v))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(strings.Repeat("─", 7*cellWidth)))
	b.WriteString("\n\n")
	b.WriteString(m.renderDetails(v))

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	return frameStyle.Render(b.String())
}

func renderGrid(v viewmodel.View) string {
	var b strings.Builder
	for _, w := range v.Weekdays {
		b.WriteString(weekdayStyle.Render(w))
	}
	b.WriteString("\n")

	for _, row := range v.Rows {
		for _, c := range row {
			b.WriteString(renderCell(c))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderCell shows the day number and, for days with events, the capped
// count. Adjacent-month days are dimmed.
func renderCell(c viewmodel.CellView) string {
	if !c.InCurrentMonth {
		return outsideStyle.Render(fmt.Sprintf("%2d", c.Day))
	}

	content := fmt.Sprintf("%2s", c.Label)
	if c.Indicator != "" {
		content += badgeStyle.Render("·" + c.Indicator)
	}

	switch {
	case c.Selected:
		return selectedStyle.Render(content)
	case c.Today:
		return todayStyle.Render(content)
	default:
		return dayStyle.Render(content)
	}
}

func (m Model) renderDetails(v viewmodel.View) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(v.SelectedLabel))
	if v.EventCount != "" {
		b.WriteString("  ")
		b.WriteString(hintStyle.Render(v.EventCount))
	}
	b.WriteString("\n")

	if v.SelectedKey == "" {
		if m.mode == modeJump {
			b.WriteString("\n")
			b.WriteString(m.jumpInput.View())
		}
		return b.String()
	}

	if len(v.Events) == 0 {
		b.WriteString(hintStyle.Render("  No events"))
		b.WriteString("\n")
	}
	for _, e := range v.Events {
		line := "  • " + e.Title
		if e.Imported {
			line += hintStyle.Render(" (feed)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.mode == modeJump:
		b.WriteString(m.jumpInput.View())
	case v.Pending:
		b.WriteString(hintStyle.Render("Adding..."))
	case m.mode == modeInput:
		b.WriteString(m.input.View())
	default:
		b.WriteString(hintStyle.Render("press a to add an event"))
	}
	return b.String()
}
