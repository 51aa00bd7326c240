package dashboard

import (
	"fmt"
	"strings"

	"call-desk/internal/calls"
	"call-desk/internal/reporting"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9"))
	badgeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#282a36")).Background(lipgloss.Color("#ff5555")).Padding(0, 1)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	dangerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#44475a")).Foreground(lipgloss.Color("#f8f8f2"))

	statusStyles = map[calls.TriageStatus]lipgloss.Style{
		calls.StatusOpen:       lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")),
		calls.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("#f1fa8c")),
		calls.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b")),
	}
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.help.FullHelpView(m.keys.FullHelp())
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	parts := []string{titleStyle.Render("call-desk")}
	if m.snapshot.HasData {
		parts = append(parts, badgeStyle.Render(fmt.Sprintf("%d open", m.snapshot.OpenCount)))
		st := reporting.Summarize(m.snapshot.Calls, m.staffID)
		parts = append(parts, mutedStyle.Render(fmt.Sprintf(
			"shown %d  open %d  in progress %d  done %d  mine %d",
			st.Total, st.Open, st.InProgress, st.Done, st.AssignedToMe,
		)))
	}
	if err := m.snapshot.LastError; err != nil {
		parts = append(parts, dangerStyle.Render("API unreachable: "+err.Error()))
	} else if !m.snapshot.HasData {
		parts = append(parts, mutedStyle.Render("connecting..."))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderFilters() string {
	status := labelOr(statusFilters[m.statusIdx], "all")
	timeRange := labelOr(timeFilters[m.timeIdx], "all time")
	if m.custom {
		timeRange = labelOr(m.from, "start") + ".." + labelOr(m.to, "now")
	}
	assignee := "everyone"
	switch {
	case m.assignee == "":
	case m.assignee == m.staffID:
		assignee = "mine"
	default:
		assignee = m.assignee
		for _, p := range m.snapshot.Staff {
			if p.ID == m.assignee {
				assignee = p.FullName
				break
			}
		}
	}
	return mutedStyle.Render(fmt.Sprintf("status: %s  |  time: %s  |  assigned: %s", status, timeRange, assignee))
}

const rowFormat = "%-16s %-18s %-13s %-18s %6s %-3s"

func (m Model) renderTable() string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(fmt.Sprintf(rowFormat, "CALLED", "CALLER", "STATUS", "ASSIGNED", "SECS", "VM")))
	b.WriteString("\n")
	if len(m.snapshot.Calls) == 0 {
		b.WriteString(mutedStyle.Render("no calls match the current filter"))
		b.WriteString("\n")
		return b.String()
	}

	for i, c := range m.visibleRows() {
		line := m.renderRow(c)
		if i+m.offset() == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(c calls.CallWithDetails) string {
	assigned := "-"
	if c.Profile != nil {
		assigned = c.Profile.FullName
	} else if c.AssignedTo != nil {
		assigned = *c.AssignedTo
	}
	vm := ""
	if c.HasVoicemail {
		vm = "yes"
	}
	status := fmt.Sprintf("%-13s", statusLabel(c.Status))
	if st, ok := statusStyles[c.Status]; ok {
		status = st.Render(status)
	}
	return fmt.Sprintf("%-16s %-18s %s %-18s %6d %-3s",
		c.CalledAt.Local().Format("02.01. 15:04"),
		truncate(c.CallerPhone, 18),
		status,
		truncate(assigned, 18),
		c.CallDuration,
		vm,
	)
}

func (m Model) renderFooter() string {
	var b strings.Builder
	if m.editingRange {
		b.WriteString(m.rangeInput.View())
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(dangerStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if !m.snapshot.UpdatedAt.IsZero() {
		b.WriteString(mutedStyle.Render("updated " + m.snapshot.UpdatedAt.Format("15:04:05")))
		b.WriteString("  ")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

// tableHeight is the number of rows that fit below the header lines.
func (m Model) tableHeight() int {
	h := m.height - 7
	if h < 1 {
		return 1
	}
	return h
}

// offset keeps the selection inside the visible window.
func (m Model) offset() int {
	h := m.tableHeight()
	if m.selected < h {
		return 0
	}
	return m.selected - h + 1
}

func (m Model) visibleRows() []calls.CallWithDetails {
	start := m.offset()
	end := min(start+m.tableHeight(), len(m.snapshot.Calls))
	return m.snapshot.Calls[start:end]
}

func statusLabel(s calls.TriageStatus) string {
	switch s {
	case calls.StatusInProgress:
		return "in progress"
	case "":
		return "-"
	default:
		return string(s)
	}
}

func labelOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return strings.ReplaceAll(v, "_", " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
