package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/dtf/internal/bouncetracking"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/output"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}
	if m.ShowHelp {
		return helpStyle.Render(m.keymap.GenerateHelp())
	}

	available := m.Height - 2 // footer
	autofillHeight := available / 2
	rest := available - autofillHeight
	blockingHeight := rest / 2
	bounceHeight := rest - blockingHeight

	panels := lipgloss.JoinVertical(lipgloss.Left,
		m.renderAutofillPanel(autofillHeight),
		m.renderBlockingPanel(blockingHeight),
		m.renderBouncePanel(bounceHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, panels, m.renderFooter())
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder
	s.WriteString("dtf monitor (resize for full view)\n\n")
	fmt.Fprintf(&s, "Autofill events: %d\n", len(m.Events))
	blocked := 0
	for _, r := range m.Rows {
		blocked += r.Blocked
	}
	fmt.Fprintf(&s, "Patterns: %d | Blocked: %d\n", len(m.Rows), blocked)
	if m.deps.Bounce != nil {
		fmt.Fprintf(&s, "Mitigations: %s\n", m.deps.Bounce.State())
	}
	s.WriteString("\nq:quit ?:help")
	return s.String()
}

// renderAutofillPanel renders the event list and the selected event
func (m Model) renderAutofillPanel(height int) string {
	var content strings.Builder

	if m.Filtering || m.filterInput.Value() != "" {
		content.WriteString(filterStyle.Render(m.filterInput.View()))
		content.WriteString("\n")
	}

	events := m.visibleEvents()
	if len(events) == 0 {
		if len(m.Events) == 0 {
			content.WriteString(subtleStyle.Render("No address forms filled yet"))
		} else {
			content.WriteString(subtleStyle.Render("No events match the filter"))
		}
		return m.wrapPanel("AUTOFILL", content.String(), height, PanelAutofill)
	}

	cursor := m.Cursor[PanelAutofill]
	listRows := min(len(events), max(height/3, 1))
	start := max(0, min(cursor-listRows+1, len(events)-listRows))
	for i := start; i < start+listRows; i++ {
		ev := events[i]
		first, _, _ := strings.Cut(ev.Address, "\n")
		line := fmt.Sprintf("%s  %-10s %s  %s",
			timestampStyle.Render(ev.Timestamp.Format("15:04:05")),
			shortID(ev.TargetID), first,
			subtleStyle.Render(fmt.Sprintf("%d/%d matched", len(ev.Matches), len(ev.FilledFields))))
		if m.ActivePanel == PanelAutofill && i == cursor {
			line = selectedRowStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	if ev, ok := m.selectedEvent(); ok {
		content.WriteString("\n")
		content.WriteString(renderEvent(ev))
	}
	return m.wrapPanel("AUTOFILL", content.String(), height, PanelAutofill)
}

// renderEvent renders the address with highlighted matches and the filled fields
func renderEvent(ev models.AddressFormFilledEvent) string {
	var sb strings.Builder
	sb.WriteString(output.HighlightMatches(ev.Address, ev.Matches))
	sb.WriteString("\n\n")
	for i, f := range ev.FilledFields {
		sb.WriteString(output.FormatFilledField(i, f, ev.Matches))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderBlockingPanel renders the request blocking pane rows
func (m Model) renderBlockingPanel(height int) string {
	var content strings.Builder

	check := "[ ]"
	if m.BlockingEnabled {
		check = "[x]"
	}
	content.WriteString(check + " Enable network request blocking\n")
	content.WriteString(m.renderScope())
	content.WriteString("\n")

	if len(m.Rows) == 0 {
		content.WriteString(subtleStyle.Render("No blocked URL patterns"))
		return m.wrapPanel("REQUEST BLOCKING", content.String(), height, PanelBlocking)
	}
	cursor := m.Cursor[PanelBlocking]
	for i, r := range m.Rows {
		line := output.FormatPattern(models.BlockedPattern{URL: r.Pattern, Enabled: r.Enabled}, r.Blocked)
		if m.ActivePanel == PanelBlocking && i == cursor {
			line = selectedRowStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		content.WriteString(line)
		content.WriteString("\n")
	}
	if pattern, ok := m.selectedPattern(); ok {
		for _, u := range m.urlsBlockedBy(pattern) {
			content.WriteString(subtleStyle.Render("    blocked " + u))
			content.WriteString("\n")
		}
	}
	return m.wrapPanel("REQUEST BLOCKING", content.String(), height, PanelBlocking)
}

// renderScope renders the target whose requests the pane counts
func (m Model) renderScope() string {
	if m.Scope.ID == "" {
		return subtleStyle.Render("Scope: no target")
	}
	name := m.Scope.Title
	if name == "" {
		name = m.Scope.URL
	}
	if name == "" {
		name = shortID(m.Scope.ID)
	}
	return "Scope: " + name + subtleStyle.Render("  "+string(m.Scope.Type))
}

// renderBouncePanel renders the bounce tracking mitigations report
func (m Model) renderBouncePanel(height int) string {
	v := m.deps.Bounce
	if v == nil {
		return m.wrapPanel("BOUNCE TRACKING", subtleStyle.Render("Not connected"), height, PanelBounce)
	}

	var content strings.Builder
	for _, section := range v.Sections() {
		switch section {
		case bouncetracking.ForceRunLabel:
			content.WriteString(buttonStyle.Render(section) + subtleStyle.Render("  f"))
		case bouncetracking.ForceRunningLabel:
			content.WriteString(busyButtonStyle.Render(section))
		case bouncetracking.LearnMoreLabel:
			// The deleted sites table sits above the link.
			if v.ShowsTable() {
				content.WriteString(m.bounceTable.View())
				content.WriteString("\n")
			}
			content.WriteString(linkStyle.Render(section) + subtleStyle.Render("  "+bouncetracking.LearnMoreURL))
		default:
			content.WriteString(section)
		}
		content.WriteString("\n")
	}
	if m.BounceRuns > 0 {
		content.WriteString(subtleStyle.Render(fmt.Sprintf("Runs this session: %d, last at %s",
			m.BounceRuns, m.LastBounceRun.RanAt.Format("15:04:05"))))
		content.WriteString("\n")
	}
	if err := v.Err(); err != nil {
		content.WriteString(errorStyle.Render(err.Error()))
	}
	return m.wrapPanel("BOUNCE TRACKING", content.String(), height, PanelBounce)
}

// renderFooter renders the key hints, status and refresh time
func (m Model) renderFooter() string {
	keys := helpStyle.Render("q:quit  tab:switch  /:filter  space:toggle  f:force run  ?:help")
	status := ""
	if m.Err != nil {
		status = errorStyle.Render(" " + m.Err.Error() + " ")
	} else if m.Status != "" {
		status = statusStyle.Render(" " + m.Status + " ")
	}
	refresh := timestampStyle.Render(fmt.Sprintf("Last: %s", m.LastRefresh.Format("15:04:05")))
	if m.deps.Version != "" {
		refresh = timestampStyle.Render(m.deps.Version+"  ") + refresh
	}

	padding := max(m.Width-lipgloss.Width(keys)-lipgloss.Width(status)-lipgloss.Width(refresh)-2, 0)
	return fmt.Sprintf(" %s%s%s%s", keys, strings.Repeat(" ", padding), status, refresh)
}

// wrapPanel wraps content in a panel with title and border
func (m Model) wrapPanel(title, content string, height int, panel Panel) string {
	style := panelStyle
	if m.ActivePanel == panel {
		style = activePanelStyle
	}

	contentWidth := m.Width - 4 // border and padding
	contentHeight := max(height-3, 1)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}
	if len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}
	for i, line := range lines {
		if lipgloss.Width(line) > contentWidth {
			lines[i] = ansi.Truncate(line, contentWidth, "…")
		}
	}

	inner := lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render(title), strings.Join(lines, "\n"))
	return style.Width(m.Width - 2).Render(inner)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
