// Package output provides styled terminal output helpers (success, error,
// warning, match highlighting, pattern formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/dtf/internal/models"
)

var (
	// Styles
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)

	// Match highlight colors, cycled by filled field index
	matchColors = []lipgloss.Color{"45", "212", "214", "141", "42", "203"}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeConflict      = "conflict"
	ErrCodeCDPError      = "cdp_error"
	ErrCodeDatabaseError = "database_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	JSONErrorWithDetails(code, message, nil)
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
	fmt.Println(string(data))
}

// MatchStyle returns the highlight style for a filled field index.
func MatchStyle(fieldIndex int) lipgloss.Style {
	c := matchColors[fieldIndex%len(matchColors)]
	return lipgloss.NewStyle().Foreground(c).Underline(true)
}

// HighlightMatches renders address with every match span styled by the
// field it belongs to. Spans outside the address are ignored.
func HighlightMatches(address string, matches []models.Match) string {
	spans := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.StartIndex >= 0 && m.StartIndex < m.EndIndex && m.EndIndex <= len(address) {
			spans = append(spans, m)
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].StartIndex < spans[j].StartIndex })

	var sb strings.Builder
	pos := 0
	for _, m := range spans {
		if m.StartIndex < pos {
			continue
		}
		sb.WriteString(address[pos:m.StartIndex])
		sb.WriteString(renderLines(MatchStyle(m.FilledFieldIndex), address[m.StartIndex:m.EndIndex]))
		pos = m.EndIndex
	}
	sb.WriteString(address[pos:])
	return sb.String()
}

// renderLines styles each line on its own so spans crossing a newline keep
// the layout intact.
func renderLines(style lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatFilledField formats one filled field with its classification and,
// when matched, the span it occupies in the address.
func FormatFilledField(index int, f models.FilledField, matches []models.Match) string {
	label := f.Name
	if label == "" {
		label = f.ID
	}
	line := fmt.Sprintf("%-16s %-24s %s", label, fmt.Sprintf("%q", f.Value), subtleStyle.Render(f.AutofillType))
	for _, m := range matches {
		if m.FilledFieldIndex == index {
			return MatchStyle(index).Render("●") + " " + line + subtleStyle.Render(fmt.Sprintf("  [%d,%d)", m.StartIndex, m.EndIndex))
		}
	}
	return subtleStyle.Render("○") + " " + line
}

// FormatComponent formats one labeled address value
func FormatComponent(c models.AddressComponent) string {
	return subtleStyle.Render(fmt.Sprintf("%-24s", c.Label)) + " " + c.Value
}

// FormatPattern formats a blocking pattern row
func FormatPattern(p models.BlockedPattern, blocked int) string {
	check := "[x]"
	url := p.URL
	if !p.Enabled {
		check = "[ ]"
		url = disabledStyle.Render(url)
	}
	if blocked > 0 {
		return fmt.Sprintf("%s %s  %s", check, url, warningStyle.Render(fmt.Sprintf("%d blocked", blocked)))
	}
	return fmt.Sprintf("%s %s", check, url)
}

// FormatBounceRun formats the result of a mitigations run
func FormatBounceRun(run models.BounceRun) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Deleted sites"))
	sb.WriteString(subtleStyle.Render("  " + FormatTimeAgo(run.RanAt)))
	sb.WriteString("\n")
	for _, s := range run.DeletedSites {
		sb.WriteString("  " + s + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return "\n" + titleStyle.Render(strings.ToUpper(title)+":") + "\n"
}

// Subtle renders s in the muted style.
func Subtle(s string) string {
	return subtleStyle.Render(s)
}
