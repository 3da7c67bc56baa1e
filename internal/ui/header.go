package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/washbook/internal/query"
)

// renderHeader renders the status bar: user, location, fetch state and
// the last refresh.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("washbook", styles.Logo)}

	// User
	if m.session.SignedIn() {
		parts = append(parts, bg.Render("●", styles.SuccessText)+bg.Space()+
			bg.Render(truncate(m.session.DisplayName(), 20), styles.Text))
	} else {
		parts = append(parts, bg.Render("○ guest", styles.MutedText))
	}

	if loc := m.formatLocation(compact, styles, bg); loc != "" {
		parts = append(parts, loc)
	}

	// Fetch state
	switch {
	case m.sync.IsOffline():
		label := "OFFLINE"
		if reason := classifyConnectionError(m.sync.LastError); reason != "" && reason != "ERROR" {
			label += " (" + strings.ToLower(reason) + ")"
		}
		parts = append(parts, bg.Render(label, styles.DangerText)+bg.Space()+
			bg.Render("Retrying...", styles.WarningText.Bold(true)))
	case m.stations.Status == query.StatusPending || m.detail.products.Status == query.StatusPending ||
		m.detail.feedback.Status == query.StatusPending:
		parts = append(parts, bg.Render(m.spinner.View()+" Fetching", styles.InfoText))
	case m.stations.IsError():
		parts = append(parts, bg.Render("ERROR", styles.DangerText)+bg.Space()+
			bg.Render(truncate(m.stations.Err.Error(), ternary(compact, 30, 60)), styles.DangerText))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	// Transient error from the last command
	if m.errorMsg != "" {
		parts = append(parts, bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
			bg.Render(truncate(m.errorMsg, ternary(compact, 40, 80)), styles.WarningText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// formatLocation renders the known position, the lookup in progress or the
// lookup error.
func (m Model) formatLocation(compact bool, styles Styles, bg BgStyle) string {
	if lat, lon, ok := m.location.Coordinates(); ok {
		precision := ternary(compact, 2, 4)
		return bg.Render("Loc:", styles.MutedText) + bg.Space() +
			bg.Render(fmt.Sprintf("%.*f,%.*f", precision, lat, precision, lon), styles.Text)
	}
	if m.location.IsLoading {
		return bg.Render("Locating...", styles.MutedText)
	}
	if m.location.Error != "" {
		return bg.Render(truncate(m.location.Error, ternary(compact, 24, 48)), styles.WarningText)
	}
	return ""
}

// formatTimestamp renders the last successful station refresh with a
// relative age.
func (m Model) formatTimestamp() string {
	last := m.stations.FetchedAt
	if m.sync.LastError == nil && m.sync.LastUpdated.After(last) {
		last = m.sync.LastUpdated
	}
	if last.IsZero() {
		return ""
	}
	age := m.now().Sub(last)
	if age < time.Minute {
		return last.Format("15:04:05") + " (now)"
	}
	return last.Format("15:04:05") + " (" + humanizeDuration(age) + " ago)"
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "REFUSED"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the focused pane.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.searching {
		return styles.Header.Width(m.width).Render(
			bg.Render("Search", styles.AccentText) + bg.Spaces(2) + m.searchInput.View() +
				bg.Spaces(2) + bg.Render("enter:Keep  esc:Clear", styles.FaintText))
	}

	type cmd struct{ key, desc string }
	sortLabel := "By distance"
	if m.sortMode == SortByDistance {
		sortLabel = "By name"
	}
	var commands []cmd
	if m.focusedPane == PaneDetail {
		commands = []cmd{
			{"j/k", "Scroll"},
			{"r", "Refresh"},
			{"Tab", "List"},
			{"?", "More"},
		}
	} else {
		commands = []cmd{
			{"j/k", "Navigate"},
			{"n", "More"},
			{"r", "Refresh"},
			{"s", sortLabel},
			{"/", "Search"},
			{"L", "Location"},
			{"Tab", "Details"},
			{"?", "Help"},
		}
	}

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	if m.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.searchQuery, 18), styles.AccentText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
