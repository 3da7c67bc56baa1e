package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/washbook/internal/flows"
)

// rows returns the loaded stations in display order, narrowed by the
// search query. Distances are filled whenever the location is known, even
// when sorting by name.
func (m Model) rows() []flows.Nearby {
	lat, lon, known := m.location.Coordinates()
	rows := flows.SortByDistance(m.stations.Items(), lat, lon, known)
	if m.sortMode == SortByName {
		slices.SortStableFunc(rows, func(a, b flows.Nearby) int {
			return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
		})
	}
	return filterRows(rows, m.searchQuery)
}

// filterRows keeps rows whose name or address contains query, ignoring
// case.
func filterRows(rows []flows.Nearby, query string) []flows.Nearby {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	out := rows[:0:0]
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Name()), query) ||
			strings.Contains(strings.ToLower(row.Address), query) {
			out = append(out, row)
		}
	}
	return out
}

// selected returns the highlighted station.
func (m Model) selected() (flows.Nearby, bool) {
	rows := m.rows()
	if m.selectedRow < 0 || m.selectedRow >= len(rows) {
		return flows.Nearby{}, false
	}
	return rows[m.selectedRow], true
}

// renderStations renders the list and the detail pane, side by side or
// stacked on narrow terminals.
func (m Model) renderStations() string {
	contentHeight := max(m.height-2, 3) // header + command bar

	listTitle := m.listTitle()
	detailTitle := "Details"
	if row, ok := m.selected(); ok {
		detailTitle = row.Name()
	}
	listFocused := m.focusedPane == PaneList

	if compactLayout(m.prefs.Layout, m.width) {
		listHeight := max(contentHeight*2/5, 3)
		list := m.renderTitledBox(listTitle, m.renderList(m.width-2, listHeight-2), m.width, listHeight, listFocused)
		detail := m.renderTitledBox(detailTitle, m.detailViewport.View(), m.width, contentHeight-listHeight, !listFocused)
		return lipgloss.JoinVertical(lipgloss.Left, list, detail)
	}

	listWidth, detailWidth := splitWidths(m.width)
	list := m.renderTitledBox(listTitle, m.renderList(listWidth-2, contentHeight-2), listWidth, contentHeight, listFocused)
	detail := m.renderTitledBox(detailTitle, m.detailViewport.View(), detailWidth, contentHeight, !listFocused)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

// listTitle returns the pane title with count, sort and search indicators.
func (m Model) listTitle() string {
	total := len(m.stations.Items())
	sort := "name"
	if m.sortMode == SortByDistance {
		sort = "distance"
	}
	if m.searchQuery == "" {
		return fmt.Sprintf("Stations (%d) by %s", total, sort)
	}
	return fmt.Sprintf("Stations (%d/%d) /%s", len(m.rows()), total, truncate(m.searchQuery, 16))
}

// renderList renders the visible window of station rows plus a footer
// about further pages.
func (m Model) renderList(width, height int) string {
	styles := m.theme.Styles()
	bgColor := m.theme.SurfaceAlt
	if m.focusedPane == PaneList {
		bgColor = m.theme.FocusBg
	}
	bg := NewBgStyle(bgColor)

	rows := m.rows()
	switch {
	case m.stations.IsLoading():
		return bg.Render(m.spinner.View()+" Loading stations...", styles.MutedText)
	case len(rows) == 0 && m.stations.IsError():
		return bg.Render("Could not load stations: "+truncate(m.stations.Err.Error(), width-26), styles.DangerText)
	case len(rows) == 0 && m.searchQuery != "":
		return bg.Render("No station matches /"+m.searchQuery, styles.MutedText)
	case len(rows) == 0:
		return bg.Render("No stations", styles.MutedText)
	}

	visible := max(height-1, 1) // keep a line for the footer
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := min(start+visible, len(rows))

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		selected := i == m.selectedRow
		rowBg := bgColor
		if selected {
			rowBg = m.theme.SelectionBg
		}
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			Render(m.formatRow(rows[i], width, rowBg, selected)))
	}

	switch {
	case m.stations.IsFetchingNextPage:
		lines = append(lines, bg.Render(m.spinner.View()+" Loading more...", styles.MutedText))
	case m.stations.HasNextPage():
		lines = append(lines, bg.Render("n: load more", styles.FaintText))
	}
	return strings.Join(lines, "\n")
}

// formatRow formats one station: "Name · ★ 4.2 · 1.3 km". Selected rows
// use the selection text color throughout for contrast.
func (m Model) formatRow(row flows.Nearby, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)

	var meta []string
	if row.RatingCount > 0 {
		meta = append(meta, fmt.Sprintf("★ %.1f", row.AverageRating))
	}
	if row.HasDistance {
		meta = append(meta, formatDistance(row.DistanceKm))
	}
	metaStr := strings.Join(meta, " · ")

	nameWidth := max(width-len([]rune(metaStr))-4, 8)

	nameStyle := m.theme.Styles().Text
	metaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StateColors[stateRating]))
	sepStyle := m.theme.Styles().FaintText
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		nameStyle, metaStyle, sepStyle = sel, sel, sel
	}

	out := bg.Render(padRight(truncate(row.Name(), nameWidth), nameWidth), nameStyle)
	if metaStr != "" {
		out += bg.Render(" · ", sepStyle) + bg.Render(metaStr, metaStyle)
	}
	return out
}
