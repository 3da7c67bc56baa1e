package ui

import (
	"time"

	"github.com/five82/washbook/internal/prefs"
)

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the width below which the list and the detail
	// pane are stacked instead of split.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth is the width from which the list gets a
	// narrower share of the screen.
	LayoutExtraWideWidth = 160
)

// Detail pane limits.
const (
	// DetailFeedbackLimit is the number of reviews shown per station.
	DetailFeedbackLimit = 5

	// DetailScheduleLimit is the number of upcoming slots shown per product.
	DetailScheduleLimit = 4
)

// Timing constants.
const (
	// ClockTick refreshes relative timestamps in the header.
	ClockTick = time.Second

	// FetchTimeout bounds every fetch started by the UI.
	FetchTimeout = 15 * time.Second
)

// Schedule and query state names, used as keys of Theme.StateColors.
const (
	stateBookable = "bookable"
	stateFull     = "full"
	stateInactive = "inactive"
	statePast     = "past"
	stateFetching = "fetching"
	stateStale    = "stale"
	stateError    = "error"
	stateRating   = "rating"
)

// splitWidths returns the list and detail pane widths for a split layout.
func splitWidths(width int) (list, detail int) {
	if width >= LayoutExtraWideWidth {
		list = width * 30 / 100
	} else {
		list = width * 40 / 100
	}
	return list, width - list
}

// compactLayout decides between the stacked and the split layout. An
// explicit preference wins over the terminal width.
func compactLayout(pref string, width int) bool {
	switch pref {
	case prefs.LayoutCompact:
		return true
	case prefs.LayoutWide:
		return false
	default:
		return width < LayoutCompactWidth
	}
}
