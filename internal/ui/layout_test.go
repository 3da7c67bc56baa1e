package ui

import (
	"testing"

	"github.com/five82/washbook/internal/prefs"
)

func TestCompactLayout(t *testing.T) {
	cases := []struct {
		pref  string
		width int
		want  bool
	}{
		{prefs.LayoutAuto, 80, true},
		{prefs.LayoutAuto, LayoutCompactWidth, false},
		{prefs.LayoutCompact, 200, true},
		{prefs.LayoutWide, 60, false},
		{"", 99, true},
	}
	for _, tc := range cases {
		if got := compactLayout(tc.pref, tc.width); got != tc.want {
			t.Fatalf("compactLayout(%q, %d) = %v, want %v", tc.pref, tc.width, got, tc.want)
		}
	}
}

func TestSplitWidths(t *testing.T) {
	list, detail := splitWidths(120)
	if list != 48 || detail != 72 {
		t.Fatalf("splitWidths(120) = %d, %d, want 48, 72", list, detail)
	}
	list, detail = splitWidths(200)
	if list != 60 || detail != 140 {
		t.Fatalf("splitWidths(200) = %d, %d, want 60, 140", list, detail)
	}
}
