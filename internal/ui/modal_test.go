package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestParseCoordinates(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon string
		wantErr  bool
	}{
		{"valid", "10.7626", " 106.6601 ", false},
		{"negative", "-33.86", "151.2", false},
		{"lat_nan", "north", "106", true},
		{"lon_nan", "10", "", true},
		{"lat_range", "91", "106", true},
		{"lon_range", "10", "-181", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseCoordinates(tc.lat, tc.lon)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseCoordinates(%q, %q) err = %v, wantErr %v", tc.lat, tc.lon, err, tc.wantErr)
			}
		})
	}

	if _, _, err := parseCoordinates("0", "0"); !errors.Is(err, errZeroLocation) {
		t.Fatalf("parseCoordinates(0, 0) err = %v, want errZeroLocation", err)
	}
}

func TestLocationModalConfirm(t *testing.T) {
	keys := DefaultKeyMap()
	m := newLocationModal(10.5, 106.25, true)

	_, cmd, closed := m.Update(tea.KeyMsg{Type: tea.KeyEnter}, keys)
	if !closed || cmd == nil {
		t.Fatalf("confirm closed=%v cmd=%v, want closed with command", closed, cmd != nil)
	}
	msg, ok := cmd().(locationSubmittedMsg)
	if !ok {
		t.Fatalf("confirm produced %T, want locationSubmittedMsg", cmd())
	}
	if msg.Latitude != 10.5 || msg.Longitude != 106.25 {
		t.Fatalf("submitted %+v", msg)
	}
}

func TestLocationModalRejectsInvalidInput(t *testing.T) {
	keys := DefaultKeyMap()
	m := newLocationModal(0, 0, false)

	_, cmd, closed := m.Update(tea.KeyMsg{Type: tea.KeyEnter}, keys)
	if closed || cmd != nil {
		t.Fatalf("empty input closed=%v, want open without command", closed)
	}
	if m.err == "" {
		t.Fatalf("expected an error message")
	}
}

func TestLocationModalEscapeAndFocus(t *testing.T) {
	keys := DefaultKeyMap()
	m := newLocationModal(0, 0, false)

	m.Update(tea.KeyMsg{Type: tea.KeyTab}, keys)
	if m.focusIdx != 1 {
		t.Fatalf("focusIdx after tab = %d, want 1", m.focusIdx)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab}, keys)
	if m.focusIdx != 0 {
		t.Fatalf("focusIdx after shift+tab = %d, want 0", m.focusIdx)
	}

	_, cmd, closed := m.Update(tea.KeyMsg{Type: tea.KeyEsc}, keys)
	if !closed || cmd != nil {
		t.Fatalf("escape closed=%v, want closed without command", closed)
	}
}
