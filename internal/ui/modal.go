package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// locationSubmittedMsg carries coordinates entered in the location modal.
type locationSubmittedMsg struct {
	Latitude  float64
	Longitude float64
}

// locationModal asks for a manual latitude and longitude.
type locationModal struct {
	inputs   [2]textinput.Model
	focusIdx int
	err      string
}

func newLocationModal(lat, lon float64, known bool) *locationModal {
	m := &locationModal{}
	placeholders := [2]string{"e.g. 10.7626", "e.g. 106.6601"}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 20
		ti.Width = 24
		m.inputs[i] = ti
	}
	if known {
		m.inputs[0].SetValue(strconv.FormatFloat(lat, 'f', -1, 64))
		m.inputs[1].SetValue(strconv.FormatFloat(lon, 'f', -1, 64))
	}
	m.inputs[0].Focus()
	return m
}

// Update implements Modal.
func (l *locationModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Escape):
		return l, nil, true

	case key.Matches(keyMsg, keys.Confirm):
		lat, lon, err := parseCoordinates(l.inputs[0].Value(), l.inputs[1].Value())
		if err != nil {
			l.err = err.Error()
			return l, nil, false
		}
		return l, func() tea.Msg {
			return locationSubmittedMsg{Latitude: lat, Longitude: lon}
		}, true

	case key.Matches(keyMsg, keys.NextForm):
		l.focus((l.focusIdx + 1) % len(l.inputs))
		return l, nil, false

	case key.Matches(keyMsg, keys.PrevForm):
		l.focus((l.focusIdx - 1 + len(l.inputs)) % len(l.inputs))
		return l, nil, false
	}

	var cmd tea.Cmd
	l.inputs[l.focusIdx], cmd = l.inputs[l.focusIdx].Update(keyMsg)
	return l, cmd, false
}

func (l *locationModal) focus(idx int) {
	l.inputs[l.focusIdx].Blur()
	l.focusIdx = idx
	l.inputs[l.focusIdx].Focus()
}

// View implements Modal.
func (l *locationModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Set Location"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 36)))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Overrides the detected position."))
	b.WriteString("\n\n")

	labels := [2]string{"Latitude:  ", "Longitude: "}
	for i, label := range labels {
		if i == l.focusIdx {
			b.WriteString(styles.AccentText.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(l.inputs[i].View())
		b.WriteString("\n\n")
	}

	if l.err != "" {
		b.WriteString(styles.DangerText.Render(l.err))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Esc: Cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(48)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

var errZeroLocation = errors.New("0,0 is not a usable location")

// parseCoordinates validates a latitude and longitude typed by the user.
func parseCoordinates(latText, lonText string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return 0, 0, errors.New("latitude: not a number")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return 0, 0, errors.New("longitude: not a number")
	}
	if lat < -90 || lat > 90 {
		return 0, 0, errors.New("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, errors.New("longitude must be between -180 and 180")
	}
	if lat == 0 && lon == 0 {
		return 0, 0, errZeroLocation
	}
	return lat, lon, nil
}
