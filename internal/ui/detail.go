package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/flows"
	"github.com/five82/washbook/internal/query"
)

// detailSnapshot holds the cache state of the open station.
type detailSnapshot struct {
	id       int64
	products query.EntryState
	feedback query.EntryState
}

func (m Model) readDetail(id int64) detailSnapshot {
	return detailSnapshot{
		id:       id,
		products: m.cache.Peek(flows.KeyProducts(id)),
		feedback: m.cache.Peek(flows.KeyFeedback(id)),
	}
}

// keepSelection moves the cursor to the open station after the list was
// reordered or grew.
func (m *Model) keepSelection() {
	if m.detail.id == 0 {
		return
	}
	for i, row := range m.rows() {
		if row.ID == m.detail.id {
			m.selectedRow = i
			return
		}
	}
}

// syncSelection clamps the cursor and opens the station under it. Opening
// a new station subscribes to its entries and loads them.
func (m *Model) syncSelection() tea.Cmd {
	rows := m.rows()
	if len(rows) == 0 {
		m.selectedRow = 0
		m.detail = detailSnapshot{}
		m.updateDetailViewport()
		return nil
	}
	m.selectedRow = min(max(m.selectedRow, 0), len(rows)-1)

	id := rows[m.selectedRow].ID
	if id == m.detail.id {
		m.updateDetailViewport()
		return nil
	}
	m.events.watchDetail(m.cache, id, flows.KeyProducts(id), flows.KeyFeedback(id))
	m.detail = m.readDetail(id)
	m.detailViewport.GotoTop()
	m.updateDetailViewport()
	return m.loadDetail(id)
}

// loadDetail fetches products and reviews of station id.
func (m Model) loadDetail(id int64) tea.Cmd {
	catalog := m.flows.Catalog
	return tea.Batch(
		m.fetch("load services", func(ctx context.Context) error {
			return catalog.Products(ctx, id).Err
		}),
		m.fetch("load reviews", func(ctx context.Context) error {
			return catalog.Feedback(ctx, id).Err
		}),
	)
}

// detailSize returns the inner size of the detail pane.
func (m Model) detailSize() (width, height int) {
	contentHeight := max(m.height-2, 3)
	if compactLayout(m.prefs.Layout, m.width) {
		listHeight := max(contentHeight*2/5, 3)
		return max(m.width-2, 1), max(contentHeight-listHeight-2, 1)
	}
	_, detailWidth := splitWidths(m.width)
	return max(detailWidth-2, 1), max(contentHeight-2, 1)
}

func (m *Model) resizeDetail() {
	w, h := m.detailSize()
	if m.detailViewport.Width == 0 && m.detailViewport.Height == 0 {
		m.detailViewport = viewport.New(w, h)
		return
	}
	m.detailViewport.Width = w
	m.detailViewport.Height = h
}

// updateDetailViewport re-renders the open station into the viewport.
func (m *Model) updateDetailViewport() {
	if !m.ready {
		return
	}
	w, _ := m.detailSize()
	bgColor := m.theme.SurfaceAlt
	if m.focusedPane == PaneDetail {
		bgColor = m.theme.FocusBg
	}
	m.detailViewport.SetContent(m.renderDetailContent(max(w-1, 10), bgColor))
}

// renderDetailContent renders station info, services with upcoming slots,
// and the latest reviews.
func (m Model) renderDetailContent(width int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)

	row, ok := m.selected()
	if !ok || row.ID != m.detail.id {
		return bg.Render("Select a station", styles.MutedText)
	}

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
	}

	line(bg.Render(row.Name(), styles.Text.Bold(true)))
	if row.Address != "" {
		line(bg.Render(truncate(row.Address, width), styles.MutedText))
	}
	var contact []string
	if row.PhoneNumber != "" {
		contact = append(contact, row.PhoneNumber)
	}
	if row.Category != "" {
		contact = append(contact, row.Category)
	}
	if row.HasDistance {
		contact = append(contact, formatDistance(row.DistanceKm)+" away")
	}
	if len(contact) > 0 {
		line(bg.Render(strings.Join(contact, " · "), styles.FaintText))
	}
	line(bg.Render(formatRating(row.AverageRating, row.RatingCount), lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StateColors[stateRating]))))
	if desc := strings.TrimSpace(row.Description); desc != "" {
		line("")
		for _, l := range wrap(desc, width) {
			line(bg.Render(l, styles.Text))
		}
	}

	line("")
	line(bg.Render("Services", styles.AccentText.Bold(true)))
	b.WriteString(m.renderProducts(width, styles, bg))

	line("")
	line(bg.Render("Reviews", styles.AccentText.Bold(true)))
	b.WriteString(m.renderFeedback(width, styles, bg))

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderProducts(width int, styles Styles, bg BgStyle) string {
	st := m.detail.products
	products, _ := st.Data.([]api.Product)
	if msg, done := m.sectionState(st, len(products), "services", styles, bg); done {
		return msg
	}

	services := make([]api.Product, 0, len(products))
	var addOns []api.Product
	for _, p := range products {
		if p.IsSubProduct() {
			addOns = append(addOns, p)
		} else {
			services = append(services, p)
		}
	}

	now := m.now()
	var b strings.Builder
	for _, p := range services {
		b.WriteString(m.productLine(p, width, styles, bg))
		b.WriteString("\n")
		for _, s := range upcoming(p.Schedules, now, DetailScheduleLimit) {
			b.WriteString(bg.Spaces(4))
			b.WriteString(m.scheduleLine(s, now, styles, bg))
			b.WriteString("\n")
		}
	}
	if len(addOns) > 0 {
		b.WriteString(bg.Render("  Add-ons", styles.MutedText))
		b.WriteString("\n")
		for _, p := range addOns {
			b.WriteString(bg.Spaces(2))
			b.WriteString(m.productLine(p, width-2, styles, bg))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// productLine renders "  Basic wash  120,000 VND · 30m".
func (m Model) productLine(p api.Product, width int, styles Styles, bg BgStyle) string {
	var meta []string
	if p.Pricing.Price > 0 {
		meta = append(meta, formatPrice(p.Pricing.Price, p.Pricing.Currency))
	}
	if d := p.ExpectedDuration(); d > 0 {
		meta = append(meta, humanizeDuration(d))
	}
	metaStr := strings.Join(meta, " · ")
	nameWidth := max(width-len([]rune(metaStr))-4, 8)
	return bg.Spaces(2) +
		bg.Render(truncate(p.Name, nameWidth), styles.Text) +
		bg.Spaces(2) +
		bg.Render(metaStr, styles.InfoText)
}

// scheduleLine renders a slot with its state badge.
func (m Model) scheduleLine(s api.Schedule, now time.Time, styles Styles, bg BgStyle) string {
	state := scheduleState(s, now)
	from, to := s.From().Local(), s.To().Local()
	when := from.Format("Mon 02 Jan 15:04")
	if !to.IsZero() {
		when += "–" + to.Format("15:04")
	}
	out := styles.StateStyle(state).Render(state) + bg.Space() + bg.Render(when, styles.Text)
	if state == stateBookable && s.Capacity != nil {
		out += bg.Render(fmt.Sprintf(" · %d seats", s.Seats()), styles.MutedText)
	}
	return out
}

// scheduleState names a slot for its badge.
func scheduleState(s api.Schedule, now time.Time) string {
	switch {
	case !s.Active():
		return stateInactive
	case s.Seats() <= 0:
		return stateFull
	case s.From().Before(now):
		return statePast
	default:
		return stateBookable
	}
}

// upcoming returns up to limit slots that have not ended, earliest first.
// Slots without a parseable start are skipped.
func upcoming(schedules []api.Schedule, now time.Time, limit int) []api.Schedule {
	out := make([]api.Schedule, 0, len(schedules))
	for _, s := range schedules {
		from := s.From()
		if from.IsZero() {
			continue
		}
		end := s.To()
		if end.IsZero() {
			end = from
		}
		if end.Before(now) {
			continue
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b api.Schedule) int {
		return a.From().Compare(b.From())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m Model) renderFeedback(width int, styles Styles, bg BgStyle) string {
	st := m.detail.feedback
	reviews, _ := st.Data.([]api.Feedback)
	if msg, done := m.sectionState(st, len(reviews), "reviews", styles, bg); done {
		return msg
	}

	now := m.now()
	ratingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StateColors[stateRating]))
	var b strings.Builder
	for i, f := range reviews {
		if i == DetailFeedbackLimit {
			b.WriteString(bg.Render(fmt.Sprintf("  +%d more", len(reviews)-i), styles.FaintText))
			b.WriteString("\n")
			break
		}
		rating := min(max(f.Rating, 0), 5)
		head := bg.Spaces(2) + bg.Render(strings.Repeat("★", rating)+strings.Repeat("☆", 5-rating), ratingStyle)
		if name := strings.TrimSpace(f.ClientUsername); name != "" {
			head += bg.Space() + bg.Render(name, styles.Text)
		}
		if created := f.Created(); !created.IsZero() {
			head += bg.Render(" · "+humanizeDuration(now.Sub(created))+" ago", styles.FaintText)
		}
		if n := len(f.ImageURLs); n > 0 {
			head += bg.Render(fmt.Sprintf(" · %d photo%s", n, plural(n)), styles.FaintText)
		}
		b.WriteString(head)
		b.WriteString("\n")
		for _, l := range wrap(f.Comment, width-4) {
			b.WriteString(bg.Spaces(4))
			b.WriteString(bg.Render(l, styles.MutedText))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// sectionState renders the loading, error or empty line of a section. done
// is false when there is data to show.
func (m Model) sectionState(st query.EntryState, n int, what string, styles Styles, bg BgStyle) (string, bool) {
	switch {
	case n > 0:
		return "", false
	case st.Status == query.StatusPending || st.Status == query.StatusIdle:
		return bg.Spaces(2) + bg.Render(m.spinner.View()+" Loading "+what+"...", styles.MutedText) + "\n", true
	case st.Status == query.StatusError:
		return bg.Spaces(2) + bg.Render("Could not load "+what+": "+api.Message(st.Err), styles.DangerText) + "\n", true
	default:
		return bg.Spaces(2) + bg.Render("No "+what+" yet", styles.FaintText) + "\n", true
	}
}

// wrap splits text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	width = max(width, 8)
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len([]rune(cur))+1+len([]rune(w)) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
