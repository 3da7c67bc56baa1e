package ui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/flows"
	"github.com/five82/washbook/internal/prefs"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
	"github.com/five82/washbook/internal/storage"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/api/carwashes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []api.CarwashSummary{
			{ID: 1, CarwashName: "Alpha Wash", Address: "1 Nguyen Hue"},
			{ID: 2, CarwashName: "Bubble Bay", Address: "7 Le Loi"},
		})
	})
	r.Get("/api/carwashes/{id}/products", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []api.Product{{ID: 10, Name: "Basic wash", Timing: "30"}})
	})
	r.Get("/api/feedbacks/carwash/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []api.Feedback{})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := query.New()
	stores := state.NewStores(storage.NewMemory(), nil, logger)

	m := New(context.Background(), Options{
		Flows:     flows.New(flows.Deps{API: client, Cache: cache, Stores: stores, Logger: logger}),
		Stores:    stores,
		Cache:     cache,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Logger:    logger,
	})
	t.Cleanup(m.Close)
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadedModel returns a sized model whose station list has loaded.
func loadedModel(t *testing.T) Model {
	t.Helper()
	m := newTestModel(t)
	if res := m.flows.Catalog.Search().Load(context.Background()); res.Err != nil {
		t.Fatalf("Load: %v", res.Err)
	}
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return update(t, m, changedMsg{})
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := newTestModel(t)
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View() = %q, want Loading...", got)
	}
}

func TestModel_ShowsLoadedStations(t *testing.T) {
	m := loadedModel(t)

	if got := m.listTitle(); got != "Stations (2) by name" {
		t.Fatalf("listTitle() = %q", got)
	}
	if m.detail.id != 1 {
		t.Fatalf("open station = %d, want 1", m.detail.id)
	}
	if !strings.Contains(m.View(), "Alpha Wash") {
		t.Fatal("View() does not list Alpha Wash")
	}

	if res := m.flows.Catalog.Products(context.Background(), 1); res.Err != nil {
		t.Fatalf("Products: %v", res.Err)
	}
	m = update(t, m, changedMsg{})
	if m.detail.products.Status != query.StatusSuccess {
		t.Fatalf("products status = %v, want success", m.detail.products.Status)
	}
}

func TestModel_ListNavigation(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, runes("j"))
	if m.selectedRow != 1 || m.detail.id != 2 {
		t.Fatalf("after j: row %d station %d, want 1 and 2", m.selectedRow, m.detail.id)
	}
	m = update(t, m, runes("j"))
	if m.selectedRow != 1 {
		t.Fatalf("cursor moved past the last row: %d", m.selectedRow)
	}
	m = update(t, m, runes("g"))
	if m.selectedRow != 0 || m.detail.id != 1 {
		t.Fatalf("after g: row %d station %d", m.selectedRow, m.detail.id)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPane != PaneDetail {
		t.Fatal("tab did not focus the detail pane")
	}
	m = update(t, m, runes("j"))
	if m.selectedRow != 0 {
		t.Fatal("j in the detail pane moved the list cursor")
	}
}

func TestModel_SearchFiltersRows(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, runes("/"))
	if !m.searching {
		t.Fatal("/ did not start a search")
	}
	m = update(t, m, runes("bub"))
	if m.searchQuery != "bub" {
		t.Fatalf("searchQuery = %q, want bub", m.searchQuery)
	}
	if rows := m.rows(); len(rows) != 1 || rows[0].ID != 2 {
		t.Fatalf("rows = %v, want station 2 only", rowIDs(rows))
	}
	if m.detail.id != 2 {
		t.Fatalf("open station = %d, want 2", m.detail.id)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searching || m.searchQuery != "bub" {
		t.Fatal("enter should keep the query and leave search mode")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searchQuery != "" || len(m.rows()) != 2 {
		t.Fatal("esc did not clear the search")
	}
}

func TestModel_ToggleSort(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, runes("s"))
	if m.sortMode != SortByDistance {
		t.Fatal("s did not switch to distance sort")
	}
	if got := m.listTitle(); got != "Stations (2) by distance" {
		t.Fatalf("listTitle() = %q", got)
	}
	m = update(t, m, runes("s"))
	if m.sortMode != SortByName {
		t.Fatal("s did not switch back to name sort")
	}
}

func TestModel_HelpAndModal(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, runes("?"))
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help overlay not shown")
	}
	m = update(t, m, runes("x"))
	if m.showHelp {
		t.Fatal("any key should close help")
	}

	m = update(t, m, runes("L"))
	if m.modal == nil {
		t.Fatal("L did not open the location dialog")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.modal != nil {
		t.Fatal("esc did not close the location dialog")
	}
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	m := loadedModel(t)
	before := m.theme.Name

	m = update(t, m, runes("T"))
	if m.theme.Name == before {
		t.Fatal("T did not change the theme")
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if saved.Theme != m.theme.Name {
		t.Fatalf("saved theme = %q, want %q", saved.Theme, m.theme.Name)
	}

	m = update(t, m, prefsChangedMsg(prefs.Prefs{Theme: before}))
	if m.theme.Name != before {
		t.Fatalf("theme = %q after prefs change, want %q", m.theme.Name, before)
	}
}

func TestModel_FetchErrors(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, fetchDoneMsg{label: "load more", err: errors.New("boom")})
	if m.errorMsg != "load more: boom" {
		t.Fatalf("errorMsg = %q", m.errorMsg)
	}
	m = update(t, m, fetchDoneMsg{label: "refresh"})
	if m.errorMsg == "" {
		t.Fatal("an unrelated success cleared the error")
	}
	m = update(t, m, fetchDoneMsg{label: "load more"})
	if m.errorMsg != "" {
		t.Fatalf("errorMsg = %q after success, want empty", m.errorMsg)
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := loadedModel(t)
	_, cmd := m.Update(runes("e"))
	if cmd == nil {
		t.Fatal("e returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("e did not quit")
	}
}
