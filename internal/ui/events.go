package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/washbook/internal/prefs"
	"github.com/five82/washbook/internal/query"
)

// changedMsg reports that a store or a watched cache entry changed. The
// model re-reads every snapshot on receipt, so one pending message covers
// any number of changes.
type changedMsg struct{}

// prefsChangedMsg carries preferences edited outside the UI.
type prefsChangedMsg prefs.Prefs

// eventBridge turns store and cache notifications into tea messages. It is
// shared by every copy of the model.
type eventBridge struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan tea.Msg

	mu       sync.Mutex
	unsubs   []func()
	detail   []func()
	detailID int64
}

func newEventBridge(ctx context.Context) *eventBridge {
	ctx, cancel := context.WithCancel(ctx)
	return &eventBridge{ctx: ctx, cancel: cancel, ch: make(chan tea.Msg, 16)}
}

// changed is the callback handed to stores and the cache. Listeners run in
// the writer's goroutine, so it never blocks.
func (b *eventBridge) changed() {
	select {
	case b.ch <- changedMsg{}:
	default:
	}
}

// send delivers msg unless the bridge is closed.
func (b *eventBridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.ctx.Done():
	}
}

// watch registers an unsubscribe function returned by a Subscribe call.
func (b *eventBridge) watch(unsub func()) {
	b.mu.Lock()
	b.unsubs = append(b.unsubs, unsub)
	b.mu.Unlock()
}

// watchDetail follows the cache entries of one station, dropping the
// entries of the previously watched one.
func (b *eventBridge) watchDetail(cache *query.Cache, id int64, keys ...query.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detailID == id && len(b.detail) > 0 {
		return
	}
	for _, unsub := range b.detail {
		unsub()
	}
	b.detail = b.detail[:0]
	b.detailID = id
	for _, k := range keys {
		b.detail = append(b.detail, cache.Subscribe(k, b.changed))
	}
}

// wait returns a command that blocks for the next message.
func (b *eventBridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.ctx.Done():
			return nil
		}
	}
}

// close drops every subscription and releases pending waits.
func (b *eventBridge) close() {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, unsub := range append(b.unsubs, b.detail...) {
		unsub()
	}
	b.unsubs, b.detail = nil, nil
}
