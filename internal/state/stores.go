package state

import (
	"log/slog"

	"github.com/five82/washbook/internal/storage"
)

// Stores groups the shared state containers. It is built once at startup
// and passed to whoever needs it.
type Stores struct {
	Session  *SessionStore
	Location *LocationStore
	Filter   *FilterStore
	Sync     *SyncStore
}

// NewStores builds every store over kv.
func NewStores(kv storage.KV, locator Locator, logger *slog.Logger) *Stores {
	return &Stores{
		Session:  NewSessionStore(kv),
		Location: NewLocationStore(kv, locator, logger),
		Filter:   NewFilterStore(),
		Sync:     NewSyncStore(),
	}
}
