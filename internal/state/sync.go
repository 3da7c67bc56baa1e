package state

import (
	"time"

	"github.com/five82/washbook/internal/store"
)

// Sync summarizes background refreshes of the station list.
type Sync struct {
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Sync) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// SyncStore records poll outcomes for the header.
type SyncStore struct {
	*store.Store[Sync]
	now func() time.Time
}

// NewSyncStore returns a store with no recorded polls.
func NewSyncStore() *SyncStore {
	return &SyncStore{Store: store.New(Sync{}), now: time.Now}
}

// Record notes one poll. A failure keeps the last success time but counts
// towards going offline; a success resets the counter.
func (s *SyncStore) Record(err error) {
	now := s.now()
	s.Update(func(cur Sync) Sync {
		cur.LastUpdated = now
		if err != nil {
			cur.LastError = err
			cur.ConsecutiveFailures++
			return cur
		}
		cur.LastError = nil
		cur.ConsecutiveFailures = 0
		return cur
	})
}
