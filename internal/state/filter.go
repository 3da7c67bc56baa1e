package state

import (
	"math"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/store"
)

// FilterResult is the outcome of the latest station filter.
type FilterResult struct {
	Data       []api.CarwashSummary
	HasResults bool
}

// FilterStore holds the latest FilterResult. Every outcome replaces it
// wholesale.
type FilterStore struct {
	*store.Store[FilterResult]
}

// NewFilterStore returns an empty FilterStore.
func NewFilterStore() *FilterStore {
	return &FilterStore{Store: store.New(FilterResult{})}
}

// SetResults records a successful filter.
func (f *FilterStore) SetResults(data []api.CarwashSummary) {
	dup := make([]api.CarwashSummary, len(data))
	copy(dup, data)
	f.Set(FilterResult{Data: dup, HasResults: len(dup) > 0})
}

// Clear records an empty outcome.
func (f *FilterStore) Clear() {
	f.Set(FilterResult{Data: []api.CarwashSummary{}})
}

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between two
// positions given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
