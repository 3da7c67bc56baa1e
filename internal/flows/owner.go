package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/state"
)

// ErrNoStation is returned when no station belongs to the signed-in owner.
var ErrNoStation = errors.New("no station is registered to this account")

// Dashboard is what an owner sees of their station.
type Dashboard struct {
	Carwash   api.CarwashSummary
	Products  []api.Product
	Pricing   []api.Pricing
	Schedules []api.Schedule
}

// Owner serves station owners.
type Owner struct {
	catalog *Catalog
	session *state.SessionStore
}

// NewOwner builds the owner flow.
func NewOwner(deps Deps, catalog *Catalog) *Owner {
	return &Owner{catalog: catalog, session: deps.Stores.Session}
}

// Dashboard finds the station whose username matches the token subject and
// collects its products, prices and schedules.
func (o *Owner) Dashboard(ctx context.Context) (Dashboard, error) {
	token := o.session.Token()
	if token == "" {
		return Dashboard{}, state.ErrNotSignedIn
	}
	claims, err := api.Claims(token)
	if err != nil {
		return Dashboard{}, err
	}
	if claims.Subject == "" {
		return Dashboard{}, fmt.Errorf("token has no subject")
	}

	all := o.catalog.AllCarwashes(ctx)
	if all.Err != nil && !all.HasData {
		return Dashboard{}, fmt.Errorf("load stations: %w", all.Err)
	}
	var dash Dashboard
	found := false
	for _, c := range all.Data {
		if c.Username == claims.Subject {
			dash.Carwash = c
			found = true
			break
		}
	}
	if !found {
		return Dashboard{}, ErrNoStation
	}

	products := o.catalog.Products(ctx, dash.Carwash.ID)
	if products.Err != nil && !products.HasData {
		return Dashboard{}, fmt.Errorf("load products: %w", products.Err)
	}
	dash.Products = products.Data
	for _, p := range products.Data {
		if p.Pricing != (api.Pricing{}) {
			dash.Pricing = append(dash.Pricing, p.Pricing)
		}
		dash.Schedules = append(dash.Schedules, p.Schedules...)
	}
	return dash, nil
}
