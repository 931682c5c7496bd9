package portal

import (
	"yogaportal/pkg/events"
	"yogaportal/pkg/model"
)

type IdentityState string

const (
	Anonymous      IdentityState = "anonymous"
	Authenticating IdentityState = "authenticating"
	Authenticated  IdentityState = "authenticated"
)

type SessionSource string

const (
	SourceNone     SessionSource = ""
	SourceRemote   SessionSource = "remote"
	SourceLocalDev SessionSource = "local_dev"
)

// State is a read-only copy of the portal. Mutating it has no effect.
type State struct {
	Identity    IdentityState          `json:"identity"`
	Source      SessionSource          `json:"source,omitempty"`
	Profile     *model.CustomerProfile `json:"profile,omitempty"`
	Preferences model.GuestPreferences `json:"guest_preferences"`
	Cart        []model.CartItem       `json:"cart"`
	CartTotal   float64                `json:"cart_total"`
	CartCount   int                    `json:"cart_count"`
	Location    model.Location         `json:"location"`
	Filters     model.SearchFilters    `json:"filters"`
	Realtime    string                 `json:"realtime"`
}

func (s State) IsAuthenticated() bool {
	return s.Identity == Authenticated
}

func (p *Portal) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return State{
		Identity:    p.identity,
		Source:      p.source,
		Profile:     p.profile.Clone(),
		Preferences: p.guestPrefs.Clone(),
		Cart:        p.cartLocked(),
		CartTotal:   cartTotal(p.cart),
		CartCount:   cartCount(p.cart),
		Location:    p.location,
		Filters:     p.filters.Clone(),
		Realtime:    p.realtime,
	}
}

// SetRealtimeStatus mirrors the bridge connection state into the snapshot.
func (p *Portal) SetRealtimeStatus(status string) {
	p.mu.Lock()
	if p.realtime == status {
		p.mu.Unlock()
		return
	}
	p.realtime = status
	p.mu.Unlock()

	p.changed()
}

// changed notifies state.changed subscribers. Callers must not hold mu.
func (p *Portal) changed() {
	p.bus.Publish(events.New(events.StateChanged, "portal", p.Snapshot()))
}
