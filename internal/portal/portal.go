// Package portal holds the session and marketplace state of one device: who
// is signed in, the cart, the selected city, search filters and a TTL cache
// over marketplace reads. All mutation goes through the action methods;
// readers take a Snapshot.
package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"yogaportal/internal/portal/validator"
	"yogaportal/pkg/config"
	"yogaportal/pkg/events"
	"yogaportal/pkg/locale"
	"yogaportal/pkg/logger"
	"yogaportal/pkg/model"
	"yogaportal/pkg/sealer"
	"yogaportal/pkg/storage"
)

// Marketplace is the backend surface the portal reads from and writes to.
// *client.MarketplaceClient implements it.
type Marketplace interface {
	Health(ctx context.Context) error

	SearchClasses(ctx context.Context, q model.ClassQuery) ([]model.Class, error)
	Studios(ctx context.Context, q model.StudioQuery) ([]model.Studio, error)
	Instructors(ctx context.Context, q model.InstructorQuery) ([]model.Instructor, error)
	InstructorAvailability(ctx context.Context, instructorID, date string) ([]model.AvailabilitySlot, error)
	StudioReviews(ctx context.Context, studioID string) ([]model.Review, error)
	InstructorReviews(ctx context.Context, instructorID string) ([]model.Review, error)
	Events(ctx context.Context, q model.EventQuery) ([]model.LocalEvent, error)

	CreateBooking(ctx context.Context, token string, req model.BookingRequest) (*model.Booking, error)
	CreatePrivateBooking(ctx context.Context, token string, req model.PrivateLessonRequest) (*model.Booking, error)
	CancelBooking(ctx context.Context, token, bookingID string) error
	MyBookings(ctx context.Context, token string) ([]model.Booking, error)

	GetProfile(ctx context.Context, token string) (*model.CustomerProfile, error)
	UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.CustomerProfile, error)
}

// Auth is the identity provider. *client.AuthClient implements it.
type Auth interface {
	PasswordGrant(ctx context.Context, email, password string) (*model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
}

type Deps struct {
	Marketplace Marketplace
	Auth        Auth
	Store       storage.Store
	Bus         *events.Bus
	Clock       func() time.Time
}

type Portal struct {
	cfg       *config.Config
	log       *logger.Logger
	market    Marketplace
	auth      Auth
	store     storage.Store
	bus       *events.Bus
	validator *validator.PortalValidator
	sealer    *sealer.Sealer
	cache     *Cache
	now       func() time.Time

	// authMu serializes identity transitions (start, login, logout, auth
	// events). mu guards the fields below and is never held across I/O.
	authMu sync.Mutex
	mu     sync.RWMutex

	identity   IdentityState
	source     SessionSource
	session    *model.Session
	profile    *model.CustomerProfile
	guestPrefs model.GuestPreferences
	cart       []model.CartItem
	location   model.Location
	filters    model.SearchFilters
	realtime   string
}

func New(cfg *config.Config, deps Deps) (*Portal, error) {
	if deps.Marketplace == nil || deps.Auth == nil || deps.Store == nil {
		return nil, fmt.Errorf("portal: marketplace, auth and store are required")
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	log := cfg.Log.Component("portal")

	var s *sealer.Sealer
	if cfg.SessionSealKey != "" {
		var err error
		s, err = sealer.New(cfg.SessionSealKey)
		if err != nil {
			return nil, fmt.Errorf("portal: %w", err)
		}
	} else {
		log.Warn("Session seal key not set, sessions are stored unsealed")
	}

	p := &Portal{
		cfg:       cfg,
		log:       log,
		market:    deps.Marketplace,
		auth:      deps.Auth,
		store:     deps.Store,
		bus:       deps.Bus,
		validator: validator.NewPortalValidator(log),
		sealer:    s,
		now:       deps.Clock,
		identity:  Anonymous,
		location:  locale.Default(),
		realtime:  "disconnected",
	}
	p.cache = NewCache(CacheOptions{
		TTL:           cfg.CacheTTL,
		MaxEntries:    cfg.CacheMaxEntries,
		SweepInterval: cfg.CacheSweepInterval,
		SingleFlight:  cfg.CacheSingleFlight,
		Now:           deps.Clock,
	})

	return p, nil
}

// Start restores the persisted location and identity.
func (p *Portal) Start(ctx context.Context) {
	p.restoreLocation(ctx)
	p.restoreSession(ctx)

	st := p.Snapshot()
	p.log.Info("Portal started",
		"location", st.Location.ID,
		"identity", st.Identity,
		"source", st.Source,
	)
}

// Bus is the event bus the portal publishes on.
func (p *Portal) Bus() *events.Bus {
	return p.bus
}

// Ping checks that the marketplace backend answers.
func (p *Portal) Ping(ctx context.Context) error {
	return p.market.Health(ctx)
}

func (p *Portal) Close() {
	p.cache.Close()
}

func (p *Portal) publish(eventType string, data any) {
	p.bus.Publish(events.New(eventType, "portal", data))
}
