package portal

import (
	"context"
	"errors"
	"math"

	portalerrors "yogaportal/internal/portal/errors"
	"yogaportal/pkg/events"
	"yogaportal/pkg/locale"
	"yogaportal/pkg/model"
	"yogaportal/pkg/sanitizer"
	"yogaportal/pkg/storage"
)

func (p *Portal) Locations() []model.Location {
	return locale.Locations()
}

// NearestLocation is the supported city closest to lat/lng.
func (p *Portal) NearestLocation(lat, lng float64) (model.Location, error) {
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return model.Location{}, portalerrors.ErrInvalidCoordinates
	}
	return locale.Nearest(lat, lng), nil
}

func (p *Portal) CurrentLocation() model.Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.location
}

// SetLocation selects a city by id or slug, persists it and announces the
// change so the realtime bridge can re-scope.
func (p *Portal) SetLocation(ctx context.Context, id string) error {
	loc, ok := locale.Find(id)
	if !ok {
		return portalerrors.ErrUnknownLocation
	}

	p.mu.Lock()
	prev := p.location
	p.location = loc
	p.mu.Unlock()

	if err := storage.SetJSON(ctx, p.store, storage.KeyLocation, loc.ID); err != nil {
		p.log.Error("Failed to persist location", "location", loc.ID, "error", err)
	}

	if prev.ID != loc.ID {
		p.log.Info("Location changed", "from", prev.ID, "to", loc.ID)
		p.publish(events.LocationChanged, loc)
	}
	p.changed()
	return nil
}

func (p *Portal) restoreLocation(ctx context.Context) {
	var id string
	found, err := storage.GetJSON(ctx, p.store, storage.KeyLocation, &id)
	if err != nil {
		p.log.Warn("Discarding persisted location", "error", err)
		if errors.Is(err, storage.ErrCorrupt) {
			_ = p.store.Delete(ctx, storage.KeyLocation)
		}
		return
	}
	if !found {
		return
	}

	loc, ok := locale.Find(id)
	if !ok {
		p.log.Warn("Unknown persisted location, using default", "location", id)
		loc = locale.Default()
	}

	p.mu.Lock()
	p.location = loc
	p.mu.Unlock()
}

func (p *Portal) Filters() model.SearchFilters {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filters.Clone()
}

// SetFilters replaces the active filters. Tag lists are normalized.
func (p *Portal) SetFilters(f model.SearchFilters) error {
	f.Styles = sanitizer.Tags(f.Styles)
	f.Levels = sanitizer.Tags(f.Levels)
	f.Languages = sanitizer.Tags(f.Languages)
	f.TimeOfDay = sanitizer.Tags(f.TimeOfDay)
	f.InstructorIDs = sanitizer.Slice(f.InstructorIDs, sanitizer.ID)
	f.StudioIDs = sanitizer.Slice(f.StudioIDs, sanitizer.ID)

	if err := p.validator.ValidateFilters(&f); err != nil {
		return err
	}

	p.mu.Lock()
	p.filters = f.Clone()
	p.mu.Unlock()

	p.changed()
	return nil
}

func (p *Portal) ResetFilters() {
	p.mu.Lock()
	p.filters = model.SearchFilters{}
	p.mu.Unlock()

	p.changed()
}
