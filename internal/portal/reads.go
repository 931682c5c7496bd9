package portal

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"yogaportal/pkg/events"
	"yogaportal/pkg/metrics"
	"yogaportal/pkg/model"
	"yogaportal/pkg/sanitizer"
)

const (
	EndpointSearchClasses          = "searchClasses"
	EndpointStudios                = "getStudios"
	EndpointInstructors            = "getInstructors"
	EndpointWeather                = "getWeatherData"
	EndpointLocalEvents            = "getLocalEvents"
	EndpointInstructorAvailability = "getInstructorAvailability"
	EndpointStudioReviews          = "getStudioReviews"
	EndpointInstructorReviews      = "getInstructorReviews"
)

// pushInvalidates maps a pushed change to the cached reads it makes stale.
var pushInvalidates = map[string][]string{
	events.ClassUpdated:        {EndpointSearchClasses},
	events.BookingUpdated:      {EndpointSearchClasses},
	events.AvailabilityUpdated: {EndpointInstructorAvailability},
}

// InvalidatePushed drops the cached reads made stale by a pushed change of
// eventType and returns how many entries went. Unknown types drop nothing.
func (p *Portal) InvalidatePushed(eventType string) int {
	n := 0
	for _, endpoint := range pushInvalidates[eventType] {
		n += p.cache.Invalidate(endpoint + ":")
	}
	if n > 0 {
		p.log.Debug("Dropped cached reads after push", "event", eventType, "entries", n)
	}
	return n
}

type readOptions struct {
	fresh bool
}

type ReadOption func(*readOptions)

// Fresh skips the cache lookup. The response still replaces the cached entry.
func Fresh() ReadOption {
	return func(o *readOptions) { o.fresh = true }
}

// cachedRead is the shared read-through path: a live entry is returned as is,
// a miss calls the backend and caches the result, and a failure is logged and
// read as an empty list.
func cachedRead[T any](ctx context.Context, p *Portal, endpoint string, params any, opts []ReadOption, fetch func(context.Context) ([]T, error)) []T {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	v, hit, err := p.cache.Load(ctx, CacheKey(endpoint, params), o.fresh, func(ctx context.Context) (any, error) {
		items, err := fetch(ctx)
		metrics.RecordBackendCall(endpoint, err)
		return items, err
	})
	if hit {
		metrics.RecordCacheHit(endpoint)
	} else {
		metrics.RecordCacheMiss(endpoint)
	}
	if err != nil {
		p.log.Warn("Marketplace read failed", "endpoint", endpoint, "error", err)
		return []T{}
	}

	items, _ := v.([]T)
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// SearchClasses fills an empty location and empty filters from the current
// selection.
func (p *Portal) SearchClasses(ctx context.Context, q model.ClassQuery, opts ...ReadOption) []model.Class {
	p.mu.RLock()
	if q.Location == "" {
		q.Location = p.location.ID
	}
	if q.Filters.IsZero() {
		q.Filters = p.filters.Clone()
	}
	p.mu.RUnlock()
	q.Style = sanitizer.Tag(q.Style)

	if err := p.validator.ValidateClassQuery(&q); err != nil {
		p.log.Warn("Invalid class query", "error", err)
		return []model.Class{}
	}

	return cachedRead(ctx, p, EndpointSearchClasses, q, opts, func(ctx context.Context) ([]model.Class, error) {
		return p.market.SearchClasses(ctx, q)
	})
}

func (p *Portal) GetStudios(ctx context.Context, q model.StudioQuery, opts ...ReadOption) []model.Studio {
	q.Style = sanitizer.Tag(q.Style)
	return cachedRead(ctx, p, EndpointStudios, q, opts, func(ctx context.Context) ([]model.Studio, error) {
		return p.market.Studios(ctx, q)
	})
}

func (p *Portal) GetInstructors(ctx context.Context, q model.InstructorQuery, opts ...ReadOption) []model.Instructor {
	q.Style = sanitizer.Tag(q.Style)
	q.Language = sanitizer.Tag(q.Language)
	return cachedRead(ctx, p, EndpointInstructors, q, opts, func(ctx context.Context) ([]model.Instructor, error) {
		return p.market.Instructors(ctx, q)
	})
}

func (p *Portal) GetLocalEvents(ctx context.Context, q model.EventQuery, opts ...ReadOption) []model.LocalEvent {
	if q.Location == "" {
		q.Location = p.CurrentLocation().ID
	}
	if err := p.validator.ValidateEventQuery(&q); err != nil {
		p.log.Warn("Invalid event query", "error", err)
		return []model.LocalEvent{}
	}

	return cachedRead(ctx, p, EndpointLocalEvents, q, opts, func(ctx context.Context) ([]model.LocalEvent, error) {
		return p.market.Events(ctx, q)
	})
}

func (p *Portal) GetInstructorAvailability(ctx context.Context, instructorID, date string, opts ...ReadOption) []model.AvailabilitySlot {
	params := map[string]string{"instructor_id": sanitizer.ID(instructorID), "date": date}
	return cachedRead(ctx, p, EndpointInstructorAvailability, params, opts, func(ctx context.Context) ([]model.AvailabilitySlot, error) {
		return p.market.InstructorAvailability(ctx, params["instructor_id"], date)
	})
}

func (p *Portal) GetStudioReviews(ctx context.Context, studioID string, opts ...ReadOption) []model.Review {
	params := map[string]string{"studio_id": sanitizer.ID(studioID)}
	return cachedRead(ctx, p, EndpointStudioReviews, params, opts, func(ctx context.Context) ([]model.Review, error) {
		return p.market.StudioReviews(ctx, params["studio_id"])
	})
}

func (p *Portal) GetInstructorReviews(ctx context.Context, instructorID string, opts ...ReadOption) []model.Review {
	params := map[string]string{"instructor_id": sanitizer.ID(instructorID)}
	return cachedRead(ctx, p, EndpointInstructorReviews, params, opts, func(ctx context.Context) ([]model.Review, error) {
		return p.market.InstructorReviews(ctx, params["instructor_id"])
	})
}

// GetWeatherData is a stub: no weather provider is wired, so the reading is
// synthesized from the coordinates and the current day. Out-of-range
// coordinates return nil.
func (p *Portal) GetWeatherData(ctx context.Context, lat, lng float64, opts ...ReadOption) *model.Weather {
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		p.log.Warn("Weather requested for invalid coordinates", "lat", lat, "lng", lng)
		return nil
	}

	params := map[string]float64{"lat": lat, "lng": lng}
	day := p.now().UTC().Format("2006-01-02")

	items := cachedRead(ctx, p, EndpointWeather, params, opts, func(context.Context) ([]model.Weather, error) {
		return []model.Weather{syntheticWeather(lat, lng, day)}, nil
	})
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}

var weatherConditions = []string{"sunny", "partly_cloudy", "cloudy", "light_rain", "rain"}

func syntheticWeather(lat, lng float64, day string) model.Weather {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(math.Round(lat*100)/100))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(math.Round(lng*100)/100))
	h.Write(buf[:])
	h.Write([]byte(day))
	seed := h.Sum64()

	condition := weatherConditions[seed%uint64(len(weatherConditions))]
	temp := 4 + float64((seed>>8)%2200)/100
	wind := float64((seed>>24)%3500) / 100

	return model.Weather{
		Lat:             lat,
		Lng:             lng,
		TemperatureC:    math.Round(temp*10) / 10,
		Condition:       condition,
		Humidity:        35 + int((seed>>40)%55),
		WindKph:         math.Round(wind*10) / 10,
		OutdoorFriendly: temp >= 14 && wind < 25 && (condition == "sunny" || condition == "partly_cloudy"),
		Synthetic:       true,
	}
}
