package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yogaportal/pkg/model"
)

// MarketplaceClient talks to the marketplace edge function. Public reads go
// out with the anon key, writes with the caller's access token.
type MarketplaceClient struct {
	httpClient *HttpClient
}

func NewMarketplaceClient(baseURL, functionsPath, anonKey string) *MarketplaceClient {
	hc := NewHttpClient(strings.TrimRight(baseURL, "/") + functionsPath)
	hc.APIKey = anonKey
	return &MarketplaceClient{httpClient: hc}
}

func (c *MarketplaceClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *MarketplaceClient) Health(ctx context.Context) error {
	resp, err := c.httpClient.GET(ctx, "/health", Call{})
	if err != nil {
		return err
	}
	return resp.Err()
}

// WaitUntilHealthy polls the health endpoint until it answers 2xx or maxWait
// has passed.
func (c *MarketplaceClient) WaitUntilHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(ctx, "/health", maxWait)
}

func (c *MarketplaceClient) SearchClasses(ctx context.Context, q model.ClassQuery) ([]model.Class, error) {
	v := url.Values{}
	setIf(v, "location", q.Location)
	setIf(v, "style", q.Style)
	setIf(v, "date", q.Date)
	if !q.Filters.IsZero() {
		v.Set("filters", model.CanonicalParams(q.Filters))
	}

	var classes []model.Class
	err := c.httpClient.Fetch(ctx, http.MethodGet, withQuery("/classes", v), nil, Call{}, &classes)
	return classes, err
}

func (c *MarketplaceClient) Studios(ctx context.Context, q model.StudioQuery) ([]model.Studio, error) {
	v := url.Values{}
	setIf(v, "location", q.Location)
	setIf(v, "style", q.Style)

	var studios []model.Studio
	err := c.httpClient.Fetch(ctx, http.MethodGet, withQuery("/studios", v), nil, Call{}, &studios)
	return studios, err
}

func (c *MarketplaceClient) Instructors(ctx context.Context, q model.InstructorQuery) ([]model.Instructor, error) {
	v := url.Values{}
	setIf(v, "location", q.Location)
	setIf(v, "style", q.Style)
	setIf(v, "language", q.Language)

	var instructors []model.Instructor
	err := c.httpClient.Fetch(ctx, http.MethodGet, withQuery("/instructors", v), nil, Call{}, &instructors)
	return instructors, err
}

func (c *MarketplaceClient) InstructorAvailability(ctx context.Context, instructorID, date string) ([]model.AvailabilitySlot, error) {
	v := url.Values{}
	setIf(v, "date", date)

	path := "/instructors/" + url.PathEscape(instructorID) + "/availability"
	var slots []model.AvailabilitySlot
	err := c.httpClient.Fetch(ctx, http.MethodGet, withQuery(path, v), nil, Call{}, &slots)
	return slots, err
}

func (c *MarketplaceClient) StudioReviews(ctx context.Context, studioID string) ([]model.Review, error) {
	var reviews []model.Review
	err := c.httpClient.Fetch(ctx, http.MethodGet, "/studios/"+url.PathEscape(studioID)+"/reviews", nil, Call{}, &reviews)
	return reviews, err
}

func (c *MarketplaceClient) InstructorReviews(ctx context.Context, instructorID string) ([]model.Review, error) {
	var reviews []model.Review
	err := c.httpClient.Fetch(ctx, http.MethodGet, "/instructors/"+url.PathEscape(instructorID)+"/reviews", nil, Call{}, &reviews)
	return reviews, err
}

func (c *MarketplaceClient) Events(ctx context.Context, q model.EventQuery) ([]model.LocalEvent, error) {
	v := url.Values{}
	setIf(v, "location", q.Location)
	setIf(v, "from", q.From)
	setIf(v, "to", q.To)
	setIf(v, "type", q.Type)

	var events []model.LocalEvent
	err := c.httpClient.Fetch(ctx, http.MethodGet, withQuery("/events", v), nil, Call{}, &events)
	return events, err
}

func (c *MarketplaceClient) CreateBooking(ctx context.Context, token string, req model.BookingRequest) (*model.Booking, error) {
	var booking model.Booking
	if err := c.httpClient.Fetch(ctx, http.MethodPost, "/bookings", req, Call{Token: token}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *MarketplaceClient) CreatePrivateBooking(ctx context.Context, token string, req model.PrivateLessonRequest) (*model.Booking, error) {
	var booking model.Booking
	if err := c.httpClient.Fetch(ctx, http.MethodPost, "/private-bookings", req, Call{Token: token}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *MarketplaceClient) CancelBooking(ctx context.Context, token, bookingID string) error {
	return c.httpClient.Fetch(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(bookingID), nil, Call{Token: token}, nil)
}

func (c *MarketplaceClient) MyBookings(ctx context.Context, token string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := c.httpClient.Fetch(ctx, http.MethodGet, "/bookings", nil, Call{Token: token}, &bookings)
	return bookings, err
}

func (c *MarketplaceClient) GetProfile(ctx context.Context, token string) (*model.CustomerProfile, error) {
	var profile model.CustomerProfile
	if err := c.httpClient.Fetch(ctx, http.MethodGet, "/profile", nil, Call{Token: token}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *MarketplaceClient) UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.CustomerProfile, error) {
	var profile model.CustomerProfile
	if err := c.httpClient.Fetch(ctx, http.MethodPatch, "/profile", update, Call{Token: token}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
