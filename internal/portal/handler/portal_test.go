package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yogaportal/internal/portal"
	portalerrors "yogaportal/internal/portal/errors"
	"yogaportal/internal/portal/validator"
	"yogaportal/pkg/events"
	"yogaportal/pkg/logger"
	"yogaportal/pkg/model"
)

type fakeService struct {
	mu    sync.Mutex
	bus   *events.Bus
	state portal.State

	loginCalls  [][2]string
	bookings    []model.BookingRequest
	bookResult  model.Result
	cartErr     error
	readOpts    int
	classQuery  model.ClassQuery
	cancelledID string
}

func newFakeService() *fakeService {
	return &fakeService{
		bus: events.NewBus(),
		state: portal.State{
			Identity: portal.Anonymous,
			Location: model.Location{ID: "zurich", Slug: "zurich", Name: "Zürich"},
			Cart:     []model.CartItem{},
			Realtime: "disconnected",
		},
		bookResult: model.Fail(portalerrors.ErrAuthRequired.Error()),
	}
}

func (f *fakeService) Snapshot() portal.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeService) Bus() *events.Bus { return f.bus }

func (f *fakeService) Login(_ context.Context, email, password string) model.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls = append(f.loginCalls, [2]string{email, password})
	if email == "" && password == "" {
		return model.Fail(portalerrors.ErrCredentialsRequired.Error())
	}
	return model.Ok(&model.CustomerProfile{ID: "user-1", Email: email})
}

func (f *fakeService) Logout(context.Context) model.Result { return model.Ok(nil) }

func (f *fakeService) UpdateProfile(context.Context, model.ProfileUpdate) model.Result {
	return model.Fail(portalerrors.ErrAuthRequired.Error())
}

func (f *fakeService) GuestPreferences() model.GuestPreferences { return f.state.Preferences }

func (f *fakeService) SetGuestPreferences(prefs model.GuestPreferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Preferences = prefs
	return nil
}

func (f *fakeService) AddToCart(item model.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cartErr != nil {
		return f.cartErr
	}
	f.state.Cart = append(f.state.Cart, item)
	f.state.CartCount += item.Quantity
	f.state.CartTotal += item.Price * float64(item.Quantity)
	return nil
}

func (f *fakeService) RemoveFromCart(string) error { return portalerrors.ErrNotInCart }

func (f *fakeService) UpdateQuantity(string, int) error { return portalerrors.ErrNotInCart }

func (f *fakeService) ClearCart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Cart = []model.CartItem{}
	f.state.CartCount = 0
	f.state.CartTotal = 0
}

func (f *fakeService) Locations() []model.Location { return []model.Location{f.state.Location} }

func (f *fakeService) NearestLocation(lat, lng float64) (model.Location, error) {
	if lat > 90 {
		return model.Location{}, portalerrors.ErrInvalidCoordinates
	}
	return model.Location{ID: "geneva", Slug: "geneva", Lat: lat, Lng: lng}, nil
}

func (f *fakeService) SetLocation(_ context.Context, id string) error {
	if id != "zurich" && id != "geneva" {
		return portalerrors.ErrUnknownLocation
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Location = model.Location{ID: id, Slug: id}
	return nil
}

func (f *fakeService) Filters() model.SearchFilters { return f.state.Filters }

func (f *fakeService) SetFilters(sf model.SearchFilters) error {
	if sf.PriceMax != 0 && sf.PriceMax < sf.PriceMin {
		return validator.ValidationErrors{{Field: "PriceMax", Message: "PriceMax must be at least PriceMin"}}
	}
	f.state.Filters = sf
	return nil
}

func (f *fakeService) ResetFilters() { f.state.Filters = model.SearchFilters{} }

func (f *fakeService) SearchClasses(_ context.Context, q model.ClassQuery, opts ...portal.ReadOption) []model.Class {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classQuery = q
	f.readOpts = len(opts)
	return []model.Class{{ID: "vinyasa-flow-101", Style: "vinyasa", Price: 32, Location: "zurich"}}
}

func (f *fakeService) GetStudios(context.Context, model.StudioQuery, ...portal.ReadOption) []model.Studio {
	return []model.Studio{}
}

func (f *fakeService) GetInstructors(context.Context, model.InstructorQuery, ...portal.ReadOption) []model.Instructor {
	return []model.Instructor{}
}

func (f *fakeService) GetLocalEvents(context.Context, model.EventQuery, ...portal.ReadOption) []model.LocalEvent {
	return []model.LocalEvent{}
}

func (f *fakeService) GetInstructorAvailability(_ context.Context, instructorID, date string, _ ...portal.ReadOption) []model.AvailabilitySlot {
	return []model.AvailabilitySlot{{InstructorID: instructorID, Date: date, StartTime: "09:00", EndTime: "10:00", Available: true}}
}

func (f *fakeService) GetStudioReviews(context.Context, string, ...portal.ReadOption) []model.Review {
	return []model.Review{}
}

func (f *fakeService) GetInstructorReviews(context.Context, string, ...portal.ReadOption) []model.Review {
	return []model.Review{}
}

func (f *fakeService) GetWeatherData(_ context.Context, lat, lng float64, _ ...portal.ReadOption) *model.Weather {
	return &model.Weather{Lat: lat, Lng: lng, Condition: "sunny", Synthetic: true}
}

func (f *fakeService) BookClass(_ context.Context, req model.BookingRequest) model.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, req)
	return f.bookResult
}

func (f *fakeService) BookPrivateLesson(context.Context, model.PrivateLessonRequest) model.Result {
	return model.Fail(portalerrors.ErrAuthRequired.Error())
}

func (f *fakeService) CancelBooking(_ context.Context, id string) model.Result {
	f.cancelledID = id
	return model.Ok(nil)
}

func (f *fakeService) GetMyBookings(context.Context) []model.Booking { return []model.Booking{} }

func newRouter(t *testing.T, svc Service, opts ...Option) *httprouter.Router {
	t.Helper()
	router := httprouter.New()
	NewPortalHandler(svc, logger.Discard(), opts...).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) model.Result {
	t.Helper()
	var res model.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestState_ReturnsSnapshot(t *testing.T) {
	router := newRouter(t, newFakeService())

	w := do(t, router, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data portal.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, portal.Anonymous, body.Data.Identity)
	assert.Equal(t, "zurich", body.Data.Location.ID)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCall   [2]string
	}{
		{"credentials", `{"email":"anna@example.ch","password":"secret"}`, http.StatusOK, [2]string{"anna@example.ch", "secret"}},
		{"empty body is the development login", "", http.StatusBadRequest, [2]string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			router := newRouter(t, svc)

			w := do(t, router, http.MethodPost, "/api/v1/session/login", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			require.Len(t, svc.loginCalls, 1)
			assert.Equal(t, tt.wantCall, svc.loginCalls[0])
		})
	}
}

func TestLogin_UnknownFieldRejected(t *testing.T) {
	svc := newFakeService()
	router := newRouter(t, svc)

	w := do(t, router, http.MethodPost, "/api/v1/session/login", `{"mail":"anna@example.ch"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.loginCalls)
}

func TestLogin_LimiterWrapsRoute(t *testing.T) {
	svc := newFakeService()
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := newRouter(t, svc, WithLoginLimiter(blocked))

	w := do(t, router, http.MethodPost, "/api/v1/session/login", `{"email":"a@b.ch","password":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, svc.loginCalls)
}

func TestBookClass_ResultStatus(t *testing.T) {
	tests := []struct {
		name       string
		result     model.Result
		wantStatus int
	}{
		{"anonymous", model.Fail("Authentication required"), http.StatusUnauthorized},
		{"backend refusal", model.Fail("Class is full"), http.StatusUnprocessableEntity},
		{"booked", model.Ok(&model.Booking{ID: "b-1", Status: model.BookingStatusConfirmed}), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.bookResult = tt.result
			router := newRouter(t, svc)

			w := do(t, router, http.MethodPost, "/api/v1/bookings", `{"class_id":"vinyasa-flow-101","participants":1}`)
			assert.Equal(t, tt.wantStatus, w.Code)
			res := decodeResult(t, w)
			assert.Equal(t, tt.result.Success, res.Success)
			assert.Equal(t, tt.result.Error, res.Error)
			require.Len(t, svc.bookings, 1)
			assert.Equal(t, "vinyasa-flow-101", svc.bookings[0].ClassID)
		})
	}
}

func TestCancelBooking_PassesID(t *testing.T) {
	svc := newFakeService()
	router := newRouter(t, svc)

	w := do(t, router, http.MethodDelete, "/api/v1/bookings/b-42", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b-42", svc.cancelledID)
}

func TestCart(t *testing.T) {
	svc := newFakeService()
	router := newRouter(t, svc)

	w := do(t, router, http.MethodPost, "/api/v1/cart", `{"id":"vinyasa-flow-101","type":"class","name":"Vinyasa Flow","price":32,"quantity":3}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data cartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 1)
	assert.Equal(t, 96.0, body.Data.Total)
	assert.Equal(t, 3, body.Data.Count)

	w = do(t, router, http.MethodDelete, "/api/v1/cart", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, svc.Snapshot().Cart)
}

func TestCart_Errors(t *testing.T) {
	svc := newFakeService()
	svc.cartErr = validator.ValidationErrors{{Field: "Price", Message: "Price must be at least 0"}}
	router := newRouter(t, svc)

	w := do(t, router, http.MethodPost, "/api/v1/cart", `{"id":"x","type":"class","name":"X","price":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = do(t, router, http.MethodDelete, "/api/v1/cart/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPut, "/api/v1/cart/missing", `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetLocation(t *testing.T) {
	svc := newFakeService()
	router := newRouter(t, svc)

	w := do(t, router, http.MethodPut, "/api/v1/location", `{"id":"geneva"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "geneva", svc.Snapshot().Location.ID)

	w = do(t, router, http.MethodPut, "/api/v1/location", `{"id":"atlantis"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearestLocation(t *testing.T) {
	router := newRouter(t, newFakeService())

	w := do(t, router, http.MethodGet, "/api/v1/locations/nearest?lat=46.2&lng=6.1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data model.Location `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "geneva", body.Data.ID)

	for _, query := range []string{"?lat=46.2", "?lat=91&lng=6.1", "?lat=x&lng=6.1"} {
		w = do(t, router, http.MethodGet, "/api/v1/locations/nearest"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestFilters(t *testing.T) {
	svc := newFakeService()
	router := newRouter(t, svc)

	w := do(t, router, http.MethodPut, "/api/v1/filters", `{"price_min":40,"price_max":20}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, router, http.MethodPut, "/api/v1/filters", `{"styles":["yin"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"yin"}, svc.Filters().Styles)

	w = do(t, router, http.MethodDelete, "/api/v1/filters", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.Filters().IsZero())
}

func TestSearchClasses_QueryAndFresh(t *testing.T) {
	svc := newFakeService()
	router := newRouter(t, svc)

	w := do(t, router, http.MethodGet, "/api/v1/classes?location=zurich&style=Vinyasa", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "zurich", svc.classQuery.Location)
	assert.Equal(t, "Vinyasa", svc.classQuery.Style)
	assert.Equal(t, 0, svc.readOpts)

	w = do(t, router, http.MethodGet, "/api/v1/classes?fresh=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.readOpts)

	w = do(t, router, http.MethodGet, "/api/v1/classes?fresh=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInstructorAvailability_Route(t *testing.T) {
	router := newRouter(t, newFakeService())

	w := do(t, router, http.MethodGet, "/api/v1/instructors/ins-7/availability?date=2026-05-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"instructor_id":"ins-7"`)
	assert.Contains(t, w.Body.String(), `"date":"2026-05-02"`)
}

func TestWeather_Parameters(t *testing.T) {
	router := newRouter(t, newFakeService())

	tests := []struct {
		query      string
		wantStatus int
	}{
		{"?lat=47.37&lng=8.54", http.StatusOK},
		{"?lat=47.37", http.StatusBadRequest},
		{"?lat=north&lng=8.54", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/v1/weather"+tt.query, "")
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStream_RelaysBusEvents(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(newRouter(t, svc))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/stream?types=class.updated", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Equal(t, events.StateChanged, first.Type)

	require.Eventually(t, func() bool { return svc.bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	svc.bus.Publish(events.New(events.BookingUpdated, "test", map[string]string{"id": "ignored"}))
	svc.bus.Publish(events.New(events.ClassUpdated, "test", json.RawMessage(`{"id":"vinyasa-flow-101","spots_left":3}`)))

	next := readEvent(t, reader)
	assert.Equal(t, events.ClassUpdated, next.Type)
	assert.JSONEq(t, `{"id":"vinyasa-flow-101","spots_left":3}`, string(next.Data))

	cancel()
	require.Eventually(t, func() bool { return svc.bus.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, r *bufio.Reader) events.Event {
	t.Helper()
	var evt events.Event
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			require.NoError(t, json.Unmarshal([]byte(data), &evt))
		}
		if line == "" && evt.Type != "" {
			return evt
		}
	}
}
