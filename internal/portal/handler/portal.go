// Package handler exposes the portal to a browser front end over JSON and a
// server-sent event stream.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"yogaportal/internal/portal"
	portalerrors "yogaportal/internal/portal/errors"
	"yogaportal/internal/portal/validator"
	apperrors "yogaportal/pkg/errors"
	"yogaportal/pkg/events"
	httputil "yogaportal/pkg/http"
	"yogaportal/pkg/logger"
	"yogaportal/pkg/model"
)

// Service is the part of *portal.Portal the HTTP surface drives.
type Service interface {
	Snapshot() portal.State
	Bus() *events.Bus

	Login(ctx context.Context, email, password string) model.Result
	Logout(ctx context.Context) model.Result
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) model.Result
	GuestPreferences() model.GuestPreferences
	SetGuestPreferences(prefs model.GuestPreferences) error

	AddToCart(item model.CartItem) error
	RemoveFromCart(id string) error
	UpdateQuantity(id string, quantity int) error
	ClearCart()

	Locations() []model.Location
	NearestLocation(lat, lng float64) (model.Location, error)
	SetLocation(ctx context.Context, id string) error
	Filters() model.SearchFilters
	SetFilters(f model.SearchFilters) error
	ResetFilters()

	SearchClasses(ctx context.Context, q model.ClassQuery, opts ...portal.ReadOption) []model.Class
	GetStudios(ctx context.Context, q model.StudioQuery, opts ...portal.ReadOption) []model.Studio
	GetInstructors(ctx context.Context, q model.InstructorQuery, opts ...portal.ReadOption) []model.Instructor
	GetLocalEvents(ctx context.Context, q model.EventQuery, opts ...portal.ReadOption) []model.LocalEvent
	GetInstructorAvailability(ctx context.Context, instructorID, date string, opts ...portal.ReadOption) []model.AvailabilitySlot
	GetStudioReviews(ctx context.Context, studioID string, opts ...portal.ReadOption) []model.Review
	GetInstructorReviews(ctx context.Context, instructorID string, opts ...portal.ReadOption) []model.Review
	GetWeatherData(ctx context.Context, lat, lng float64, opts ...portal.ReadOption) *model.Weather

	BookClass(ctx context.Context, req model.BookingRequest) model.Result
	BookPrivateLesson(ctx context.Context, req model.PrivateLessonRequest) model.Result
	CancelBooking(ctx context.Context, bookingID string) model.Result
	GetMyBookings(ctx context.Context) []model.Booking
}

type PortalHandler struct {
	service      Service
	log          *logger.Logger
	loginLimiter func(http.Handler) http.Handler
	stopping     <-chan struct{}
}

type Option func(*PortalHandler)

// WithLoginLimiter wraps the login route, typically in middleware.RateLimit.
func WithLoginLimiter(mw func(http.Handler) http.Handler) Option {
	return func(h *PortalHandler) { h.loginLimiter = mw }
}

// WithStopping ends open event streams when ch closes.
func WithStopping(ch <-chan struct{}) Option {
	return func(h *PortalHandler) { h.stopping = ch }
}

func NewPortalHandler(service Service, log *logger.Logger, opts ...Option) *PortalHandler {
	h := &PortalHandler{
		service: service,
		log:     log.Component("http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *PortalHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/state", h.State)
	router.GET("/api/v1/stream", h.Stream)

	var login http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Login(w, r, nil)
	})
	if h.loginLimiter != nil {
		login = h.loginLimiter(login)
	}
	router.Handler(http.MethodPost, "/api/v1/session/login", login)
	router.POST("/api/v1/session/logout", h.Logout)
	router.PATCH("/api/v1/profile", h.UpdateProfile)
	router.GET("/api/v1/preferences", h.GetPreferences)
	router.PUT("/api/v1/preferences", h.SetPreferences)

	router.GET("/api/v1/cart", h.GetCart)
	router.POST("/api/v1/cart", h.AddToCart)
	router.DELETE("/api/v1/cart", h.ClearCart)
	router.PUT("/api/v1/cart/:id", h.UpdateCartItem)
	router.DELETE("/api/v1/cart/:id", h.RemoveCartItem)

	router.GET("/api/v1/locations", h.GetLocations)
	router.GET("/api/v1/locations/nearest", h.GetNearestLocation)
	router.PUT("/api/v1/location", h.SetLocation)
	router.GET("/api/v1/filters", h.GetFilters)
	router.PUT("/api/v1/filters", h.SetFilters)
	router.DELETE("/api/v1/filters", h.ResetFilters)

	router.GET("/api/v1/classes", h.SearchClasses)
	router.GET("/api/v1/studios", h.GetStudios)
	router.GET("/api/v1/studios/:id/reviews", h.GetStudioReviews)
	router.GET("/api/v1/instructors", h.GetInstructors)
	router.GET("/api/v1/instructors/:id/availability", h.GetInstructorAvailability)
	router.GET("/api/v1/instructors/:id/reviews", h.GetInstructorReviews)
	router.GET("/api/v1/events", h.GetLocalEvents)
	router.GET("/api/v1/weather", h.GetWeather)

	router.GET("/api/v1/bookings", h.GetMyBookings)
	router.POST("/api/v1/bookings", h.BookClass)
	router.DELETE("/api/v1/bookings/:id", h.CancelBooking)
	router.POST("/api/v1/private-bookings", h.BookPrivateLesson)
}

func (h *PortalHandler) State(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.success(w, "State", h.service.Snapshot())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	// an empty body is the development login
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.fail(w, "Login", err)
			return
		}
	}
	h.result(w, "Login", http.StatusOK, h.service.Login(r.Context(), req.Email, req.Password))
}

func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.result(w, "Logout", http.StatusOK, h.service.Logout(r.Context()))
}

func (h *PortalHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.ProfileUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.fail(w, "UpdateProfile", err)
		return
	}
	h.result(w, "UpdateProfile", http.StatusOK, h.service.UpdateProfile(r.Context(), update))
}

func (h *PortalHandler) GetPreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.success(w, "GetPreferences", h.service.GuestPreferences())
}

func (h *PortalHandler) SetPreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var prefs model.GuestPreferences
	if err := httputil.DecodeJSON(r, &prefs); err != nil {
		h.fail(w, "SetPreferences", err)
		return
	}
	if err := h.service.SetGuestPreferences(prefs); err != nil {
		h.fail(w, "SetPreferences", err)
		return
	}
	h.success(w, "SetPreferences", h.service.GuestPreferences())
}

type cartResponse struct {
	Items []model.CartItem `json:"items"`
	Total float64          `json:"total"`
	Count int              `json:"count"`
}

// cart answers from one snapshot so items, total and count agree.
func (h *PortalHandler) cart() cartResponse {
	s := h.service.Snapshot()
	return cartResponse{Items: s.Cart, Total: s.CartTotal, Count: s.CartCount}
}

func (h *PortalHandler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.success(w, "GetCart", h.cart())
}

func (h *PortalHandler) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var item model.CartItem
	if err := httputil.DecodeJSON(r, &item); err != nil {
		h.fail(w, "AddToCart", err)
		return
	}
	if err := h.service.AddToCart(item); err != nil {
		h.fail(w, "AddToCart", err)
		return
	}
	h.success(w, "AddToCart", h.cart())
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *PortalHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req quantityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateCartItem", err)
		return
	}
	if err := h.service.UpdateQuantity(ps.ByName("id"), req.Quantity); err != nil {
		h.fail(w, "UpdateCartItem", err)
		return
	}
	h.success(w, "UpdateCartItem", h.cart())
}

func (h *PortalHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.RemoveFromCart(ps.ByName("id")); err != nil {
		h.fail(w, "RemoveCartItem", err)
		return
	}
	h.success(w, "RemoveCartItem", h.cart())
}

func (h *PortalHandler) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.service.ClearCart()
	httputil.WriteNoContent(w)
}

func (h *PortalHandler) GetLocations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.success(w, "GetLocations", h.service.Locations())
}

func (h *PortalHandler) GetNearestLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	lat, err := httputil.QueryFloat(r, "lat")
	if err != nil {
		h.fail(w, "GetNearestLocation", err)
		return
	}
	lng, err := httputil.QueryFloat(r, "lng")
	if err != nil {
		h.fail(w, "GetNearestLocation", err)
		return
	}
	loc, err := h.service.NearestLocation(lat, lng)
	if err != nil {
		h.fail(w, "GetNearestLocation", err)
		return
	}
	h.success(w, "GetNearestLocation", loc)
}

type locationRequest struct {
	ID string `json:"id"`
}

func (h *PortalHandler) SetLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req locationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "SetLocation", err)
		return
	}
	if err := h.service.SetLocation(r.Context(), req.ID); err != nil {
		h.fail(w, "SetLocation", err)
		return
	}
	h.success(w, "SetLocation", h.service.Snapshot().Location)
}

func (h *PortalHandler) GetFilters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.success(w, "GetFilters", h.service.Filters())
}

func (h *PortalHandler) SetFilters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var f model.SearchFilters
	if err := httputil.DecodeJSON(r, &f); err != nil {
		h.fail(w, "SetFilters", err)
		return
	}
	if err := h.service.SetFilters(f); err != nil {
		h.fail(w, "SetFilters", err)
		return
	}
	h.success(w, "SetFilters", h.service.Filters())
}

func (h *PortalHandler) ResetFilters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.service.ResetFilters()
	httputil.WriteNoContent(w)
}

func (h *PortalHandler) BookClass(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "BookClass", err)
		return
	}
	h.result(w, "BookClass", http.StatusCreated, h.service.BookClass(r.Context(), req))
}

func (h *PortalHandler) BookPrivateLesson(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PrivateLessonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "BookPrivateLesson", err)
		return
	}
	h.result(w, "BookPrivateLesson", http.StatusCreated, h.service.BookPrivateLesson(r.Context(), req))
}

func (h *PortalHandler) CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.result(w, "CancelBooking", http.StatusOK, h.service.CancelBooking(r.Context(), ps.ByName("id")))
}

func (h *PortalHandler) GetMyBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.success(w, "GetMyBookings", h.service.GetMyBookings(r.Context()))
}

func (h *PortalHandler) success(w http.ResponseWriter, op string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", op, "operation", "WriteSuccess", "error", err)
	}
}

func (h *PortalHandler) fail(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, toAppError(err)); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "operation", "WriteError", "error", writeErr)
	}
}

// result writes a Result as is. A failed one gets a status the front end can
// branch on; the message stays the portal's.
func (h *PortalHandler) result(w http.ResponseWriter, op string, okStatus int, res model.Result) {
	status := okStatus
	if !res.Success {
		status = resultStatus(res.Error)
	}
	if err := httputil.WriteJSON(w, status, res); err != nil {
		h.log.Error("failed to write JSON response", "handler", op, "operation", "WriteJSON", "error", err)
	}
}

func resultStatus(message string) int {
	switch message {
	case portalerrors.ErrAuthRequired.Error():
		return http.StatusUnauthorized
	case portalerrors.ErrCredentialsRequired.Error():
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func toAppError(err error) error {
	var verrs validator.ValidationErrors
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.As(err, &verrs):
		return apperrors.Validation(verrs.Error(), verrs.Details())
	case errors.Is(err, portalerrors.ErrNotInCart):
		return apperrors.NotFound("Cart item")
	case errors.Is(err, portalerrors.ErrUnknownLocation), errors.Is(err, portalerrors.ErrInvalidCoordinates):
		return apperrors.InvalidInput(err.Error())
	}
	return apperrors.Internal("An unexpected error occurred", err)
}
