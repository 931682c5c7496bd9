package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"yogaportal/internal/portal"
	httputil "yogaportal/pkg/http"
	"yogaportal/pkg/model"
)

// readOptions turns ?fresh=true into a cache bypass.
func readOptions(r *http.Request) ([]portal.ReadOption, error) {
	fresh, err := httputil.QueryBool(r, "fresh")
	if err != nil {
		return nil, err
	}
	if fresh {
		return []portal.ReadOption{portal.Fresh()}, nil
	}
	return nil, nil
}

func (h *PortalHandler) SearchClasses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "SearchClasses", err)
		return
	}
	q := r.URL.Query()
	query := model.ClassQuery{
		Location: q.Get("location"),
		Style:    q.Get("style"),
		Date:     q.Get("date"),
	}
	h.success(w, "SearchClasses", h.service.SearchClasses(r.Context(), query, opts...))
}

func (h *PortalHandler) GetStudios(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetStudios", err)
		return
	}
	q := r.URL.Query()
	query := model.StudioQuery{
		Location: q.Get("location"),
		Style:    q.Get("style"),
	}
	h.success(w, "GetStudios", h.service.GetStudios(r.Context(), query, opts...))
}

func (h *PortalHandler) GetInstructors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetInstructors", err)
		return
	}
	q := r.URL.Query()
	query := model.InstructorQuery{
		Location: q.Get("location"),
		Style:    q.Get("style"),
		Language: q.Get("language"),
	}
	h.success(w, "GetInstructors", h.service.GetInstructors(r.Context(), query, opts...))
}

func (h *PortalHandler) GetLocalEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetLocalEvents", err)
		return
	}
	q := r.URL.Query()
	query := model.EventQuery{
		Location: q.Get("location"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Type:     q.Get("type"),
	}
	h.success(w, "GetLocalEvents", h.service.GetLocalEvents(r.Context(), query, opts...))
}

func (h *PortalHandler) GetInstructorAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetInstructorAvailability", err)
		return
	}
	slots := h.service.GetInstructorAvailability(r.Context(), ps.ByName("id"), r.URL.Query().Get("date"), opts...)
	h.success(w, "GetInstructorAvailability", slots)
}

func (h *PortalHandler) GetStudioReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetStudioReviews", err)
		return
	}
	h.success(w, "GetStudioReviews", h.service.GetStudioReviews(r.Context(), ps.ByName("id"), opts...))
}

func (h *PortalHandler) GetInstructorReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetInstructorReviews", err)
		return
	}
	h.success(w, "GetInstructorReviews", h.service.GetInstructorReviews(r.Context(), ps.ByName("id"), opts...))
}

// GetWeather answers null for coordinates outside the valid range.
func (h *PortalHandler) GetWeather(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	lat, err := httputil.QueryFloat(r, "lat")
	if err != nil {
		h.fail(w, "GetWeather", err)
		return
	}
	lng, err := httputil.QueryFloat(r, "lng")
	if err != nil {
		h.fail(w, "GetWeather", err)
		return
	}
	opts, err := readOptions(r)
	if err != nil {
		h.fail(w, "GetWeather", err)
		return
	}
	h.success(w, "GetWeather", h.service.GetWeatherData(r.Context(), lat, lng, opts...))
}
