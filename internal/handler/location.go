package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/service"
)

// LocationHandler serves the GPS location CRUD endpoints. All routes sit
// behind the auth middleware, so a user ID is always present in context.
type LocationHandler struct {
	locations *service.LocationService
	logger    *slog.Logger
}

func NewLocationHandler(locations *service.LocationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

type locationRequest struct {
	Name       string     `json:"name"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Altitude   float64    `json:"altitude"`
	RecordedAt *time.Time `json:"recordedAt"`
}

func (req *locationRequest) toModel() *model.GPSLocation {
	loc := &model.GPSLocation{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Altitude:  req.Altitude,
	}
	if req.RecordedAt != nil {
		loc.RecordedAt = *req.RecordedAt
	}
	return loc
}

func (h *LocationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loc, err := h.locations.Create(r.Context(), userID, req.toModel())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, loc)
}

func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	loc, err := h.locations.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	locations, err := h.locations.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if locations == nil {
		locations = []model.GPSLocation{}
	}

	writeJSON(w, http.StatusOK, locations)
}

func (h *LocationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loc, err := h.locations.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

func (h *LocationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.locations.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
