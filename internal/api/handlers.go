// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package api

import (
	"net/http"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/achievements"
	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/ingest"
	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

// Handler carries the dependencies of all HTTP handlers.
type Handler struct {
	db        *database.DB
	processor *ingest.Processor
	engine    *achievements.Engine
}

// NewHandler creates the handler set.
func NewHandler(db *database.DB, processor *ingest.Processor, engine *achievements.Engine) *Handler {
	return &Handler{
		db:        db,
		processor: processor,
		engine:    engine,
	}
}

// userFrom extracts the authenticated user or rejects. The auth
// middleware guarantees presence on protected routes; this is the
// backstop for miswired routing.
func userFrom(rw *ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := logging.UserIDFromContext(r.Context())
	if !ok {
		rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, "no authenticated user")
		return 0, false
	}
	return userID, true
}

// IngestLocation handles POST /api/v1/location/ingest.
func (h *Handler) IngestLocation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userFrom(rw, r)
	if !ok {
		return
	}

	var req IngestRequest
	verr, err := decodeAndValidate(r, &req)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr != nil {
		rw.ValidationError("invalid location update", verr.Fields())
		return
	}

	result, err := h.processor.Process(r.Context(), req.toUpdate(userID))
	if err != nil {
		h.writeIngestError(rw, err)
		return
	}
	rw.Success(result)
}

// IngestSimple handles POST /api/v1/location/ingest/simple: the server
// derives the fine cell from the coordinates.
func (h *Handler) IngestSimple(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userFrom(rw, r)
	if !ok {
		return
	}

	var req SimpleIngestRequest
	verr, err := decodeAndValidate(r, &req)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr != nil {
		rw.ValidationError("invalid location update", verr.Fields())
		return
	}

	cellIndex, err := h.processor.Resolver().CellFromCoords(req.Latitude, req.Longitude)
	if err != nil {
		rw.BadRequest("could not derive cell for coordinates")
		return
	}

	update := models.LocationUpdate{
		UserID:        userID,
		DeviceID:      req.DeviceID,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		FineCellIndex: cellIndex,
	}
	if req.Timestamp != nil {
		update.Timestamp = *req.Timestamp
	}

	result, err := h.processor.Process(r.Context(), update)
	if err != nil {
		h.writeIngestError(rw, err)
		return
	}
	rw.Success(result)
}

// IngestBatch handles POST /api/v1/location/ingest/batch.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userFrom(rw, r)
	if !ok {
		return
	}

	var req BatchIngestRequest
	verr, err := decodeAndValidate(r, &req)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr != nil {
		rw.ValidationError("invalid batch", verr.Fields())
		return
	}

	updates := make([]models.LocationUpdate, len(req.Locations))
	for i := range req.Locations {
		updates[i] = req.Locations[i].toUpdate(userID)
	}

	result, err := h.processor.ProcessBatch(r.Context(), updates)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(result)
}

// writeIngestError maps pipeline errors to client responses.
func (h *Handler) writeIngestError(rw *ResponseWriter, err error) {
	if ingest.IsRejection(err) {
		rw.CellMismatch(err.Error())
		return
	}
	rw.DatabaseError(err)
}

// achievementView is one catalog entry with the caller's unlock state.
type achievementView struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements handles GET /api/v1/achievements: the full catalog with
// the caller's unlock state per entry.
func (h *Handler) Achievements(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userFrom(rw, r)
	if !ok {
		return
	}

	unlocked, err := database.ListUnlocked(r.Context(), h.db.Conn(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	unlockedAt := make(map[string]time.Time, len(unlocked))
	for _, u := range unlocked {
		unlockedAt[u.Code] = u.UnlockedAt
	}

	catalog := h.engine.Catalog()
	views := make([]achievementView, 0, len(catalog))
	for i := range catalog {
		a := &catalog[i]
		view := achievementView{
			Code:        a.Code,
			Name:        a.Name,
			Description: a.Description,
		}
		if at, ok := unlockedAt[a.Code]; ok {
			view.Unlocked = true
			view.UnlockedAt = &at
		}
		views = append(views, view)
	}
	rw.Success(views)
}

// CountryStats handles GET /api/v1/stats/countries.
func (h *Handler) CountryStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userFrom(rw, r)
	if !ok {
		return
	}

	stats, err := database.CountryStats(r.Context(), h.db.Conn(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// RegionStats handles GET /api/v1/stats/regions.
func (h *Handler) RegionStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userFrom(rw, r)
	if !ok {
		return
	}

	stats, err := database.RegionStats(r.Context(), h.db.Conn(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.db.Ping(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeDatabaseError, "database unreachable")
		return
	}
	rw.Success(map[string]string{"status": "ok"})
}
