// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/wayfarer-app/wayfarer/internal/models"
	"github.com/wayfarer-app/wayfarer/internal/validation"
)

// maxBodyBytes caps request bodies. Batch uploads of 100 locations fit
// comfortably.
const maxBodyBytes = 1 << 20

// IngestRequest is one client-reported location fix.
type IngestRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`

	// CellIndex is the client-computed fine cell for the coordinates.
	CellIndex string `json:"cell_index" validate:"required"`

	// Timestamp is optional; server clock when omitted.
	Timestamp *time.Time `json:"timestamp"`
	DeviceID  *string    `json:"device_id" validate:"omitempty,max=128"`
}

// toUpdate converts the request to a pipeline update for the user.
func (req *IngestRequest) toUpdate(userID int64) models.LocationUpdate {
	update := models.LocationUpdate{
		UserID:        userID,
		DeviceID:      req.DeviceID,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		FineCellIndex: req.CellIndex,
	}
	if req.Timestamp != nil {
		update.Timestamp = *req.Timestamp
	}
	return update
}

// BatchIngestRequest is the offline-queue flush payload.
type BatchIngestRequest struct {
	Locations []IngestRequest `json:"locations" validate:"required,min=1,max=100,dive"`
}

// SimpleIngestRequest carries coordinates only; the server derives the
// cell. For clients without a local grid library.
type SimpleIngestRequest struct {
	Latitude  float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64    `json:"longitude" validate:"min=-180,max=180"`
	Timestamp *time.Time `json:"timestamp"`
	DeviceID  *string    `json:"device_id" validate:"omitempty,max=128"`
}

// decodeAndValidate decodes a JSON body into dst and runs struct
// validation. Returns a client-facing error message on failure.
func decodeAndValidate(r *http.Request, dst interface{}) (*validation.RequestValidationError, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr, nil
	}
	return nil, nil
}
