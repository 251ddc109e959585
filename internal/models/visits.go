// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package models

import "time"

// UserCellVisit tracks a user's ownership of a cell plus revisit metadata.
// Unique per (user_id, cell_index). Removed with the user; the
// corresponding GeoCell always survives.
type UserCellVisit struct {
	UserID         int64      `json:"user_id"`
	CellIndex      string     `json:"cell_index"`
	Resolution     Resolution `json:"resolution"`
	DeviceID       *string    `json:"device_id,omitempty"`
	FirstVisitedAt time.Time  `json:"first_visited_at"`
	LastVisitedAt  time.Time  `json:"last_visited_at"`
	VisitCount     int64      `json:"visit_count"`
}

// VisitOutcome reports which branch an upsert-with-outcome took and the
// resulting count. WasNew is true when the statement inserted a fresh row.
type VisitOutcome struct {
	VisitCount int64
	WasNew     bool
}

// CellVisitRecord carries both ledger outcomes for a single cell of one
// ingested location: the global registry outcome and the per-user outcome.
type CellVisitRecord struct {
	CellIndex  string
	Resolution Resolution
	Global     VisitOutcome
	User       VisitOutcome
}
