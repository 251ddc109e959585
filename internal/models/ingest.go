// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package models

import "time"

// LocationUpdate is one raw GPS fix handed to the ingestion pipeline.
// The caller guarantees UserID is already authenticated.
type LocationUpdate struct {
	UserID    int64
	DeviceID  *string
	Latitude  float64
	Longitude float64

	// FineCellIndex is the client-computed fine-resolution cell for the
	// coordinates. It is validated (with one-ring neighbor tolerance)
	// before any state changes.
	FineCellIndex string

	// Timestamp defaults to the server clock when zero.
	Timestamp time.Time
}

// EntityDiscovery reports the first-ever visit to an enclosing country
// or region.
type EntityDiscovery struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// DiscoveryReport is the structured discovery/revisit classification for
// one ingested location.
type DiscoveryReport struct {
	NewCellsCoarse       []string `json:"new_cells_coarse"`
	NewCellsFine         []string `json:"new_cells_fine"`
	RevisitedCellsCoarse []string `json:"revisited_cells_coarse"`
	RevisitedCellsFine   []string `json:"revisited_cells_fine"`

	// NewCountry / NewRegion are set only when the fine cell is newly
	// discovered and no other fine visit maps to the same entity.
	NewCountry *EntityDiscovery `json:"new_country,omitempty"`
	NewRegion  *EntityDiscovery `json:"new_region,omitempty"`

	CoarseVisitCount int64 `json:"coarse_visit_count"`
	FineVisitCount   int64 `json:"fine_visit_count"`
}

// IngestResult is the combined outcome of one location ingestion:
// the discovery classification plus any achievements unlocked by it.
type IngestResult struct {
	DiscoveryReport
	AchievementsUnlocked []UnlockedAchievement `json:"achievements_unlocked"`
}

// SkippedLocation explains why one entry of a batch was not processed.
type SkippedLocation struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchIngestResult aggregates a batch upload. Valid locations are always
// processed; invalid ones are reported in Skipped with reasons.
type BatchIngestResult struct {
	Processed            int                   `json:"processed"`
	Skipped              []SkippedLocation     `json:"skipped"`
	NewCellsCoarse       []string              `json:"new_cells_coarse"`
	NewCellsFine         []string              `json:"new_cells_fine"`
	NewCountries         []EntityDiscovery     `json:"new_countries"`
	NewRegions           []EntityDiscovery     `json:"new_regions"`
	AchievementsUnlocked []UnlockedAchievement `json:"achievements_unlocked"`
}
