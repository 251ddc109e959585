// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package models

import "time"

// Resolution identifies one of the two levels of the cell hierarchy.
// Every fine cell has exactly one coarse ancestor.
type Resolution string

const (
	ResolutionCoarse Resolution = "coarse"
	ResolutionFine   Resolution = "fine"
)

// Valid reports whether the resolution is one of the two known levels.
func (r Resolution) Valid() bool {
	return r == ResolutionCoarse || r == ResolutionFine
}

// GeoCell is the global cell registry entry: one row per unique cell
// regardless of visitor count. Shared across all users and never deleted
// by user-account deletion.
type GeoCell struct {
	CellIndex        string     `json:"cell_index"`
	Resolution       Resolution `json:"resolution"`
	CountryID        *int64     `json:"country_id,omitempty"`
	RegionID         *int64     `json:"region_id,omitempty"`
	CentroidLat      float64    `json:"centroid_lat"`
	CentroidLon      float64    `json:"centroid_lon"`
	FirstSeenAt      time.Time  `json:"first_seen_at"`
	LastSeenAt       time.Time  `json:"last_seen_at"`
	GlobalVisitCount int64      `json:"global_visit_count"`
}

// Country is a static reference catalog entry, managed externally and
// read-only from this service's perspective.
type Country struct {
	ID        int64  `json:"id"`
	ISO2      string `json:"iso2"`
	ISO3      string `json:"iso3"`
	Name      string `json:"name"`
	Continent string `json:"continent"`

	// TotalFineCells is the precomputed estimated number of fine cells
	// covering the country's land area: the coverage denominator.
	// Zero means unknown; coverage criteria never qualify against it.
	TotalFineCells int64 `json:"total_fine_cells"`
}

// Region is a state/province level reference catalog entry.
type Region struct {
	ID             int64  `json:"id"`
	CountryID      int64  `json:"country_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	TotalFineCells int64  `json:"total_fine_cells"`
}
