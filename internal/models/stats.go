// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package models

import "time"

// StatsSnapshot is one user's exploration statistics, recomputed in full
// from the visit ledger for every achievement evaluation. All figures are
// derived from fine-resolution visits.
type StatsSnapshot struct {
	// TotalFineCells is the number of distinct fine cells visited.
	TotalFineCells int64

	// Countries / Regions are distinct non-null ids among fine visits.
	Countries int64
	Regions   int64

	// Continents is the number of distinct continents derived from
	// visited countries.
	Continents int64

	// MaxRegionsInCountry is the max over visited countries of distinct
	// regions visited within that country.
	MaxRegionsInCountry int64

	// Hemispheres counts {northern, southern} with at least one visited
	// fine cell whose centroid latitude falls in it (lat >= 0 is north).
	Hemispheres int64

	// UniqueDays is the number of distinct calendar dates (UTC, by
	// first_visited_at) across fine visits.
	UniqueDays int64

	// MaxCountryCoverage / MaxRegionCoverage are the best coverage
	// fractions over visited countries/regions with a known positive
	// fine-cell denominator. Zero when no denominator is known.
	MaxCountryCoverage float64
	MaxRegionCoverage  float64
}

// CountryStat is one row of the per-user country coverage summary.
type CountryStat struct {
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	CellsVisited   int64     `json:"cells_visited"`
	CoveragePct    float64   `json:"coverage_pct"`
	FirstVisitedAt time.Time `json:"first_visited_at"`
	LastVisitedAt  time.Time `json:"last_visited_at"`
}

// RegionStat is one row of the per-user region coverage summary.
type RegionStat struct {
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	CountryCode    string    `json:"country_code"`
	CountryName    string    `json:"country_name"`
	CellsVisited   int64     `json:"cells_visited"`
	CoveragePct    float64   `json:"coverage_pct"`
	FirstVisitedAt time.Time `json:"first_visited_at"`
	LastVisitedAt  time.Time `json:"last_visited_at"`
}
