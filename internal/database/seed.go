// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package database

import (
	"context"
	"fmt"

	"github.com/wayfarer-app/wayfarer/internal/logging"
)

// seedAchievement is one row of the shipped badge catalog.
type seedAchievement struct {
	code        string
	name        string
	description string
	criteria    string
}

// shippedAchievements is the default badge catalog. Criteria use
// "threshold" for counts and fractions; "count" is an accepted legacy
// alias kept for hemisphere_hopper.
var shippedAchievements = []seedAchievement{
	{"first_steps", "First Steps", "Visit your first cell", `{"type": "cells_total", "threshold": 1}`},
	{"explorer", "Explorer", "Visit 100 cells", `{"type": "cells_total", "threshold": 100}`},
	{"wanderer", "Wanderer", "Visit 500 cells", `{"type": "cells_total", "threshold": 500}`},
	{"globetrotter", "Globetrotter", "Visit 10 countries", `{"type": "countries", "threshold": 10}`},
	{"country_collector", "Country Collector", "Visit 25 countries", `{"type": "countries", "threshold": 25}`},
	{"state_hopper", "State Hopper", "Visit 5 regions in a single country", `{"type": "regions_in_country", "threshold": 5}`},
	{"regional_master", "Regional Master", "Visit 50 regions worldwide", `{"type": "regions", "threshold": 50}`},
	{"hemisphere_hopper", "Hemisphere Hopper", "Visit both hemispheres", `{"type": "hemispheres", "count": 2}`},
	{"frequent_traveler", "Frequent Traveler", "Record visits on 30 distinct days", `{"type": "unique_days", "threshold": 30}`},
	{"continental", "Continental", "Visit 3 continents", `{"type": "continents", "threshold": 3}`},
	{"intercontinental", "Intercontinental", "Visit 5 continents", `{"type": "continents", "threshold": 5}`},
	{"world_explorer", "World Explorer", "Visit all 7 continents", `{"type": "continents", "threshold": 7}`},
	{"country_explorer", "Country Explorer", "Cover 10% of a country", `{"type": "country_coverage_pct", "threshold": 0.10}`},
	{"country_master", "Country Master", "Cover 25% of a country", `{"type": "country_coverage_pct", "threshold": 0.25}`},
	{"country_conqueror", "Country Conqueror", "Cover 50% of a country", `{"type": "country_coverage_pct", "threshold": 0.50}`},
	{"region_explorer", "Region Explorer", "Cover 25% of a region", `{"type": "region_coverage_pct", "threshold": 0.25}`},
	{"region_master", "Region Master", "Cover 50% of a region", `{"type": "region_coverage_pct", "threshold": 0.50}`},
}

// SeedAchievements inserts the shipped badge catalog. Idempotent:
// existing codes are left untouched, so operator edits to names or
// thresholds survive restarts.
func (db *DB) SeedAchievements(ctx context.Context) error {
	const query = `
		INSERT INTO achievements (code, name, description, criteria)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`

	seeded := 0
	for _, a := range shippedAchievements {
		res, err := db.conn.ExecContext(ctx, query, a.code, a.name, a.description, a.criteria)
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.code, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			seeded++
		}
	}

	if seeded > 0 {
		logging.Info().Int("seeded", seeded).Msg("Achievement catalog seeded")
	}
	return nil
}
