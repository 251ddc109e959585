// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package database

import (
	"context"
	"fmt"

	"github.com/wayfarer-app/wayfarer/internal/geofence"
	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

// LoadCountries returns the full country catalog keyed by id.
func LoadCountries(ctx context.Context, store Store) (map[int64]models.Country, error) {
	const query = `SELECT id, iso2, iso3, name, continent, total_fine_cells FROM countries`

	rows, err := store.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer closeWithLog(rows, "countries rows")

	countries := make(map[int64]models.Country)
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.ID, &c.ISO2, &c.ISO3, &c.Name, &c.Continent, &c.TotalFineCells); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate countries: %w", err)
	}
	return countries, nil
}

// LoadRegions returns the full region catalog keyed by id.
func LoadRegions(ctx context.Context, store Store) (map[int64]models.Region, error) {
	const query = `SELECT id, country_id, code, name, total_fine_cells FROM regions`

	rows, err := store.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer closeWithLog(rows, "regions rows")

	regions := make(map[int64]models.Region)
	for rows.Next() {
		var r models.Region
		if err := rows.Scan(&r.ID, &r.CountryID, &r.Code, &r.Name, &r.TotalFineCells); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate regions: %w", err)
	}
	return regions, nil
}

// LoadBoundaries streams every catalog boundary into the locator.
// Country outlines load before region outlines so the overlap
// tie-break prefers the coarser entity.
func LoadBoundaries(ctx context.Context, store Store, locator *geofence.Locator) error {
	const query = `
		SELECT country_id, region_id, name, geojson
		FROM boundaries
		ORDER BY region_id IS NOT NULL, id`

	rows, err := store.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query boundaries: %w", err)
	}
	defer closeWithLog(rows, "boundaries rows")

	loaded, skipped := 0, 0
	for rows.Next() {
		var b geofence.Boundary
		var geojson string
		if err := rows.Scan(&b.CountryID, &b.RegionID, &b.Name, &geojson); err != nil {
			return fmt.Errorf("failed to scan boundary: %w", err)
		}
		b.GeoJSON = []byte(geojson)

		// One malformed geometry must not block startup.
		if err := locator.Add(b); err != nil {
			logging.Warn().Err(err).Str("boundary", b.Name).Msg("Skipping malformed boundary")
			skipped++
			continue
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate boundaries: %w", err)
	}

	logging.Info().Int("loaded", loaded).Int("skipped", skipped).Msg("Boundary catalog loaded")
	return nil
}

// LoadAchievements returns the achievement catalog in id order. Rows
// whose criteria document does not parse are kept with an unknown
// criterion so they show up in listings but never unlock.
func LoadAchievements(ctx context.Context, store Store) ([]models.Achievement, error) {
	const query = `SELECT id, code, name, description, criteria, created_at FROM achievements ORDER BY id`

	rows, err := store.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer closeWithLog(rows, "achievements rows")

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		var criteria string
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &criteria, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}

		criterion, err := models.ParseCriterion([]byte(criteria))
		if err != nil {
			logging.Warn().Err(err).Str("code", a.Code).Msg("Achievement criterion not evaluable")
		}
		a.Criterion = criterion
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievements: %w", err)
	}
	return achievements, nil
}

// InsertCountry adds one catalog country and returns its id.
func InsertCountry(ctx context.Context, store Store, c models.Country) (int64, error) {
	const query = `
		INSERT INTO countries (iso2, iso3, name, continent, total_fine_cells)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := store.QueryRowContext(ctx, query, c.ISO2, c.ISO3, c.Name, c.Continent, c.TotalFineCells).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert country %s: %w", c.ISO2, err)
	}
	return id, nil
}

// InsertRegion adds one catalog region and returns its id.
func InsertRegion(ctx context.Context, store Store, r models.Region) (int64, error) {
	const query = `
		INSERT INTO regions (country_id, code, name, total_fine_cells)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := store.QueryRowContext(ctx, query, r.CountryID, r.Code, r.Name, r.TotalFineCells).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert region %s: %w", r.Code, err)
	}
	return id, nil
}

// InsertBoundary adds one catalog boundary geometry.
func InsertBoundary(ctx context.Context, store Store, b geofence.Boundary) error {
	const query = `INSERT INTO boundaries (country_id, region_id, name, geojson) VALUES (?, ?, ?, ?)`

	if _, err := store.ExecContext(ctx, query, b.CountryID, b.RegionID, b.Name, string(b.GeoJSON)); err != nil {
		return fmt.Errorf("failed to insert boundary %s: %w", b.Name, err)
	}
	return nil
}

// InsertAchievement adds one catalog achievement and returns its id.
func InsertAchievement(ctx context.Context, store Store, code, name, description, criteria string) (int64, error) {
	const query = `
		INSERT INTO achievements (code, name, description, criteria)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := store.QueryRowContext(ctx, query, code, name, description, criteria).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert achievement %s: %w", code, err)
	}
	return id, nil
}
