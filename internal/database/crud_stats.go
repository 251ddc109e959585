// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package database

import (
	"context"
	"fmt"

	"github.com/wayfarer-app/wayfarer/internal/models"
)

// UserStatsSnapshot recomputes a user's full exploration statistics
// from the visit ledger. Recomputation keeps the figures correct under
// concurrent ingestion without incremental counters to drift; the
// ledger is small per user (thousands of rows, not millions).
//
// All figures derive from fine-resolution visits. Run inside the
// ingesting transaction so the sweep sees its own writes.
func UserStatsSnapshot(ctx context.Context, store Store, userID int64) (models.StatsSnapshot, error) {
	var snap models.StatsSnapshot

	// Base cardinalities in one scan. COUNT(DISTINCT x) ignores NULLs,
	// which is exactly the unresolved-country semantics we want.
	const baseQuery = `
		SELECT
			COUNT(*),
			COUNT(DISTINCT g.country_id),
			COUNT(DISTINCT g.region_id),
			COUNT(DISTINCT CASE WHEN g.centroid_lat >= 0 THEN 'N' ELSE 'S' END),
			COUNT(DISTINCT CAST(v.first_visited_at AS DATE))
		FROM user_cell_visits v
		JOIN geo_cells g ON v.cell_index = g.cell_index
		WHERE v.user_id = ? AND v.resolution = 'fine'`

	err := store.QueryRowContext(ctx, baseQuery, userID).Scan(
		&snap.TotalFineCells, &snap.Countries, &snap.Regions,
		&snap.Hemispheres, &snap.UniqueDays,
	)
	if err != nil {
		return snap, fmt.Errorf("failed to compute base stats for user %d: %w", userID, err)
	}

	const continentsQuery = `
		SELECT COUNT(DISTINCT c.continent)
		FROM user_cell_visits v
		JOIN geo_cells g ON v.cell_index = g.cell_index
		JOIN countries c ON g.country_id = c.id
		WHERE v.user_id = ? AND v.resolution = 'fine'`

	if err := store.QueryRowContext(ctx, continentsQuery, userID).Scan(&snap.Continents); err != nil {
		return snap, fmt.Errorf("failed to compute continent stats for user %d: %w", userID, err)
	}

	const maxRegionsQuery = `
		SELECT COALESCE(MAX(region_count), 0) FROM (
			SELECT COUNT(DISTINCT g.region_id) AS region_count
			FROM user_cell_visits v
			JOIN geo_cells g ON v.cell_index = g.cell_index
			WHERE v.user_id = ? AND v.resolution = 'fine'
			  AND g.country_id IS NOT NULL AND g.region_id IS NOT NULL
			GROUP BY g.country_id
		)`

	if err := store.QueryRowContext(ctx, maxRegionsQuery, userID).Scan(&snap.MaxRegionsInCountry); err != nil {
		return snap, fmt.Errorf("failed to compute per-country region stats for user %d: %w", userID, err)
	}

	// Coverage only counts entities with a known positive denominator.
	const countryCoverageQuery = `
		SELECT COALESCE(MAX(CAST(t.cells AS DOUBLE) / c.total_fine_cells), 0)
		FROM (
			SELECT g.country_id, COUNT(*) AS cells
			FROM user_cell_visits v
			JOIN geo_cells g ON v.cell_index = g.cell_index
			WHERE v.user_id = ? AND v.resolution = 'fine' AND g.country_id IS NOT NULL
			GROUP BY g.country_id
		) t
		JOIN countries c ON t.country_id = c.id
		WHERE c.total_fine_cells > 0`

	if err := store.QueryRowContext(ctx, countryCoverageQuery, userID).Scan(&snap.MaxCountryCoverage); err != nil {
		return snap, fmt.Errorf("failed to compute country coverage for user %d: %w", userID, err)
	}

	const regionCoverageQuery = `
		SELECT COALESCE(MAX(CAST(t.cells AS DOUBLE) / r.total_fine_cells), 0)
		FROM (
			SELECT g.region_id, COUNT(*) AS cells
			FROM user_cell_visits v
			JOIN geo_cells g ON v.cell_index = g.cell_index
			WHERE v.user_id = ? AND v.resolution = 'fine' AND g.region_id IS NOT NULL
			GROUP BY g.region_id
		) t
		JOIN regions r ON t.region_id = r.id
		WHERE r.total_fine_cells > 0`

	if err := store.QueryRowContext(ctx, regionCoverageQuery, userID).Scan(&snap.MaxRegionCoverage); err != nil {
		return snap, fmt.Errorf("failed to compute region coverage for user %d: %w", userID, err)
	}

	return snap, nil
}

// HasOtherFineVisitInCountry reports whether the user has any fine
// visit mapped to the country besides the given cell. The exclusion
// matters because the current fix's cells are upserted before
// classification runs.
func HasOtherFineVisitInCountry(ctx context.Context, store Store, userID, countryID int64, excludeCell string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_cell_visits v
			JOIN geo_cells g ON v.cell_index = g.cell_index
			WHERE v.user_id = ? AND v.resolution = 'fine'
			  AND g.country_id = ? AND v.cell_index <> ?
		)`

	var exists bool
	err := store.QueryRowContext(ctx, query, userID, countryID, excludeCell).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check prior country visits for user %d: %w", userID, err)
	}
	return exists, nil
}

// HasOtherFineVisitInRegion is the region analogue of
// HasOtherFineVisitInCountry.
func HasOtherFineVisitInRegion(ctx context.Context, store Store, userID, regionID int64, excludeCell string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_cell_visits v
			JOIN geo_cells g ON v.cell_index = g.cell_index
			WHERE v.user_id = ? AND v.resolution = 'fine'
			  AND g.region_id = ? AND v.cell_index <> ?
		)`

	var exists bool
	err := store.QueryRowContext(ctx, query, userID, regionID, excludeCell).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check prior region visits for user %d: %w", userID, err)
	}
	return exists, nil
}

// CountryStats returns the user's per-country coverage summary, most
// visited first.
func CountryStats(ctx context.Context, store Store, userID int64) ([]models.CountryStat, error) {
	const query = `
		SELECT c.iso2, c.name, COUNT(*) AS cells,
		       CASE WHEN c.total_fine_cells > 0
		            THEN CAST(COUNT(*) AS DOUBLE) / c.total_fine_cells
		            ELSE 0 END AS coverage,
		       MIN(v.first_visited_at), MAX(v.last_visited_at)
		FROM user_cell_visits v
		JOIN geo_cells g ON v.cell_index = g.cell_index
		JOIN countries c ON g.country_id = c.id
		WHERE v.user_id = ? AND v.resolution = 'fine'
		GROUP BY c.iso2, c.name, c.total_fine_cells
		ORDER BY cells DESC, c.iso2`

	rows, err := store.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query country stats for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "country stats rows")

	stats := []models.CountryStat{}
	for rows.Next() {
		var s models.CountryStat
		if err := rows.Scan(&s.Code, &s.Name, &s.CellsVisited, &s.CoveragePct, &s.FirstVisitedAt, &s.LastVisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan country stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate country stats: %w", err)
	}
	return stats, nil
}

// RegionStats returns the user's per-region coverage summary, most
// visited first.
func RegionStats(ctx context.Context, store Store, userID int64) ([]models.RegionStat, error) {
	const query = `
		SELECT r.code, r.name, c.iso2, c.name, COUNT(*) AS cells,
		       CASE WHEN r.total_fine_cells > 0
		            THEN CAST(COUNT(*) AS DOUBLE) / r.total_fine_cells
		            ELSE 0 END AS coverage,
		       MIN(v.first_visited_at), MAX(v.last_visited_at)
		FROM user_cell_visits v
		JOIN geo_cells g ON v.cell_index = g.cell_index
		JOIN regions r ON g.region_id = r.id
		JOIN countries c ON r.country_id = c.id
		WHERE v.user_id = ? AND v.resolution = 'fine'
		GROUP BY r.code, r.name, c.iso2, c.name, r.total_fine_cells
		ORDER BY cells DESC, r.code`

	rows, err := store.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query region stats for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "region stats rows")

	stats := []models.RegionStat{}
	for rows.Next() {
		var s models.RegionStat
		if err := rows.Scan(&s.Code, &s.Name, &s.CountryCode, &s.CountryName, &s.CellsVisited, &s.CoveragePct, &s.FirstVisitedAt, &s.LastVisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan region stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate region stats: %w", err)
	}
	return stats, nil
}
