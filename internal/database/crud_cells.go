// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/models"
)

// GlobalCellUpsert carries the inputs for one global registry upsert.
type GlobalCellUpsert struct {
	CellIndex   string
	Resolution  models.Resolution
	CountryID   *int64
	RegionID    *int64
	CentroidLat float64
	CentroidLon float64
	SeenAt      time.Time
}

// RecordCellVisit upserts one cell into the global registry and reports
// which branch the statement took. A single INSERT .. ON CONFLICT with
// RETURNING makes the new/revisit decision atomic: the returned counter
// is 1 exactly when the row was freshly inserted.
//
// country_id and region_id are write-once: a later visit with a
// resolved id fills a NULL left by an earlier unresolved lookup, but
// never overwrites an existing id.
func RecordCellVisit(ctx context.Context, store Store, up GlobalCellUpsert) (models.VisitOutcome, error) {
	const query = `
		INSERT INTO geo_cells (
			cell_index, resolution, country_id, region_id,
			centroid_lat, centroid_lon, first_seen_at, last_seen_at, global_visit_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (cell_index) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at,
			country_id = COALESCE(geo_cells.country_id, EXCLUDED.country_id),
			region_id = COALESCE(geo_cells.region_id, EXCLUDED.region_id),
			global_visit_count = geo_cells.global_visit_count + 1
		RETURNING global_visit_count`

	var count int64
	err := store.QueryRowContext(ctx, query,
		up.CellIndex, string(up.Resolution), up.CountryID, up.RegionID,
		up.CentroidLat, up.CentroidLon, up.SeenAt, up.SeenAt,
	).Scan(&count)
	if err != nil {
		return models.VisitOutcome{}, fmt.Errorf("failed to upsert geo cell %s: %w", up.CellIndex, err)
	}

	return models.VisitOutcome{VisitCount: count, WasNew: count == 1}, nil
}

// UserVisitUpsert carries the inputs for one ledger upsert.
type UserVisitUpsert struct {
	UserID     int64
	CellIndex  string
	Resolution models.Resolution
	DeviceID   *string
	VisitedAt  time.Time
}

// RecordUserVisit upserts one cell into the user's visit ledger, same
// atomic shape as RecordCellVisit. The returned WasNew is the signal
// the discovery classifier keys on.
func RecordUserVisit(ctx context.Context, store Store, up UserVisitUpsert) (models.VisitOutcome, error) {
	const query = `
		INSERT INTO user_cell_visits (
			user_id, cell_index, resolution, device_id,
			first_visited_at, last_visited_at, visit_count
		) VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (user_id, cell_index) DO UPDATE SET
			last_visited_at = EXCLUDED.last_visited_at,
			device_id = COALESCE(EXCLUDED.device_id, user_cell_visits.device_id),
			visit_count = user_cell_visits.visit_count + 1
		RETURNING visit_count`

	var count int64
	err := store.QueryRowContext(ctx, query,
		up.UserID, up.CellIndex, string(up.Resolution), up.DeviceID,
		up.VisitedAt, up.VisitedAt,
	).Scan(&count)
	if err != nil {
		return models.VisitOutcome{}, fmt.Errorf("failed to upsert user visit %d/%s: %w", up.UserID, up.CellIndex, err)
	}

	return models.VisitOutcome{VisitCount: count, WasNew: count == 1}, nil
}

// GetGeoCell loads one global registry row. Returns sql.ErrNoRows via
// the wrapped error when the cell has never been seen.
func GetGeoCell(ctx context.Context, store Store, cellIndex string) (*models.GeoCell, error) {
	const query = `
		SELECT cell_index, resolution, country_id, region_id,
		       centroid_lat, centroid_lon, first_seen_at, last_seen_at, global_visit_count
		FROM geo_cells WHERE cell_index = ?`

	var cell models.GeoCell
	var res string
	err := store.QueryRowContext(ctx, query, cellIndex).Scan(
		&cell.CellIndex, &res, &cell.CountryID, &cell.RegionID,
		&cell.CentroidLat, &cell.CentroidLon,
		&cell.FirstSeenAt, &cell.LastSeenAt, &cell.GlobalVisitCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load geo cell %s: %w", cellIndex, err)
	}
	cell.Resolution = models.Resolution(res)
	return &cell, nil
}

// GetUserVisit loads one ledger row for a user and cell.
func GetUserVisit(ctx context.Context, store Store, userID int64, cellIndex string) (*models.UserCellVisit, error) {
	const query = `
		SELECT user_id, cell_index, resolution, device_id,
		       first_visited_at, last_visited_at, visit_count
		FROM user_cell_visits WHERE user_id = ? AND cell_index = ?`

	var visit models.UserCellVisit
	var res string
	err := store.QueryRowContext(ctx, query, userID, cellIndex).Scan(
		&visit.UserID, &visit.CellIndex, &res, &visit.DeviceID,
		&visit.FirstVisitedAt, &visit.LastVisitedAt, &visit.VisitCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load user visit %d/%s: %w", userID, cellIndex, err)
	}
	visit.Resolution = models.Resolution(res)
	return &visit, nil
}

// DeleteUserData removes a user's ledger rows and unlock records. The
// global registry is deliberately untouched: cells the user discovered
// stay discovered for the world.
func DeleteUserData(ctx context.Context, store Store, userID int64) error {
	if _, err := store.ExecContext(ctx, `DELETE FROM user_cell_visits WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user visits for %d: %w", userID, err)
	}
	if _, err := store.ExecContext(ctx, `DELETE FROM user_achievements WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user achievements for %d: %w", userID, err)
	}
	return nil
}
