// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

/*
schema.go - Database Schema Management

Tables:
  - countries, regions: static reference catalog, managed externally
  - boundaries: GeoJSON outlines used by the point-in-polygon locator
  - geo_cells: global cell registry, one row per unique cell across
    all users; survives user deletion
  - user_cell_visits: per-user visit ledger with revisit counters
  - achievements: static badge catalog with JSON criteria documents
  - user_achievements: unlock records, at most one per (user, badge)

All columns are defined in the initial CREATE TABLE statements; there
are no migrations yet. Sequences provide the surrogate ids because
DuckDB has no auto-increment column type.
*/
package database

import (
	"context"
	"fmt"
)

// createSchema creates all tables, sequences and indexes. Every
// statement is idempotent so startup can run it unconditionally.
func (db *DB) createSchema(ctx context.Context) error {
	for _, query := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %s: %w", query, err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_country_id START 1;`,
	`CREATE SEQUENCE IF NOT EXISTS seq_region_id START 1;`,
	`CREATE SEQUENCE IF NOT EXISTS seq_boundary_id START 1;`,
	`CREATE SEQUENCE IF NOT EXISTS seq_achievement_id START 1;`,

	`CREATE TABLE IF NOT EXISTS countries (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_country_id'),
		iso2 VARCHAR NOT NULL UNIQUE,
		iso3 VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		continent VARCHAR NOT NULL,
		-- Estimated number of fine cells covering the land area.
		-- Coverage denominator; 0 means unknown.
		total_fine_cells BIGINT NOT NULL DEFAULT 0
	);`,

	`CREATE TABLE IF NOT EXISTS regions (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_region_id'),
		country_id BIGINT NOT NULL,
		code VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		total_fine_cells BIGINT NOT NULL DEFAULT 0,
		UNIQUE (country_id, code)
	);`,

	`CREATE TABLE IF NOT EXISTS boundaries (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_boundary_id'),
		country_id BIGINT NOT NULL,
		region_id BIGINT,
		name VARCHAR NOT NULL,
		geojson VARCHAR NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS geo_cells (
		cell_index VARCHAR PRIMARY KEY,
		resolution VARCHAR NOT NULL,
		country_id BIGINT,
		region_id BIGINT,
		centroid_lat DOUBLE NOT NULL,
		centroid_lon DOUBLE NOT NULL,
		first_seen_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		global_visit_count BIGINT NOT NULL DEFAULT 1
	);`,

	`CREATE TABLE IF NOT EXISTS user_cell_visits (
		user_id BIGINT NOT NULL,
		cell_index VARCHAR NOT NULL,
		resolution VARCHAR NOT NULL,
		device_id VARCHAR,
		first_visited_at TIMESTAMP NOT NULL,
		last_visited_at TIMESTAMP NOT NULL,
		visit_count BIGINT NOT NULL DEFAULT 1,
		PRIMARY KEY (user_id, cell_index)
	);`,

	`CREATE TABLE IF NOT EXISTS achievements (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_achievement_id'),
		code VARCHAR NOT NULL UNIQUE,
		name VARCHAR NOT NULL,
		description VARCHAR NOT NULL,
		criteria VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	);`,

	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id BIGINT NOT NULL,
		achievement_id BIGINT NOT NULL,
		unlocked_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, achievement_id)
	);`,

	`CREATE INDEX IF NOT EXISTS idx_regions_country ON regions(country_id);`,
	`CREATE INDEX IF NOT EXISTS idx_boundaries_country ON boundaries(country_id);`,
	`CREATE INDEX IF NOT EXISTS idx_geo_cells_country ON geo_cells(country_id);`,
	`CREATE INDEX IF NOT EXISTS idx_geo_cells_region ON geo_cells(region_id);`,
	`CREATE INDEX IF NOT EXISTS idx_user_visits_user_res ON user_cell_visits(user_id, resolution);`,
	`CREATE INDEX IF NOT EXISTS idx_user_achievements_user ON user_achievements(user_id);`,
}
