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

// InsertUnlock records one achievement unlock. Idempotent under
// concurrency: the primary key plus DO NOTHING means exactly one caller
// observes inserted=true, everyone else a no-op.
func InsertUnlock(ctx context.Context, store Store, userID, achievementID int64, unlockedAt time.Time) (bool, error) {
	const query = `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`

	res, err := store.ExecContext(ctx, query, userID, achievementID, unlockedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock %d/%d: %w", userID, achievementID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unlock outcome %d/%d: %w", userID, achievementID, err)
	}
	return n > 0, nil
}

// LoadUnlockedSet returns the ids of achievements the user already
// holds, so the sweep can skip them without re-evaluating.
func LoadUnlockedSet(ctx context.Context, store Store, userID int64) (map[int64]bool, error) {
	const query = `SELECT achievement_id FROM user_achievements WHERE user_id = ?`

	rows, err := store.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocks for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "unlocks rows")

	unlocked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		unlocked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unlocks: %w", err)
	}
	return unlocked, nil
}

// ListUnlocked returns the user's unlocked achievements with catalog
// details, newest first.
func ListUnlocked(ctx context.Context, store Store, userID int64) ([]models.UnlockedAchievement, error) {
	const query = `
		SELECT a.code, a.name, a.description, ua.unlocked_at
		FROM user_achievements ua
		JOIN achievements a ON ua.achievement_id = a.id
		WHERE ua.user_id = ?
		ORDER BY ua.unlocked_at DESC, a.code`

	rows, err := store.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocked achievements for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "unlocked achievements rows")

	unlocked := []models.UnlockedAchievement{}
	for rows.Next() {
		var u models.UnlockedAchievement
		if err := rows.Scan(&u.Code, &u.Name, &u.Description, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked achievement: %w", err)
		}
		unlocked = append(unlocked, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unlocked achievements: %w", err)
	}
	return unlocked, nil
}
