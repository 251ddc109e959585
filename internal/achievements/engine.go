// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Package achievements evaluates the badge catalog against a user's
// recomputed statistics snapshot and records unlocks.
//
// The catalog is loaded once at startup and treated as immutable for
// the process lifetime. Evaluation is a pure function of the snapshot;
// persistence goes through the caller's transaction so an unlock
// commits atomically with the visit that earned it.
package achievements

import (
	"context"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/metrics"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

// Engine holds the loaded achievement catalog.
type Engine struct {
	catalog []models.Achievement
}

// NewEngine creates an engine over a loaded catalog. Unsatisfiable
// definitions stay in the catalog (they appear in listings) but are
// logged once here and skipped by every sweep.
func NewEngine(catalog []models.Achievement) *Engine {
	for i := range catalog {
		if !catalog[i].Satisfiable() {
			logging.Warn().
				Str("code", catalog[i].Code).
				Msg("Achievement has unrecognized criterion and will never unlock")
		}
	}
	return &Engine{catalog: catalog}
}

// Catalog returns the loaded achievement definitions in id order.
func (e *Engine) Catalog() []models.Achievement {
	return e.catalog
}

// Evaluate reports whether a snapshot satisfies a criterion. Pure and
// exhaustive over the closed kind set; unknown kinds are never true.
func Evaluate(c models.Criterion, snap models.StatsSnapshot) bool {
	switch c.Kind {
	case models.CriterionCellsTotal:
		return float64(snap.TotalFineCells) >= c.Threshold
	case models.CriterionCountries:
		return float64(snap.Countries) >= c.Threshold
	case models.CriterionRegions:
		return float64(snap.Regions) >= c.Threshold
	case models.CriterionContinents:
		return float64(snap.Continents) >= c.Threshold
	case models.CriterionRegionsInCountry:
		return float64(snap.MaxRegionsInCountry) >= c.Threshold
	case models.CriterionHemispheres:
		return float64(snap.Hemispheres) >= c.Threshold
	case models.CriterionUniqueDays:
		return float64(snap.UniqueDays) >= c.Threshold
	case models.CriterionCountryCoveragePct:
		return snap.MaxCountryCoverage >= c.Threshold
	case models.CriterionRegionCoveragePct:
		return snap.MaxRegionCoverage >= c.Threshold
	case models.CriterionUnknown:
		return false
	default:
		return false
	}
}

// CheckAndUnlock recomputes the user's statistics snapshot and sweeps
// the whole catalog, recording any newly satisfied achievements at
// unlockedAt. Returns the unlocks in catalog order.
//
// Achievements are monotonic: once held they are never re-evaluated or
// revoked, so the sweep only considers the not-yet-unlocked remainder.
func (e *Engine) CheckAndUnlock(ctx context.Context, store database.Store, userID int64, unlockedAt time.Time) ([]models.UnlockedAchievement, error) {
	start := time.Now()
	defer func() {
		metrics.AchievementSweepDuration.Observe(time.Since(start).Seconds())
	}()

	held, err := database.LoadUnlockedSet(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	if len(held) == len(e.catalog) {
		return nil, nil
	}

	snap, err := database.UserStatsSnapshot(ctx, store, userID)
	if err != nil {
		return nil, err
	}

	var unlocked []models.UnlockedAchievement
	for i := range e.catalog {
		a := &e.catalog[i]
		if held[a.ID] || !a.Satisfiable() {
			continue
		}
		if !Evaluate(a.Criterion, snap) {
			continue
		}

		inserted, err := database.InsertUnlock(ctx, store, userID, a.ID, unlockedAt)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// A concurrent transaction got there first.
			continue
		}

		metrics.AchievementsUnlocked.Inc()
		logging.Ctx(ctx).Info().
			Int64("user_id", userID).
			Str("code", a.Code).
			Msg("Achievement unlocked")

		unlocked = append(unlocked, models.UnlockedAchievement{
			Code:        a.Code,
			Name:        a.Name,
			Description: a.Description,
			UnlockedAt:  unlockedAt,
		})
	}

	return unlocked, nil
}
