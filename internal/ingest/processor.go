// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Package ingest orchestrates one location update end to end: cell
// validation, region lookup, the four ledger upserts, discovery
// classification and the achievement sweep.
//
// Everything that mutates state for one update runs in a single
// transaction, so a client retry after a failure never half-applies.
// The region lookup runs before the transaction opens because it is
// pure in-memory computation and must not hold the write path.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/achievements"
	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/geocell"
	"github.com/wayfarer-app/wayfarer/internal/geofence"
	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/metrics"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

// ErrInvalidCoordinates is returned for out-of-range latitude or
// longitude before any state change.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// MaxBatchSize caps one batch upload. Matches the mobile client's
// offline queue flush size.
const MaxBatchSize = 100

// Processor wires the ingestion pipeline together. Safe for concurrent
// use; all mutable state lives in the database.
type Processor struct {
	db        *database.DB
	resolver  *geocell.Resolver
	locator   *geofence.Locator
	engine    *achievements.Engine
	countries map[int64]models.Country
	regions   map[int64]models.Region
}

// NewProcessor creates a processor over loaded reference catalogs.
func NewProcessor(
	db *database.DB,
	resolver *geocell.Resolver,
	locator *geofence.Locator,
	engine *achievements.Engine,
	countries map[int64]models.Country,
	regions map[int64]models.Region,
) *Processor {
	return &Processor{
		db:        db,
		resolver:  resolver,
		locator:   locator,
		engine:    engine,
		countries: countries,
		regions:   regions,
	}
}

// Resolver exposes the cell resolver for callers that derive cells
// server-side (the coordinates-only endpoint).
func (p *Processor) Resolver() *geocell.Resolver {
	return p.resolver
}

// validate rejects an update before any state change. Rejection reasons
// are client bugs, never infrastructure faults.
func (p *Processor) validate(update *models.LocationUpdate) error {
	if update.Latitude < -90 || update.Latitude > 90 ||
		update.Longitude < -180 || update.Longitude > 180 {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinates, update.Latitude, update.Longitude)
	}
	return p.resolver.Validate(update.Latitude, update.Longitude, update.FineCellIndex)
}

// IsRejection reports whether an error is a per-update validation
// rejection rather than an infrastructure failure. Batch processing
// skips rejected entries and fails on everything else.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidCoordinates) ||
		errors.Is(err, geocell.ErrCellMismatch) ||
		errors.Is(err, geocell.ErrInvalidCellIndex)
}

// Process ingests one location update and returns its discovery report
// plus any achievements it unlocked.
func (p *Processor) Process(ctx context.Context, update models.LocationUpdate) (*models.IngestResult, error) {
	start := time.Now()
	result, err := p.process(ctx, update)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.IngestTotal.WithLabelValues("ok").Inc()
	case IsRejection(err):
		metrics.IngestTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.IngestTotal.WithLabelValues("error").Inc()
	}
	return result, err
}

func (p *Processor) process(ctx context.Context, update models.LocationUpdate) (*models.IngestResult, error) {
	if err := p.validate(&update); err != nil {
		return nil, err
	}

	visitedAt := update.Timestamp
	if visitedAt.IsZero() {
		visitedAt = time.Now()
	}
	visitedAt = visitedAt.UTC()

	coarseIndex, err := p.resolver.DeriveCoarse(update.FineCellIndex)
	if err != nil {
		return nil, err
	}

	fineLat, fineLon, err := p.resolver.Centroid(update.FineCellIndex)
	if err != nil {
		return nil, err
	}
	coarseLat, coarseLon, err := p.resolver.Centroid(coarseIndex)
	if err != nil {
		return nil, err
	}

	// Best-effort, bounded; nil ids are an accepted degradation.
	countryID, regionID := p.locator.Resolve(ctx, update.Latitude, update.Longitude)

	var result *models.IngestResult
	err = p.db.InTx(ctx, func(tx *sql.Tx) error {
		coarseRec, err := p.recordVisit(ctx, tx, &update, cellVisit{
			index:       coarseIndex,
			resolution:  models.ResolutionCoarse,
			centroidLat: coarseLat,
			centroidLon: coarseLon,
			countryID:   countryID,
			regionID:    regionID,
		}, visitedAt)
		if err != nil {
			return err
		}

		fineRec, err := p.recordVisit(ctx, tx, &update, cellVisit{
			index:       update.FineCellIndex,
			resolution:  models.ResolutionFine,
			centroidLat: fineLat,
			centroidLon: fineLon,
			countryID:   countryID,
			regionID:    regionID,
		}, visitedAt)
		if err != nil {
			return err
		}

		report, err := p.classify(ctx, tx, update.UserID, coarseRec, fineRec, countryID, regionID)
		if err != nil {
			return err
		}

		unlocked, err := p.engine.CheckAndUnlock(ctx, tx, update.UserID, visitedAt)
		if err != nil {
			return err
		}

		result = &models.IngestResult{
			DiscoveryReport:      *report,
			AchievementsUnlocked: unlocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("fine_cell", update.FineCellIndex).
		Str("coarse_cell", coarseIndex).
		Int("new_fine", len(result.NewCellsFine)).
		Int("unlocked", len(result.AchievementsUnlocked)).
		Msg("Location ingested")

	return result, nil
}

// cellVisit bundles the derived attributes of one cell of the fix.
type cellVisit struct {
	index       string
	resolution  models.Resolution
	centroidLat float64
	centroidLon float64
	countryID   *int64
	regionID    *int64
}

// recordVisit performs the global and per-user upserts for one cell.
func (p *Processor) recordVisit(ctx context.Context, tx database.Store, update *models.LocationUpdate, cv cellVisit, visitedAt time.Time) (*models.CellVisitRecord, error) {
	global, err := database.RecordCellVisit(ctx, tx, database.GlobalCellUpsert{
		CellIndex:   cv.index,
		Resolution:  cv.resolution,
		CountryID:   cv.countryID,
		RegionID:    cv.regionID,
		CentroidLat: cv.centroidLat,
		CentroidLon: cv.centroidLon,
		SeenAt:      visitedAt,
	})
	if err != nil {
		return nil, err
	}

	user, err := database.RecordUserVisit(ctx, tx, database.UserVisitUpsert{
		UserID:     update.UserID,
		CellIndex:  cv.index,
		Resolution: cv.resolution,
		DeviceID:   update.DeviceID,
		VisitedAt:  visitedAt,
	})
	if err != nil {
		return nil, err
	}

	return &models.CellVisitRecord{
		CellIndex:  cv.index,
		Resolution: cv.resolution,
		Global:     global,
		User:       user,
	}, nil
}

// ProcessBatch ingests up to MaxBatchSize updates for one user.
// Each update commits independently, so one bad entry never poisons the
// rest: rejections are reported per index, infrastructure failures
// abort the remainder.
func (p *Processor) ProcessBatch(ctx context.Context, updates []models.LocationUpdate) (*models.BatchIngestResult, error) {
	if len(updates) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(updates), MaxBatchSize)
	}

	result := &models.BatchIngestResult{
		Skipped:              []models.SkippedLocation{},
		NewCellsCoarse:       []string{},
		NewCellsFine:         []string{},
		NewCountries:         []models.EntityDiscovery{},
		NewRegions:           []models.EntityDiscovery{},
		AchievementsUnlocked: []models.UnlockedAchievement{},
	}

	seenCountries := make(map[int64]bool)
	seenRegions := make(map[int64]bool)

	for i, update := range updates {
		one, err := p.Process(ctx, update)
		if err != nil {
			if IsRejection(err) {
				result.Skipped = append(result.Skipped, models.SkippedLocation{
					Index:  i,
					Reason: err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}

		result.Processed++
		result.NewCellsCoarse = append(result.NewCellsCoarse, one.NewCellsCoarse...)
		result.NewCellsFine = append(result.NewCellsFine, one.NewCellsFine...)
		if one.NewCountry != nil && !seenCountries[one.NewCountry.ID] {
			seenCountries[one.NewCountry.ID] = true
			result.NewCountries = append(result.NewCountries, *one.NewCountry)
		}
		if one.NewRegion != nil && !seenRegions[one.NewRegion.ID] {
			seenRegions[one.NewRegion.ID] = true
			result.NewRegions = append(result.NewRegions, *one.NewRegion)
		}
		result.AchievementsUnlocked = append(result.AchievementsUnlocked, one.AchievementsUnlocked...)
	}

	return result, nil
}
