// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package ingest

import (
	"context"

	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/metrics"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

// classify turns the two ledger outcomes of one fix into a discovery
// report. Runs inside the ingesting transaction, after the upserts, so
// the prior-visit checks see a consistent ledger.
func (p *Processor) classify(
	ctx context.Context,
	store database.Store,
	userID int64,
	coarseRec, fineRec *models.CellVisitRecord,
	countryID, regionID *int64,
) (*models.DiscoveryReport, error) {
	report := &models.DiscoveryReport{
		NewCellsCoarse:       []string{},
		NewCellsFine:         []string{},
		RevisitedCellsCoarse: []string{},
		RevisitedCellsFine:   []string{},
		CoarseVisitCount:     coarseRec.User.VisitCount,
		FineVisitCount:       fineRec.User.VisitCount,
	}

	if coarseRec.User.WasNew {
		report.NewCellsCoarse = append(report.NewCellsCoarse, coarseRec.CellIndex)
		metrics.CellDiscoveries.WithLabelValues(string(models.ResolutionCoarse)).Inc()
	} else {
		report.RevisitedCellsCoarse = append(report.RevisitedCellsCoarse, coarseRec.CellIndex)
	}

	if fineRec.User.WasNew {
		report.NewCellsFine = append(report.NewCellsFine, fineRec.CellIndex)
		metrics.CellDiscoveries.WithLabelValues(string(models.ResolutionFine)).Inc()
	} else {
		report.RevisitedCellsFine = append(report.RevisitedCellsFine, fineRec.CellIndex)
		// A revisited fine cell cannot discover a country or region.
		return report, nil
	}

	// Country/region discovery keys on fine visits only. The coarse row
	// for this same fix was upserted first and carries the same country,
	// so the prior-visit check must exclude the current cell and ignore
	// coarse rows entirely.
	if countryID != nil {
		country, ok := p.countries[*countryID]
		if !ok {
			logging.Ctx(ctx).Warn().
				Int64("country_id", *countryID).
				Msg("Resolved country missing from catalog")
		} else {
			visited, err := database.HasOtherFineVisitInCountry(ctx, store, userID, *countryID, fineRec.CellIndex)
			if err != nil {
				return nil, err
			}
			if !visited {
				report.NewCountry = &models.EntityDiscovery{
					ID:   country.ID,
					Code: country.ISO2,
					Name: country.Name,
				}
				metrics.CountryDiscoveries.Inc()
			}
		}
	}

	if regionID != nil {
		region, ok := p.regions[*regionID]
		if !ok {
			logging.Ctx(ctx).Warn().
				Int64("region_id", *regionID).
				Msg("Resolved region missing from catalog")
		} else {
			visited, err := database.HasOtherFineVisitInRegion(ctx, store, userID, *regionID, fineRec.CellIndex)
			if err != nil {
				return nil, err
			}
			if !visited {
				report.NewRegion = &models.EntityDiscovery{
					ID:   region.ID,
					Code: region.Code,
					Name: region.Name,
				}
				metrics.RegionDiscoveries.Inc()
			}
		}
	}

	return report, nil
}
