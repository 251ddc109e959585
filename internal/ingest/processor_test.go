// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/achievements"
	"github.com/wayfarer-app/wayfarer/internal/config"
	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/geocell"
	"github.com/wayfarer-app/wayfarer/internal/geofence"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

const (
	parisLat = 48.8566
	parisLon = 2.3522
	rioLat   = -22.9068
	rioLon   = -43.1729
)

// testDBSemaphore serializes DuckDB lifecycles across tests, matching
// the database package's test setup.
var testDBSemaphore = make(chan struct{}, 1)

type testEnv struct {
	db        *database.DB
	processor *Processor
	franceID  int64
	idfID     int64
}

// setupProcessor builds the full pipeline over an in-memory database
// with a one-country, one-region catalog around Paris.
func setupProcessor(t *testing.T) *testEnv {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	ctx := context.Background()

	franceID, err := database.InsertCountry(ctx, db.Conn(), models.Country{
		ISO2: "FR", ISO3: "FRA", Name: "France", Continent: "Europe", TotalFineCells: 1000,
	})
	if err != nil {
		t.Fatalf("failed to insert country: %v", err)
	}
	idfID, err := database.InsertRegion(ctx, db.Conn(), models.Region{
		CountryID: franceID, Code: "FR-IDF", Name: "Ile-de-France", TotalFineCells: 100,
	})
	if err != nil {
		t.Fatalf("failed to insert region: %v", err)
	}

	// Squares around Paris, country enclosing region.
	countryBox := []byte(`{"type": "Polygon", "coordinates": [[[1.5,48.2],[3.5,48.2],[3.5,49.4],[1.5,49.4],[1.5,48.2]]]}`)
	regionBox := []byte(`{"type": "Polygon", "coordinates": [[[2.0,48.6],[2.8,48.6],[2.8,49.1],[2.0,49.1],[2.0,48.6]]]}`)

	locator := geofence.NewLocator(time.Second)
	if err := locator.Add(geofence.Boundary{CountryID: franceID, Name: "France", GeoJSON: countryBox}); err != nil {
		t.Fatalf("failed to add country boundary: %v", err)
	}
	if err := locator.Add(geofence.Boundary{CountryID: franceID, RegionID: &idfID, Name: "Ile-de-France", GeoJSON: regionBox}); err != nil {
		t.Fatalf("failed to add region boundary: %v", err)
	}

	if err := db.SeedAchievements(ctx); err != nil {
		t.Fatalf("failed to seed achievements: %v", err)
	}
	catalog, err := database.LoadAchievements(ctx, db.Conn())
	if err != nil {
		t.Fatalf("failed to load achievements: %v", err)
	}

	countries, err := database.LoadCountries(ctx, db.Conn())
	if err != nil {
		t.Fatalf("failed to load countries: %v", err)
	}
	regions, err := database.LoadRegions(ctx, db.Conn())
	if err != nil {
		t.Fatalf("failed to load regions: %v", err)
	}

	resolver, err := geocell.NewResolver(8, 6)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}

	processor := NewProcessor(db, resolver, locator, achievements.NewEngine(catalog), countries, regions)
	return &testEnv{db: db, processor: processor, franceID: franceID, idfID: idfID}
}

// updateAt builds a valid update for coordinates, deriving the cell the
// way a correct client would.
func (env *testEnv) updateAt(t *testing.T, userID int64, lat, lon float64) models.LocationUpdate {
	t.Helper()
	cell, err := env.processor.Resolver().CellFromCoords(lat, lon)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}
	return models.LocationUpdate{
		UserID:        userID,
		Latitude:      lat,
		Longitude:     lon,
		FineCellIndex: cell,
	}
}

func unlockedCodes(result *models.IngestResult) map[string]bool {
	codes := make(map[string]bool, len(result.AchievementsUnlocked))
	for _, u := range result.AchievementsUnlocked {
		codes[u.Code] = true
	}
	return codes
}

func TestProcessFirstVisit(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	result, err := env.processor.Process(ctx, env.updateAt(t, 1, parisLat, parisLon))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(result.NewCellsFine) != 1 || len(result.NewCellsCoarse) != 1 {
		t.Errorf("new cells: fine=%d coarse=%d, want 1/1", len(result.NewCellsFine), len(result.NewCellsCoarse))
	}
	if len(result.RevisitedCellsFine) != 0 || len(result.RevisitedCellsCoarse) != 0 {
		t.Error("first visit reported revisits")
	}
	if result.FineVisitCount != 1 || result.CoarseVisitCount != 1 {
		t.Errorf("counts: fine=%d coarse=%d, want 1/1", result.FineVisitCount, result.CoarseVisitCount)
	}

	// The coarse row carries the same country and was upserted first;
	// it must not suppress the discovery.
	if result.NewCountry == nil || result.NewCountry.Code != "FR" {
		t.Errorf("NewCountry = %+v, want FR", result.NewCountry)
	}
	if result.NewRegion == nil || result.NewRegion.Code != "FR-IDF" {
		t.Errorf("NewRegion = %+v, want FR-IDF", result.NewRegion)
	}

	if !unlockedCodes(result)["first_steps"] {
		t.Error("first_steps not unlocked by first visit")
	}
}

func TestProcessRevisit(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()
	update := env.updateAt(t, 1, parisLat, parisLon)

	if _, err := env.processor.Process(ctx, update); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	result, err := env.processor.Process(ctx, update)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}

	if len(result.NewCellsFine) != 0 || len(result.NewCellsCoarse) != 0 {
		t.Error("revisit reported new cells")
	}
	if len(result.RevisitedCellsFine) != 1 || len(result.RevisitedCellsCoarse) != 1 {
		t.Error("revisit not reported")
	}
	if result.FineVisitCount != 2 || result.CoarseVisitCount != 2 {
		t.Errorf("counts: fine=%d coarse=%d, want 2/2", result.FineVisitCount, result.CoarseVisitCount)
	}
	if result.NewCountry != nil || result.NewRegion != nil {
		t.Error("revisit reported entity discoveries")
	}
	if len(result.AchievementsUnlocked) != 0 {
		t.Errorf("revisit re-unlocked achievements: %+v", result.AchievementsUnlocked)
	}
}

func TestProcessSecondCellNoCountryRediscovery(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	first := env.updateAt(t, 1, parisLat, parisLon)
	second := env.updateAt(t, 1, parisLat+0.01, parisLon)
	if second.FineCellIndex == first.FineCellIndex {
		t.Fatal("fixture points map to the same fine cell")
	}

	if _, err := env.processor.Process(ctx, first); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	result, err := env.processor.Process(ctx, second)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}

	if len(result.NewCellsFine) != 1 {
		t.Errorf("new fine cells = %d, want 1", len(result.NewCellsFine))
	}
	if result.NewCountry != nil {
		t.Errorf("country rediscovered: %+v", result.NewCountry)
	}
	if result.NewRegion != nil {
		t.Errorf("region rediscovered: %+v", result.NewRegion)
	}
}

func TestProcessCellMismatchRejectedBeforeWrites(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	wrongCell, err := env.processor.Resolver().CellFromCoords(rioLat, rioLon)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}
	update := models.LocationUpdate{
		UserID:        1,
		Latitude:      parisLat,
		Longitude:     parisLon,
		FineCellIndex: wrongCell,
	}

	_, err = env.processor.Process(ctx, update)
	if err == nil {
		t.Fatal("mismatched cell accepted")
	}
	if !IsRejection(err) {
		t.Errorf("mismatch not classified as rejection: %v", err)
	}

	if _, err := database.GetUserVisit(ctx, env.db.Conn(), 1, wrongCell); err == nil {
		t.Error("rejected update left a ledger row")
	}
}

func TestProcessAcceptsNeighborCell(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	// Simulate GPS jitter: the client-supplied cell stays fixed while
	// the fix moves under half a cell diameter, so the supplied index is
	// at worst an immediate neighbor of the recomputed one.
	update := env.updateAt(t, 1, parisLat, parisLon)
	update.Latitude += 0.004

	result, err := env.processor.Process(ctx, update)
	if err != nil {
		t.Fatalf("neighbor-tolerant ingest failed: %v", err)
	}

	// The supplied index, not the recomputed one, is what gets recorded.
	if len(result.NewCellsFine) != 1 || result.NewCellsFine[0] != update.FineCellIndex {
		t.Errorf("ledger cell = %v, want supplied %s", result.NewCellsFine, update.FineCellIndex)
	}
}

func TestProcessUnresolvedLocationStillCounts(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	// Rio is outside every catalog boundary.
	result, err := env.processor.Process(ctx, env.updateAt(t, 1, rioLat, rioLon))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(result.NewCellsFine) != 1 {
		t.Errorf("unresolved location not counted: %+v", result)
	}
	if result.NewCountry != nil || result.NewRegion != nil {
		t.Error("unresolved location discovered entities")
	}
}

func TestProcessRejectsBadCoordinates(t *testing.T) {
	env := setupProcessor(t)
	update := env.updateAt(t, 1, parisLat, parisLon)
	update.Latitude = 91

	_, err := env.processor.Process(context.Background(), update)
	if !IsRejection(err) {
		t.Errorf("out-of-range latitude: got %v, want rejection", err)
	}
}

func TestProcessBatchSkipsInvalidEntries(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	good := env.updateAt(t, 1, parisLat, parisLon)
	bad := good
	bad.FineCellIndex = "notacell"
	goodAgain := env.updateAt(t, 1, parisLat+0.01, parisLon)

	result, err := env.processor.ProcessBatch(ctx, []models.LocationUpdate{good, bad, goodAgain})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("processed = %d, want 2", result.Processed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Index != 1 {
		t.Errorf("skipped = %+v, want entry at index 1", result.Skipped)
	}
	if result.Skipped[0].Reason == "" {
		t.Error("skip reason missing")
	}

	// One country discovery total across the batch.
	if len(result.NewCountries) != 1 || result.NewCountries[0].Code != "FR" {
		t.Errorf("NewCountries = %+v, want [FR]", result.NewCountries)
	}
}

func TestProcessBatchSizeLimit(t *testing.T) {
	env := setupProcessor(t)

	updates := make([]models.LocationUpdate, MaxBatchSize+1)
	for i := range updates {
		updates[i] = env.updateAt(t, 1, parisLat, parisLon)
	}

	if _, err := env.processor.ProcessBatch(context.Background(), updates); err == nil {
		t.Error("oversized batch accepted")
	}
}

func TestProcessAchievementProgression(t *testing.T) {
	env := setupProcessor(t)
	ctx := context.Background()

	// Both hemispheres across two days.
	first, err := env.processor.Process(ctx, env.updateAt(t, 1, parisLat, parisLon))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !unlockedCodes(first)["first_steps"] {
		t.Error("first_steps not unlocked")
	}
	if unlockedCodes(first)["hemisphere_hopper"] {
		t.Error("hemisphere_hopper unlocked with one hemisphere")
	}

	second, err := env.processor.Process(ctx, env.updateAt(t, 1, rioLat, rioLon))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !unlockedCodes(second)["hemisphere_hopper"] {
		t.Error("hemisphere_hopper not unlocked after southern visit")
	}
	if unlockedCodes(second)["first_steps"] {
		t.Error("first_steps unlocked twice")
	}
}
