// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/wayfarer-app/wayfarer/internal/achievements"
	"github.com/wayfarer-app/wayfarer/internal/config"
	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/geocell"
	"github.com/wayfarer-app/wayfarer/internal/geofence"
	"github.com/wayfarer-app/wayfarer/internal/ingest"
	"github.com/wayfarer-app/wayfarer/internal/models"
)

const (
	parisLat = 48.8566
	parisLon = 2.3522
)

var testDBSemaphore = make(chan struct{}, 1)

// setupServer builds the whole HTTP stack in auth mode "none" over an
// in-memory database.
func setupServer(t *testing.T) (*httptest.Server, *geocell.Resolver) {
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

	if err := db.SeedAchievements(ctx); err != nil {
		t.Fatalf("failed to seed achievements: %v", err)
	}
	catalog, err := database.LoadAchievements(ctx, db.Conn())
	if err != nil {
		t.Fatalf("failed to load achievements: %v", err)
	}

	resolver, err := geocell.NewResolver(8, 6)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}

	engine := achievements.NewEngine(catalog)
	processor := ingest.NewProcessor(db, resolver, geofence.NewLocator(time.Second), engine,
		map[int64]models.Country{}, map[int64]models.Region{})
	handler := NewHandler(db, processor, engine)

	cfg := &config.Config{
		Security: config.SecurityConfig{
			AuthMode:        "none",
			IngestPerMinute: 1000,
			BatchPerMinute:  1000,
			CORSOrigins:     []string{"*"},
		},
	}

	server := httptest.NewServer(NewRouter(cfg, handler))
	t.Cleanup(server.Close)
	return server, resolver
}

func postJSON(t *testing.T, url string, payload interface{}) (*http.Response, APIResponse) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, envelope
}

func getJSON(t *testing.T, url string) (*http.Response, APIResponse) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, envelope
}

func TestIngestEndpoint(t *testing.T) {
	server, resolver := setupServer(t)

	cell, err := resolver.CellFromCoords(parisLat, parisLon)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}

	resp, envelope := postJSON(t, server.URL+"/api/v1/location/ingest", IngestRequest{
		Latitude:  parisLat,
		Longitude: parisLon,
		CellIndex: cell,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (error: %+v)", resp.StatusCode, envelope.Error)
	}
	if !envelope.Success || envelope.Data == nil {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if envelope.Meta == nil || envelope.Meta.RequestID == "" {
		t.Error("response meta missing request id")
	}
}

func TestIngestEndpointValidation(t *testing.T) {
	server, _ := setupServer(t)

	resp, envelope := postJSON(t, server.URL+"/api/v1/location/ingest", IngestRequest{
		Latitude:  200,
		Longitude: parisLon,
		CellIndex: "",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeValidationFailed)
	}
}

func TestIngestEndpointCellMismatch(t *testing.T) {
	server, resolver := setupServer(t)

	wrongCell, err := resolver.CellFromCoords(-22.9068, -43.1729)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}

	resp, envelope := postJSON(t, server.URL+"/api/v1/location/ingest", IngestRequest{
		Latitude:  parisLat,
		Longitude: parisLon,
		CellIndex: wrongCell,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeCellMismatch {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeCellMismatch)
	}
}

func TestIngestSimpleEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	resp, envelope := postJSON(t, server.URL+"/api/v1/location/ingest/simple", SimpleIngestRequest{
		Latitude:  parisLat,
		Longitude: parisLon,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (error: %+v)", resp.StatusCode, envelope.Error)
	}
}

func TestBatchEndpoint(t *testing.T) {
	server, resolver := setupServer(t)

	cell, err := resolver.CellFromCoords(parisLat, parisLon)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}

	resp, envelope := postJSON(t, server.URL+"/api/v1/location/ingest/batch", BatchIngestRequest{
		Locations: []IngestRequest{
			{Latitude: parisLat, Longitude: parisLon, CellIndex: cell},
			{Latitude: parisLat, Longitude: parisLon, CellIndex: cell},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (error: %+v)", resp.StatusCode, envelope.Error)
	}

	var result models.BatchIngestResult
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("failed to remarshal data: %v", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode batch result: %v", err)
	}
	if result.Processed != 2 || len(result.Skipped) != 0 {
		t.Errorf("batch result = %+v, want 2 processed", result)
	}
}

func TestBatchEndpointRejectsOversize(t *testing.T) {
	server, resolver := setupServer(t)

	cell, err := resolver.CellFromCoords(parisLat, parisLon)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}

	locations := make([]IngestRequest, 101)
	for i := range locations {
		locations[i] = IngestRequest{Latitude: parisLat, Longitude: parisLon, CellIndex: cell}
	}

	resp, _ := postJSON(t, server.URL+"/api/v1/location/ingest/batch", BatchIngestRequest{Locations: locations})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAchievementsEndpoint(t *testing.T) {
	server, resolver := setupServer(t)

	resp, envelope := getJSON(t, server.URL+"/api/v1/achievements")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var views []achievementView
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("failed to remarshal data: %v", err)
	}
	if err := json.Unmarshal(raw, &views); err != nil {
		t.Fatalf("failed to decode achievements: %v", err)
	}
	if len(views) == 0 {
		t.Fatal("empty achievement catalog")
	}
	for _, v := range views {
		if v.Unlocked {
			t.Errorf("achievement %s unlocked before any ingest", v.Code)
		}
	}

	// One ingest unlocks first_steps.
	cell, err := resolver.CellFromCoords(parisLat, parisLon)
	if err != nil {
		t.Fatalf("failed to derive cell: %v", err)
	}
	if resp, env := postJSON(t, server.URL+"/api/v1/location/ingest", IngestRequest{
		Latitude: parisLat, Longitude: parisLon, CellIndex: cell,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest failed: %+v", env.Error)
	}

	_, envelope = getJSON(t, server.URL+"/api/v1/achievements")
	raw, err = json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("failed to remarshal data: %v", err)
	}
	if err := json.Unmarshal(raw, &views); err != nil {
		t.Fatalf("failed to decode achievements: %v", err)
	}
	found := false
	for _, v := range views {
		if v.Code == "first_steps" {
			found = true
			if !v.Unlocked || v.UnlockedAt == nil {
				t.Errorf("first_steps not unlocked: %+v", v)
			}
		}
	}
	if !found {
		t.Error("first_steps missing from catalog")
	}
}

func TestStatsEndpoints(t *testing.T) {
	server, _ := setupServer(t)

	for _, path := range []string{"/api/v1/stats/countries", "/api/v1/stats/regions"} {
		resp, envelope := getJSON(t, server.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, resp.StatusCode)
		}
		if !envelope.Success {
			t.Errorf("%s: envelope not successful: %+v", path, envelope.Error)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	resp, envelope := getJSON(t, server.URL+"/api/v1/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !envelope.Success {
		t.Errorf("health not successful: %+v", envelope.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
