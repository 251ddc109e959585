// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Wayfarer server: ingests GPS location updates into a two-level cell
// visit ledger, classifies discoveries and evaluates achievements.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/achievements"
	"github.com/wayfarer-app/wayfarer/internal/api"
	"github.com/wayfarer-app/wayfarer/internal/config"
	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/geocell"
	"github.com/wayfarer-app/wayfarer/internal/geofence"
	"github.com/wayfarer-app/wayfarer/internal/ingest"
	"github.com/wayfarer-app/wayfarer/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting wayfarer")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.SeedAchievements {
		if err := db.SeedAchievements(ctx); err != nil {
			return err
		}
	}

	resolver, err := geocell.NewResolver(cfg.Geo.FineResolution, cfg.Geo.CoarseResolution)
	if err != nil {
		return err
	}

	countries, err := database.LoadCountries(ctx, db.Conn())
	if err != nil {
		return err
	}
	regions, err := database.LoadRegions(ctx, db.Conn())
	if err != nil {
		return err
	}
	logging.Info().
		Int("countries", len(countries)).
		Int("regions", len(regions)).
		Msg("Reference catalog loaded")

	locator := geofence.NewLocator(cfg.Geo.RegionLookupTimeout)
	if err := database.LoadBoundaries(ctx, db.Conn(), locator); err != nil {
		return err
	}

	catalog, err := database.LoadAchievements(ctx, db.Conn())
	if err != nil {
		return err
	}
	engine := achievements.NewEngine(catalog)

	processor := ingest.NewProcessor(db, resolver, locator, engine, countries, regions)
	handler := api.NewHandler(db, processor, engine)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}
