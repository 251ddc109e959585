// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package database

import (
	"context"
	"sync"
	"testing"

	"github.com/wayfarer-app/wayfarer/internal/models"
)

// TestConcurrentUpsertsSameCell hammers one cell from many goroutines.
// Counts must be exact and exactly one writer may observe WasNew.
func TestConcurrentUpsertsSameCell(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const workers = 16
	const cell = "881f1d4889fffff"

	var wg sync.WaitGroup
	newCount := make(chan bool, workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := RecordCellVisit(ctx, db.Conn(), GlobalCellUpsert{
				CellIndex:  cell,
				Resolution: models.ResolutionFine,
				SeenAt:     testTime(),
			})
			if err != nil {
				errCh <- err
				return
			}
			newCount <- out.WasNew
		}()
	}
	wg.Wait()
	close(newCount)
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent upsert failed: %v", err)
	}

	news := 0
	for wasNew := range newCount {
		if wasNew {
			news++
		}
	}
	if news != 1 {
		t.Errorf("got %d WasNew outcomes, want exactly 1", news)
	}

	final, err := GetGeoCell(ctx, db.Conn(), cell)
	if err != nil {
		t.Fatalf("failed to load cell: %v", err)
	}
	if final.GlobalVisitCount != workers {
		t.Errorf("global count = %d, want %d", final.GlobalVisitCount, workers)
	}
}

// TestConcurrentUnlockSingleWinner verifies that racing unlock inserts
// produce exactly one inserted=true.
func TestConcurrentUnlockSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	achID, err := InsertAchievement(ctx, db.Conn(), "explorer", "Explorer", "Visit 100 cells",
		`{"type": "cells_total", "threshold": 100}`)
	if err != nil {
		t.Fatalf("failed to insert achievement: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := InsertUnlock(ctx, db.Conn(), 1, achID, testTime())
			if err != nil {
				errCh <- err
				return
			}
			wins <- inserted
		}()
	}
	wg.Wait()
	close(wins)
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent unlock failed: %v", err)
	}

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("got %d unlock winners, want exactly 1", winners)
	}
}
