// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Package geocell derives and validates entries of the two-level
// hexagonal partition the visit ledger is keyed on. Fine cells are H3
// res-8 by default, coarse cells res-6; every fine cell has exactly one
// coarse ancestor.
package geocell

import (
	"errors"
	"fmt"

	h3 "github.com/uber/h3-go/v4"
)

// ErrCellMismatch is returned when a client-supplied fine cell index does
// not correspond (exactly or via one neighbor hop) to the supplied
// coordinates. It indicates a caller-side bug and is rejected before any
// state change.
var ErrCellMismatch = errors.New("cell index does not match coordinates")

// ErrInvalidCellIndex is returned for structurally invalid cell indexes.
var ErrInvalidCellIndex = errors.New("invalid cell index")

// Resolver performs pure cell derivations at a fixed pair of resolutions.
type Resolver struct {
	fineRes   int
	coarseRes int
}

// NewResolver creates a resolver for the given H3 resolutions.
// The coarse resolution must be strictly coarser than the fine one.
func NewResolver(fineRes, coarseRes int) (*Resolver, error) {
	if fineRes < 0 || fineRes > 15 || coarseRes < 0 || coarseRes > 15 {
		return nil, fmt.Errorf("resolution out of range: fine=%d coarse=%d", fineRes, coarseRes)
	}
	if coarseRes >= fineRes {
		return nil, fmt.Errorf("coarse resolution %d must be lower than fine resolution %d", coarseRes, fineRes)
	}
	return &Resolver{fineRes: fineRes, coarseRes: coarseRes}, nil
}

// FineResolution returns the fine H3 resolution.
func (r *Resolver) FineResolution() int { return r.fineRes }

// CoarseResolution returns the coarse H3 resolution.
func (r *Resolver) CoarseResolution() int { return r.coarseRes }

// parse converts a string index to an H3 cell, rejecting structurally
// invalid indexes.
func parse(index string) (h3.Cell, error) {
	cell := h3.Cell(h3.IndexFromString(index))
	if !cell.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCellIndex, index)
	}
	return cell, nil
}

// CellFromCoords computes the fine cell containing the given coordinates.
func (r *Resolver) CellFromCoords(lat, lon float64) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), r.fineRes)
	if err != nil {
		return "", fmt.Errorf("failed to compute cell for (%f, %f): %w", lat, lon, err)
	}
	return cell.String(), nil
}

// DeriveCoarse returns the coarse ancestor of a fine cell index.
// Pure and deterministic; fails only on a structurally invalid index or
// an index at the wrong resolution.
func (r *Resolver) DeriveCoarse(fineIndex string) (string, error) {
	cell, err := parse(fineIndex)
	if err != nil {
		return "", err
	}
	if cell.Resolution() != r.fineRes {
		return "", fmt.Errorf("%w: %q has resolution %d, want %d",
			ErrInvalidCellIndex, fineIndex, cell.Resolution(), r.fineRes)
	}

	parent, err := cell.Parent(r.coarseRes)
	if err != nil {
		return "", fmt.Errorf("failed to derive coarse parent of %q: %w", fineIndex, err)
	}
	return parent.String(), nil
}

// Validate recomputes the expected fine cell for the coordinates and
// accepts the supplied index if it matches exactly or is one of the six
// immediate neighbors. The neighbor tolerance absorbs GPS jitter at cell
// boundaries from low-accuracy fixes.
func (r *Resolver) Validate(lat, lon float64, suppliedIndex string) error {
	supplied, err := parse(suppliedIndex)
	if err != nil {
		return err
	}
	if supplied.Resolution() != r.fineRes {
		return fmt.Errorf("%w: %q has resolution %d, want %d",
			ErrInvalidCellIndex, suppliedIndex, supplied.Resolution(), r.fineRes)
	}

	expected, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), r.fineRes)
	if err != nil {
		return fmt.Errorf("failed to compute expected cell: %w", err)
	}
	if supplied == expected {
		return nil
	}

	neighbors, err := expected.GridDisk(1)
	if err != nil {
		return fmt.Errorf("failed to compute neighbors of %q: %w", expected.String(), err)
	}
	for _, n := range neighbors {
		if supplied == n {
			return nil
		}
	}

	return fmt.Errorf("%w: expected %q (or neighbor), got %q",
		ErrCellMismatch, expected.String(), suppliedIndex)
}

// Centroid returns the center coordinates of a cell at either resolution.
func (r *Resolver) Centroid(index string) (lat, lon float64, err error) {
	cell, err := parse(index)
	if err != nil {
		return 0, 0, err
	}
	ll, err := cell.LatLng()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute centroid of %q: %w", index, err)
	}
	return ll.Lat, ll.Lng, nil
}
