// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Package geofence resolves a coordinate to its enclosing country and
// region by point-in-polygon containment against the reference catalog.
//
// Resolution is bounded-time and best-effort: on timeout, error, or no
// match it returns unresolved ids rather than blocking or failing the
// caller. The ingestion pipeline treats an unresolved country/region as
// an acceptable degradation, never as an error.
package geofence

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/geo/s2"

	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/metrics"
)

// Boundary is one catalog geometry: a country outline or a region
// outline within a country. RegionID is nil for country boundaries.
type Boundary struct {
	CountryID int64
	RegionID  *int64
	Name      string

	// GeoJSON is a Polygon or MultiPolygon document in WGS84.
	GeoJSON []byte
}

// feature is a loaded boundary with its bounding box prefilter.
type feature struct {
	countryID int64
	regionID  *int64
	name      string
	bound     s2.Rect
	polys     []polygon
}

// contains checks the bounding box, then the exact geometry.
func (f *feature) contains(lat, lon float64) bool {
	if !f.bound.ContainsLatLng(s2.LatLngFromDegrees(lat, lon)) {
		return false
	}
	for _, poly := range f.polys {
		if containsPoint(poly, lat, lon) {
			return true
		}
	}
	return false
}

// checkEvery is how many features are scanned between context deadline
// checks during a resolve pass.
const checkEvery = 64

// Locator holds the loaded catalog boundaries in memory.
// It is immutable after construction and safe for concurrent use.
type Locator struct {
	features []feature
	timeout  time.Duration
}

// NewLocator creates an empty locator with the given per-resolve timeout.
func NewLocator(timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &Locator{timeout: timeout}
}

// Add loads one boundary. Features are scanned in insertion order, which
// makes the overlap tie-break (first match wins) deterministic per load.
func (l *Locator) Add(b Boundary) error {
	polys, err := parseGeometry(b.GeoJSON)
	if err != nil {
		return fmt.Errorf("failed to load boundary %q: %w", b.Name, err)
	}

	bound := s2.EmptyRect()
	for _, poly := range polys {
		for _, r := range poly {
			for _, v := range r {
				bound = bound.AddPoint(s2.LatLngFromDegrees(v[1], v[0]))
			}
		}
	}

	l.features = append(l.features, feature{
		countryID: b.CountryID,
		regionID:  b.RegionID,
		name:      b.Name,
		bound:     bound,
		polys:     polys,
	})
	return nil
}

// Size returns the number of loaded boundaries.
func (l *Locator) Size() int {
	return len(l.features)
}

// Resolve maps a coordinate to its enclosing country and region ids.
// Either id may be nil: unresolved. The scan is bounded by the locator
// timeout (in addition to any deadline already on ctx); hitting the bound
// degrades to whatever was resolved so far.
//
// When multiple polygons contain the point, the first feature in catalog
// order wins; further matches are logged, not treated as errors.
func (l *Locator) Resolve(ctx context.Context, lat, lon float64) (countryID, regionID *int64) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RegionLookupDuration.Observe(time.Since(start).Seconds())
		if countryID == nil {
			reason := "no_match"
			if ctx.Err() != nil {
				reason = "timeout"
			}
			metrics.RegionLookupUnresolved.WithLabelValues(reason).Inc()
		}
	}()

	for i := range l.features {
		if i%checkEvery == 0 && ctx.Err() != nil {
			logging.Ctx(ctx).Warn().
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("Region lookup timed out, degrading to unresolved")
			return countryID, regionID
		}

		f := &l.features[i]
		if countryID != nil && ((f.regionID == nil) || regionID != nil) {
			// Both slots this feature could fill are taken; it can only
			// be an overlap.
			if f.contains(lat, lon) {
				logging.Ctx(ctx).Debug().
					Str("boundary", f.name).
					Msg("Overlapping boundary ignored, first match kept")
			}
			continue
		}
		if !f.contains(lat, lon) {
			continue
		}

		if f.regionID == nil {
			if countryID == nil {
				id := f.countryID
				countryID = &id
			}
		} else if regionID == nil {
			id := *f.regionID
			regionID = &id
			if countryID == nil {
				cid := f.countryID
				countryID = &cid
			}
		}

		if countryID != nil && regionID != nil {
			return countryID, regionID
		}
	}

	return countryID, regionID
}
