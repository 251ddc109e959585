// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package geofence

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ring is a closed loop of [lon, lat] vertices, GeoJSON axis order.
type ring [][2]float64

// polygon is one outer ring plus optional holes.
type polygon []ring

// geometryDoc is the subset of GeoJSON geometry this package consumes.
// Boundaries are stored as Polygon or MultiPolygon in WGS84.
type geometryDoc struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// parseGeometry decodes a GeoJSON Polygon or MultiPolygon document into
// its polygons.
func parseGeometry(raw []byte) ([]polygon, error) {
	var doc geometryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse geometry: %w", err)
	}

	switch doc.Type {
	case "Polygon":
		var poly polygon
		if err := json.Unmarshal(doc.Coordinates, &poly); err != nil {
			return nil, fmt.Errorf("failed to parse polygon coordinates: %w", err)
		}
		if err := validatePolygon(poly); err != nil {
			return nil, err
		}
		return []polygon{poly}, nil

	case "MultiPolygon":
		var polys []polygon
		if err := json.Unmarshal(doc.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("failed to parse multipolygon coordinates: %w", err)
		}
		for _, poly := range polys {
			if err := validatePolygon(poly); err != nil {
				return nil, err
			}
		}
		return polys, nil

	default:
		return nil, fmt.Errorf("unsupported geometry type %q", doc.Type)
	}
}

func validatePolygon(poly polygon) error {
	if len(poly) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for _, r := range poly {
		if len(r) < 4 {
			return fmt.Errorf("polygon ring has %d vertices, want at least 4", len(r))
		}
	}
	return nil
}

// containsPoint applies the even-odd rule across all rings of the
// polygon, which naturally treats hole rings as exclusions. Coordinates
// are treated as planar; catalog boundaries do not cross the antimeridian.
func containsPoint(poly polygon, lat, lon float64) bool {
	inside := false
	for _, r := range poly {
		n := len(r)
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := r[i][0], r[i][1]
			xj, yj := r[j][0], r[j][1]
			if (yi > lat) != (yj > lat) &&
				lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
	}
	return inside
}
