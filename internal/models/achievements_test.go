// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package models

import "testing"

func TestParseCriterion(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantKind  CriterionKind
		wantValue float64
		wantErr   bool
	}{
		{"threshold key", `{"type": "cells_total", "threshold": 100}`, CriterionCellsTotal, 100, false},
		{"count alias", `{"type": "hemispheres", "count": 2}`, CriterionHemispheres, 2, false},
		{"fractional coverage", `{"type": "country_coverage_pct", "threshold": 0.25}`, CriterionCountryCoveragePct, 0.25, false},
		{"unknown kind", `{"type": "teleports", "threshold": 3}`, CriterionUnknown, 0, true},
		{"missing threshold", `{"type": "countries"}`, CriterionUnknown, 0, true},
		{"zero threshold", `{"type": "countries", "threshold": 0}`, CriterionUnknown, 0, true},
		{"negative threshold", `{"type": "countries", "threshold": -1}`, CriterionUnknown, 0, true},
		{"not json", `not json`, CriterionUnknown, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCriterion([]byte(tc.raw))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
			if got.Kind != tc.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tc.wantKind)
			}
			if !tc.wantErr && got.Threshold != tc.wantValue {
				t.Errorf("threshold = %v, want %v", got.Threshold, tc.wantValue)
			}
		})
	}
}

func TestParseCriterionRoundTrip(t *testing.T) {
	original := Criterion{Kind: CriterionRegionsInCountry, Threshold: 5}

	raw, err := MarshalCriterion(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	parsed, err := ParseCriterion(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != original {
		t.Errorf("round trip changed criterion: %+v -> %+v", original, parsed)
	}
}

func TestAchievementSatisfiable(t *testing.T) {
	known := Achievement{Criterion: Criterion{Kind: CriterionCountries, Threshold: 10}}
	if !known.Satisfiable() {
		t.Error("known criterion reported unsatisfiable")
	}

	unknown := Achievement{Criterion: Criterion{Kind: CriterionUnknown}}
	if unknown.Satisfiable() {
		t.Error("unknown criterion reported satisfiable")
	}
}

func TestResolutionValid(t *testing.T) {
	if !ResolutionFine.Valid() || !ResolutionCoarse.Valid() {
		t.Error("known resolutions invalid")
	}
	if Resolution("medium").Valid() {
		t.Error("unknown resolution valid")
	}
}
