// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// CriterionKind enumerates the closed set of achievement criterion kinds.
// Adding a kind means extending this enum and the evaluation switch in
// the achievements package; unknown kinds coming from the catalog are
// mapped to CriterionUnknown and are permanently unsatisfiable.
type CriterionKind string

const (
	CriterionCellsTotal         CriterionKind = "cells_total"
	CriterionCountries          CriterionKind = "countries"
	CriterionRegions            CriterionKind = "regions"
	CriterionContinents         CriterionKind = "continents"
	CriterionRegionsInCountry   CriterionKind = "regions_in_country"
	CriterionHemispheres        CriterionKind = "hemispheres"
	CriterionUniqueDays         CriterionKind = "unique_days"
	CriterionCountryCoveragePct CriterionKind = "country_coverage_pct"
	CriterionRegionCoveragePct  CriterionKind = "region_coverage_pct"

	// CriterionUnknown marks a catalog row whose criterion could not be
	// parsed. It never evaluates true and never breaks ingestion.
	CriterionUnknown CriterionKind = "unknown"
)

// Criterion is the typed form of an achievement's unlock condition.
// Threshold is a count for the cardinality kinds and a fraction in
// (0, 1] for the coverage kinds.
type Criterion struct {
	Kind      CriterionKind `json:"kind"`
	Threshold float64       `json:"threshold"`
}

// criterionJSON mirrors the catalog's stored JSON shape. The original
// catalog uses "threshold" for most kinds and "count" for hemispheres.
type criterionJSON struct {
	Type      string   `json:"type"`
	Threshold *float64 `json:"threshold"`
	Count     *float64 `json:"count"`
}

// knownCriterionKinds is the set accepted from the catalog.
var knownCriterionKinds = map[CriterionKind]bool{
	CriterionCellsTotal:         true,
	CriterionCountries:          true,
	CriterionRegions:            true,
	CriterionContinents:         true,
	CriterionRegionsInCountry:   true,
	CriterionHemispheres:        true,
	CriterionUniqueDays:         true,
	CriterionCountryCoveragePct: true,
	CriterionRegionCoveragePct:  true,
}

// ParseCriterion decodes a stored criteria document into the typed form.
// A malformed document or unrecognized kind yields an error; callers keep
// the definition but mark it unsatisfiable rather than failing ingestion.
func ParseCriterion(raw []byte) (Criterion, error) {
	var doc criterionJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Criterion{Kind: CriterionUnknown}, fmt.Errorf("failed to parse criterion: %w", err)
	}

	kind := CriterionKind(doc.Type)
	if !knownCriterionKinds[kind] {
		return Criterion{Kind: CriterionUnknown}, fmt.Errorf("unrecognized criterion kind %q", doc.Type)
	}

	var threshold float64
	switch {
	case doc.Threshold != nil:
		threshold = *doc.Threshold
	case doc.Count != nil:
		threshold = *doc.Count
	default:
		return Criterion{Kind: CriterionUnknown}, fmt.Errorf("criterion kind %q has no threshold", doc.Type)
	}

	if threshold <= 0 {
		return Criterion{Kind: CriterionUnknown}, fmt.Errorf("criterion kind %q has non-positive threshold %v", doc.Type, threshold)
	}

	return Criterion{Kind: kind, Threshold: threshold}, nil
}

// MarshalCriterion encodes a typed criterion back to the stored JSON shape.
func MarshalCriterion(c Criterion) ([]byte, error) {
	doc := map[string]interface{}{
		"type":      string(c.Kind),
		"threshold": c.Threshold,
	}
	return json.Marshal(doc)
}

// Achievement is a static catalog entry defining an unlockable badge.
type Achievement struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Criterion   Criterion `json:"criterion"`
	CreatedAt   time.Time `json:"created_at"`
}

// Satisfiable reports whether the achievement's criterion parsed into a
// known kind. Unsatisfiable definitions are skipped during evaluation.
func (a *Achievement) Satisfiable() bool {
	return a.Criterion.Kind != CriterionUnknown
}

// UserAchievement records when a user unlocked an achievement.
// Created at most once per (user, achievement); never revoked.
type UserAchievement struct {
	UserID        int64     `json:"user_id"`
	AchievementID int64     `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// UnlockedAchievement pairs a catalog entry with its unlock time for
// API responses.
type UnlockedAchievement struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}
