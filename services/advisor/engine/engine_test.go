// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"math"
	"testing"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

func classification(domain string, confidence float64, safety bool) datatypes.DomainClassification {
	return datatypes.DomainClassification{
		Ranked:          []datatypes.DomainScore{{Domain: domain, Confidence: confidence}},
		SafetySensitive: safety,
	}
}

func coverage(tier datatypes.CoverageTier, score float64) datatypes.KBCoverage {
	return datatypes.KBCoverage{Tier: tier, AggregateScore: score}
}

func TestDecide_TransitionTable(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name           string
		cls            datatypes.DomainClassification
		cov            datatypes.KBCoverage
		wantRoute      datatypes.Route
		wantSpecialist string
	}{
		{
			name:           "high confidence strong coverage goes direct",
			cls:            classification("rockwell", 0.80, false),
			cov:            coverage(datatypes.TierStrong, 0.90),
			wantRoute:      datatypes.RouteDirectSpecialist,
			wantSpecialist: "rockwell",
		},
		{
			name:           "moderate confidence moderate coverage gets enrichment",
			cls:            classification("siemens", 0.50, false),
			cov:            coverage(datatypes.TierModerate, 0.60),
			wantRoute:      datatypes.RouteSpecialistWithEnrichment,
			wantSpecialist: "siemens",
		},
		{
			name:           "moderate confidence thin coverage gets enrichment",
			cls:            classification("fanuc", 0.45, false),
			cov:            coverage(datatypes.TierThin, 0.30),
			wantRoute:      datatypes.RouteSpecialistWithEnrichment,
			wantSpecialist: "fanuc",
		},
		{
			name:           "high confidence but thin coverage is enrichment not direct",
			cls:            classification("rockwell", 0.90, false),
			cov:            coverage(datatypes.TierThin, 0.30),
			wantRoute:      datatypes.RouteSpecialistWithEnrichment,
			wantSpecialist: "rockwell",
		},
		{
			name:           "strong coverage but weak domain falls back",
			cls:            classification("abb", 0.20, false),
			cov:            coverage(datatypes.TierStrong, 0.85),
			wantRoute:      datatypes.RouteGeneralistFallback,
			wantSpecialist: datatypes.DomainGeneralist,
		},
		{
			name:           "no coverage falls back",
			cls:            classification("siemens", 0.50, false),
			cov:            coverage(datatypes.TierNone, 0.0),
			wantRoute:      datatypes.RouteGeneralistFallback,
			wantSpecialist: datatypes.DomainGeneralist,
		},
		{
			name:           "unknown domain falls back",
			cls:            classification(datatypes.DomainUnknown, 0.05, false),
			cov:            coverage(datatypes.TierModerate, 0.60),
			wantRoute:      datatypes.RouteGeneralistFallback,
			wantSpecialist: datatypes.DomainGeneralist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.cls, tt.cov, cfg)
			if got.Route != tt.wantRoute {
				t.Errorf("route = %s, want %s", got.Route, tt.wantRoute)
			}
			if got.Specialist != tt.wantSpecialist {
				t.Errorf("specialist = %s, want %s", got.Specialist, tt.wantSpecialist)
			}
			if got.Reason == "" {
				t.Error("decision must carry an audit reason")
			}
		})
	}
}

func TestDecide_SafetyDominates(t *testing.T) {
	cfg := config.Default()

	// Safety must win over every combination of domain confidence and tier.
	tiers := []datatypes.CoverageTier{
		datatypes.TierNone, datatypes.TierThin, datatypes.TierModerate, datatypes.TierStrong,
	}
	for _, tier := range tiers {
		for _, conf := range []float64{0.0, 0.45, 0.95} {
			cls := classification("rockwell", conf, true)
			got := Decide(cls, coverage(tier, 0.9), cfg)
			if got.Route != datatypes.RouteSafetyOverride {
				t.Errorf("tier=%s conf=%.2f: route = %s, want SAFETY_OVERRIDE", tier, conf, got.Route)
			}
			if got.Specialist != datatypes.DomainSafety {
				t.Errorf("tier=%s conf=%.2f: specialist = %s, want safety", tier, conf, got.Specialist)
			}
		}
	}
}

func TestDecide_ConfidenceNeverExceedsInputs(t *testing.T) {
	cfg := config.Default()

	// Property sweep over a grid of inputs, including the safety override.
	for _, safety := range []bool{false, true} {
		for dc := 0.0; dc <= 1.0; dc += 0.1 {
			for agg := 0.0; agg <= 1.0; agg += 0.1 {
				for _, tier := range []datatypes.CoverageTier{
					datatypes.TierNone, datatypes.TierThin, datatypes.TierModerate, datatypes.TierStrong,
				} {
					got := Decide(classification("siemens", dc, safety), coverage(tier, agg), cfg)
					limit := math.Max(dc, agg)
					if got.Confidence > limit+1e-9 {
						t.Fatalf("safety=%v dc=%.1f agg=%.1f tier=%s: confidence %.3f exceeds max input %.3f",
							safety, dc, agg, tier, got.Confidence, limit)
					}
				}
			}
		}
	}
}

func TestDecide_Deterministic(t *testing.T) {
	cfg := config.Default()
	cls := classification("mitsubishi", 0.55, false)
	cov := coverage(datatypes.TierModerate, 0.62)

	first := Decide(cls, cov, cfg)
	for i := 0; i < 25; i++ {
		if got := Decide(cls, cov, cfg); got != first {
			t.Fatalf("run %d: decision %+v differs from %+v", i, got, first)
		}
	}
}
