// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scorer

import (
	"math"
	"testing"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

func testCoverage() datatypes.KBCoverage {
	return datatypes.KBCoverage{
		Tier:           datatypes.TierStrong,
		AggregateScore: 0.9,
		Documents: []datatypes.RetrievedDocument{
			{SourceID: "d1", Similarity: 0.90},
			{SourceID: "d2", Similarity: 0.85},
			{SourceID: "d3", Similarity: 0.30}, // below the similarity floor
		},
	}
}

func TestScore(t *testing.T) {
	cfg := config.Default()
	cov := testCoverage()
	decision := datatypes.RouteDecision{Route: datatypes.RouteDirectSpecialist, Confidence: 0.8}

	tests := []struct {
		name string
		resp datatypes.SpecialistResponse
		want float64
	}{
		{
			name: "fully cited strong answer",
			resp: datatypes.SpecialistResponse{Answer: "a", Citations: []string{"d1", "d2"}},
			// 0.6*0.8 + 0.4*1.0*0.9
			want: 0.84,
		},
		{
			name: "half of citations below the floor",
			resp: datatypes.SpecialistResponse{Answer: "a", Citations: []string{"d1", "d3"}},
			// 0.6*0.8 + 0.4*0.5*0.9
			want: 0.66,
		},
		{
			name: "uncited answer gets no grounding credit",
			resp: datatypes.SpecialistResponse{Answer: "a", Citations: []string{}},
			want: 0.48,
		},
		{
			name: "uncertain answer capped at ceiling",
			resp: datatypes.SpecialistResponse{Answer: "a", Citations: []string{"d1", "d2"}, Uncertain: true},
			want: cfg.UncertaintyCeiling,
		},
		{
			name: "citation violation pinned to minimum",
			resp: datatypes.SpecialistResponse{Answer: "a", Citations: []string{"d1"}, CitationViolation: true, Uncertain: true},
			want: cfg.MinConfidence,
		},
		{
			name: "unable to answer scores zero",
			resp: datatypes.SpecialistResponse{Answer: "a", Unanswerable: true, Uncertain: true},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.resp, decision, cov, cfg)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_BoundsAndDeterminism(t *testing.T) {
	cfg := config.Default()
	cov := testCoverage()

	responses := []datatypes.SpecialistResponse{
		{Citations: []string{"d1"}},
		{Citations: []string{"d1", "d2", "d3"}},
		{Citations: []string{"missing"}},
		{Uncertain: true},
		{CitationViolation: true},
		{Unanswerable: true},
	}
	for dc := 0.0; dc <= 1.0; dc += 0.25 {
		decision := datatypes.RouteDecision{Confidence: dc}
		for _, resp := range responses {
			first := Score(resp, decision, cov, cfg)
			if first < 0 || first > 1 {
				t.Fatalf("score %v out of [0,1] for conf=%v resp=%+v", first, dc, resp)
			}
			for i := 0; i < 10; i++ {
				if got := Score(resp, decision, cov, cfg); got != first {
					t.Fatalf("non-deterministic score: %v then %v", first, got)
				}
			}
		}
	}
}

func TestScore_DuplicateCitationsCountOnce(t *testing.T) {
	cfg := config.Default()
	cov := testCoverage()
	decision := datatypes.RouteDecision{Confidence: 0.8}

	dup := Score(datatypes.SpecialistResponse{Citations: []string{"d1", "d1", "d1"}}, decision, cov, cfg)
	single := Score(datatypes.SpecialistResponse{Citations: []string{"d1"}}, decision, cov, cfg)
	if dup != single {
		t.Errorf("duplicate citations changed the score: %v vs %v", dup, single)
	}
}
