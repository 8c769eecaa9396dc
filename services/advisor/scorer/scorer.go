// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scorer computes the final answer confidence exposed to callers.
//
// Scoring is a pure function of the response, the routing decision, and
// the coverage verdict. No randomness, no clock, no I/O: the same inputs
// always produce the same score, which is what makes the confidence gate
// auditable.
package scorer

import (
	"math"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// Weights for the two scored dimensions. Decision confidence carries most
// of the signal; citation support modulates it.
const (
	weightDecision = 0.6
	weightSupport  = 0.4
)

// Score computes the final confidence for one answered query.
//
// # Description
//
// The score starts from the route decision's confidence (itself bounded by
// classification confidence and coverage) and blends in citation support,
// the fraction of the answer's citations that reference distinct documents
// at or above the similarity floor. Three hard rules then apply, in order:
//
//   - An unable-to-answer response scores zero. Nothing was answered, so
//     no confidence is warranted.
//   - A citation integrity violation pins the score to the configured
//     minimum. An answer that cited out of thin air cannot be trusted at
//     any level above the floor.
//   - A response flagged uncertain is capped at the uncertainty ceiling.
//
// # Outputs
//
//   - float64: Confidence in [0,1]. Deterministic for identical inputs.
func Score(resp datatypes.SpecialistResponse, decision datatypes.RouteDecision,
	cov datatypes.KBCoverage, cfg *config.Snapshot) float64 {

	if resp.Unanswerable {
		return 0
	}
	if resp.CitationViolation {
		return cfg.MinConfidence
	}

	support := citationSupport(resp.Citations, cov.Documents, cfg.SimilarityFloor)

	score := weightDecision*decision.Confidence + weightSupport*support*cov.AggregateScore

	if resp.Uncertain {
		score = math.Min(score, cfg.UncertaintyCeiling)
	}

	return clamp(score, cfg.MinConfidence, 1)
}

// citationSupport returns the fraction of citations that reference a
// distinct retrieved document at or above the similarity floor. Uncited
// answers get zero support regardless of how strong retrieval was: an
// answer that does not point at its evidence earns no grounding credit.
func citationSupport(citations []string, docs []datatypes.RetrievedDocument, floor float64) float64 {
	if len(citations) == 0 {
		return 0
	}

	strong := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if d.Similarity >= floor {
			strong[d.SourceID] = struct{}{}
		}
	}

	supported := 0
	seen := make(map[string]struct{}, len(citations))
	for _, id := range citations {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := strong[id]; ok {
			supported++
		}
	}
	return float64(supported) / float64(len(seen))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
