// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine decides which answer strategy handles a query.
//
// Decide is a pure function over the classification, the coverage verdict,
// and the config snapshot: the same inputs always yield the same route and
// there are no side effects during evaluation. The transition table is
// evaluated top to bottom, first match wins, and safety always wins.
package engine

import (
	"fmt"
	"math"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// Decide applies the routing transition table.
//
// # Description
//
// Rules, first match wins:
//
//  1. Safety-sensitive query -> SAFETY_OVERRIDE. Terminal; domain and
//     coverage are ignored.
//  2. Top domain confidence >= DomainHighConfidence AND tier STRONG ->
//     DIRECT_SPECIALIST.
//  3. Top domain confidence >= DomainModerateConfidence AND tier THIN or
//     MODERATE -> SPECIALIST_WITH_ENRICHMENT.
//  4. Otherwise -> GENERALIST_FALLBACK.
//
// The decision confidence is min(domain confidence, coverage aggregate
// score) for evidence-grounded routes and max of the two for the safety
// override; it can never exceed the stronger input, so no confidence is
// invented at the decision boundary.
//
// # Inputs
//
//   - cls: The classifier's output. A zero value routes to the generalist.
//   - cov: The coverage evaluator's verdict.
//   - cfg: The request's immutable config snapshot.
//
// # Outputs
//
//   - datatypes.RouteDecision: Route, selected specialist, confidence, and
//     an audit reason.
func Decide(cls datatypes.DomainClassification, cov datatypes.KBCoverage, cfg *config.Snapshot) datatypes.RouteDecision {
	top := cls.Top()

	if cls.SafetySensitive {
		return datatypes.RouteDecision{
			Route:      datatypes.RouteSafetyOverride,
			Specialist: datatypes.DomainSafety,
			// The pattern match alone decides the route. The confidence
			// still comes from the evidence signals and never exceeds the
			// stronger one.
			Confidence: math.Max(top.Confidence, cov.AggregateScore),
			Reason:     fmt.Sprintf("safety lexicon match: %s", cls.MatchedSafetyPattern),
		}
	}

	if top.Confidence >= cfg.DomainHighConfidence && cov.Tier == datatypes.TierStrong {
		return datatypes.RouteDecision{
			Route:      datatypes.RouteDirectSpecialist,
			Specialist: top.Domain,
			Confidence: combine(top.Confidence, cov.AggregateScore),
			Reason: fmt.Sprintf("domain %s at %.2f with STRONG coverage %.2f",
				top.Domain, top.Confidence, cov.AggregateScore),
		}
	}

	if top.Confidence >= cfg.DomainModerateConfidence &&
		(cov.Tier == datatypes.TierThin || cov.Tier == datatypes.TierModerate) {
		return datatypes.RouteDecision{
			Route:      datatypes.RouteSpecialistWithEnrichment,
			Specialist: top.Domain,
			Confidence: combine(top.Confidence, cov.AggregateScore),
			Reason: fmt.Sprintf("domain %s at %.2f with %s coverage %.2f",
				top.Domain, top.Confidence, cov.Tier, cov.AggregateScore),
		}
	}

	return datatypes.RouteDecision{
		Route:      datatypes.RouteGeneralistFallback,
		Specialist: datatypes.DomainGeneralist,
		Confidence: combine(top.Confidence, cov.AggregateScore),
		Reason: fmt.Sprintf("no specialist route: domain %s at %.2f, coverage %s",
			top.Domain, top.Confidence, cov.Tier),
	}
}

// combine derives the decision confidence from the two input signals. The
// minimum keeps the invariant that decision confidence never exceeds
// either the domain confidence or the coverage score, and stays monotonic
// in both.
func combine(domainConfidence, aggregateScore float64) float64 {
	return math.Min(domainConfidence, aggregateScore)
}
