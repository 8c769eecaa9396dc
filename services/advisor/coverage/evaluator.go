// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coverage measures how well the knowledge store covers a query.
//
// One retrieval call produces up to top-K documents with similarity scores.
// Those are reduced to an aggregate score and a discrete coverage tier
// through a pure, total, monotonic mapping. A failed or timed-out retrieval
// is indistinguishable from an empty store downstream: both yield NONE
// coverage, which is the conservative routing default.
package coverage

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aleutian.advisor.coverage")

// Aggregate score weights. Top similarity dominates; document count above
// the floor and score consistency refine it. A single high spike over a
// long tail scores lower than a narrow band of several good documents.
const (
	weightTopSimilarity = 0.5
	weightDocCount      = 0.3
	weightConsistency   = 0.2
)

// Evaluator turns one retrieval into a KBCoverage verdict.
//
// # Thread Safety
//
// Safe for concurrent use; it holds no per-request state.
type Evaluator struct {
	retriever Retriever
}

// NewEvaluator creates an evaluator over the given retriever.
func NewEvaluator(retriever Retriever) *Evaluator {
	return &Evaluator{retriever: retriever}
}

// Evaluate retrieves evidence for the query and reduces it to a coverage
// tier.
//
// # Description
//
// Issues a single search (bounded by cfg.RetrievalTimeout), computes the
// aggregate score, and maps it to a tier. Retrieval failure is not an
// error: "store unavailable" routes identically to "store has no relevant
// content", so this method never returns one.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing.
//   - queryText: The raw query text to search with.
//   - domainFilter: Optional vendor filter from the caller's domain hint.
//   - cfg: The request's immutable config snapshot.
//
// # Outputs
//
//   - datatypes.KBCoverage: Tier, aggregate score, and the ordered
//     retrieved documents (capped at cfg.TopK).
func (e *Evaluator) Evaluate(ctx context.Context, queryText, domainFilter string, cfg *config.Snapshot) datatypes.KBCoverage {
	ctx, span := tracer.Start(ctx, "coverage.Evaluate")
	defer span.End()

	searchCtx, cancel := context.WithTimeout(ctx, cfg.RetrievalTimeout)
	defer cancel()

	docs, err := e.retriever.Search(searchCtx, queryText, domainFilter, cfg.TopK)
	if err != nil {
		// Conservative default: unavailable store routes like an empty one.
		slog.Warn("Knowledge store retrieval failed, treating as NONE coverage", "error", err)
		span.SetAttributes(attribute.Bool("retrieval_failed", true))
		return datatypes.KBCoverage{Tier: datatypes.TierNone, Documents: []datatypes.RetrievedDocument{}}
	}

	cov := Reduce(docs, cfg)
	span.SetAttributes(
		attribute.String("tier", string(cov.Tier)),
		attribute.Float64("aggregate_score", cov.AggregateScore),
		attribute.Int("documents", len(cov.Documents)),
	)
	return cov
}

// Reduce computes coverage from an already-retrieved document set. Pure:
// no I/O, deterministic for identical inputs.
func Reduce(docs []datatypes.RetrievedDocument, cfg *config.Snapshot) datatypes.KBCoverage {
	ordered := make([]datatypes.RetrievedDocument, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Similarity > ordered[j].Similarity
	})
	if len(ordered) > cfg.TopK {
		ordered = ordered[:cfg.TopK]
	}

	score := AggregateScore(ordered, cfg)
	return datatypes.KBCoverage{
		Tier:           MapTier(score, countAboveFloor(ordered, cfg.SimilarityFloor), cfg),
		AggregateScore: score,
		Documents:      ordered,
	}
}

// AggregateScore combines the top document's similarity, the count of
// documents above the similarity floor, and the score spread among the
// retrieved set. Result is clamped to [0,1]. Input order does not matter.
func AggregateScore(docs []datatypes.RetrievedDocument, cfg *config.Snapshot) float64 {
	if len(docs) == 0 {
		return 0
	}

	top := 0.0
	sum := 0.0
	for _, d := range docs {
		if d.Similarity > top {
			top = d.Similarity
		}
		sum += d.Similarity
	}
	mean := sum / float64(len(docs))

	countFactor := float64(countAboveFloor(docs, cfg.SimilarityFloor)) / float64(cfg.StrongMinDocs)
	if countFactor > 1 {
		countFactor = 1
	}

	// A narrow spread keeps consistency near 1; a single spike over a long
	// tail drags it down.
	consistency := 1 - (top - mean)

	score := weightTopSimilarity*top + weightDocCount*countFactor + weightConsistency*consistency
	return math.Max(0, math.Min(1, score))
}

// MapTier maps an aggregate score and above-floor document count to a
// coverage tier.
//
// The mapping is total (every score maps to exactly one tier) and monotonic
// for a fixed document count (a higher score never yields a lower tier).
// STRONG additionally requires cfg.StrongMinDocs documents above the
// similarity floor; a score that clears the STRONG boundary without the
// document count lands on MODERATE.
func MapTier(aggregateScore float64, docsAboveFloor int, cfg *config.Snapshot) datatypes.CoverageTier {
	switch {
	case aggregateScore >= cfg.TierStrong && docsAboveFloor >= cfg.StrongMinDocs:
		return datatypes.TierStrong
	case aggregateScore >= cfg.TierModerate:
		return datatypes.TierModerate
	case aggregateScore >= cfg.TierThin:
		return datatypes.TierThin
	default:
		return datatypes.TierNone
	}
}

func countAboveFloor(docs []datatypes.RetrievedDocument, floor float64) int {
	n := 0
	for _, d := range docs {
		if d.Similarity >= floor {
			n++
		}
	}
	return n
}
