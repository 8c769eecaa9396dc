// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request-scoped entities that flow through
// the advisor pipeline: the incoming query, its domain classification,
// retrieved evidence, coverage assessment, the routing decision, the
// specialist's answer, and knowledge gap records.
//
// Everything here is created per-request and discarded after the response
// is returned. The only entity that outlives a request is GapRecord, which
// the gap recorder appends to Weaviate for the ingestion pipeline.
package datatypes

import (
	"time"
)

// =============================================================================
// Query
// =============================================================================

// Query is one incoming technician question. Immutable once created;
// lifecycle is a single request.
type Query struct {
	// ID uniquely identifies this request for audit and tracing.
	ID string `json:"id"`

	// Text is the raw question as typed by the user.
	Text string `json:"text"`

	// DomainHint is an optional caller-declared vendor domain. When set it
	// is passed to the coverage evaluator as a retrieval filter; it never
	// overrides the classifier.
	DomainHint string `json:"domain_hint,omitempty"`

	// SessionID groups queries from one conversation. Generated when absent.
	SessionID string `json:"session_id,omitempty"`

	// PriorTurns carries prior conversation turns, oldest first. Used only
	// as prompt context; never persisted by this core.
	PriorTurns []Turn `json:"prior_turns,omitempty"`
}

// Turn is a single prior question/answer pair from the conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// =============================================================================
// Domain classification
// =============================================================================

// DomainScore is one (domain, confidence) pair produced by the classifier.
type DomainScore struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

// DomainClassification is the classifier's full output: domains ranked by
// confidence (highest first) plus the domain-orthogonal safety flag.
//
// SafetySensitive is computed independently of the domain ranking. A query
// about a recognized vendor can still be safety-sensitive, and safety
// detection deliberately over-triggers: a false positive costs one overly
// cautious answer, a false negative misses a hazard request.
type DomainClassification struct {
	// Ranked lists domains in descending confidence order. Never empty:
	// unmatched queries get a single low-confidence "unknown" entry.
	Ranked []DomainScore `json:"ranked"`

	// SafetySensitive is true when the query matches hazard/bypass/override
	// phrasing, regardless of domain.
	SafetySensitive bool `json:"safety_sensitive"`

	// MatchedSafetyPattern is the pattern that tripped the safety check,
	// recorded for audit. Empty when SafetySensitive is false.
	MatchedSafetyPattern string `json:"matched_safety_pattern,omitempty"`
}

// Top returns the highest-confidence domain score. The classifier guarantees
// Ranked is non-empty, but a zero value is returned defensively for
// hand-built instances in tests.
func (dc *DomainClassification) Top() DomainScore {
	if len(dc.Ranked) == 0 {
		return DomainScore{Domain: DomainUnknown, Confidence: 0}
	}
	return dc.Ranked[0]
}

// DomainUnknown is the fallback domain label for unclassifiable queries.
const DomainUnknown = "unknown"

// DomainGeneralist identifies the cross-domain specialist.
const DomainGeneralist = "generalist"

// DomainSafety identifies the safety responder.
const DomainSafety = "safety"

// =============================================================================
// Retrieved evidence and coverage
// =============================================================================

// RetrievedDocument is one knowledge store hit. Owned by the coverage
// evaluator; read-only downstream.
type RetrievedDocument struct {
	// SourceID identifies the document in the knowledge store. Citations
	// reference this value and nothing else.
	SourceID string `json:"source_id"`

	// Content is the text snippet returned by the store.
	Content string `json:"content"`

	// Similarity is the store's certainty score in [0,1].
	Similarity float64 `json:"similarity"`

	// Domain is the vendor tag inherited from the store's metadata.
	Domain string `json:"domain,omitempty"`
}

// CoverageTier summarizes how well retrieved evidence supports a query.
type CoverageTier string

const (
	TierNone     CoverageTier = "NONE"
	TierThin     CoverageTier = "THIN"
	TierModerate CoverageTier = "MODERATE"
	TierStrong   CoverageTier = "STRONG"
)

// rank orders tiers for monotonicity comparisons. Higher is better.
func (t CoverageTier) rank() int {
	switch t {
	case TierStrong:
		return 3
	case TierModerate:
		return 2
	case TierThin:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t is the same tier as other or a stronger one.
func (t CoverageTier) AtLeast(other CoverageTier) bool {
	return t.rank() >= other.rank()
}

// KBCoverage is the coverage evaluator's verdict for one query.
//
// Tier is always derived from AggregateScore and the document list through
// the evaluator's pure mapping function; it is never set independently, so
// the mapping stays testable and reproducible.
type KBCoverage struct {
	Tier CoverageTier `json:"tier"`

	// AggregateScore combines top similarity, the count of documents above
	// the similarity floor, and score spread. In [0,1].
	AggregateScore float64 `json:"aggregate_score"`

	// Documents holds the retrieved evidence ordered by similarity,
	// capped at the configured top-K.
	Documents []RetrievedDocument `json:"documents"`
}

// SourceIDs returns the ordered source identifiers of the retrieved
// documents. This is the grounding set a specialist may cite from.
func (c *KBCoverage) SourceIDs() []string {
	ids := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		ids = append(ids, d.SourceID)
	}
	return ids
}

// =============================================================================
// Route decision
// =============================================================================

// Route is the chosen answer strategy for one query.
type Route string

const (
	// RouteDirectSpecialist answers directly from strong retrieved evidence
	// with minimal generative elaboration.
	RouteDirectSpecialist Route = "DIRECT_SPECIALIST"

	// RouteSpecialistWithEnrichment synthesizes across sparse evidence,
	// explicitly signaling lower certainty.
	RouteSpecialistWithEnrichment Route = "SPECIALIST_WITH_ENRICHMENT"

	// RouteGeneralistFallback hands the query to the cross-domain
	// specialist. With NONE coverage the response must state that no
	// grounding evidence was found.
	RouteGeneralistFallback Route = "GENERALIST_FALLBACK"

	// RouteSafetyOverride is terminal: the safety responder answers and no
	// other specialist may be consulted.
	RouteSafetyOverride Route = "SAFETY_OVERRIDE"
)

// RouteDecision records which strategy was chosen and why. Immutable,
// logged for audit.
type RouteDecision struct {
	Route Route `json:"route"`

	// Specialist is the identifier of the responder selected for this
	// route (a vendor domain, "generalist", or "safety").
	Specialist string `json:"specialist"`

	// Confidence is derived from the classification confidence and the
	// coverage aggregate score. It never exceeds either input.
	Confidence float64 `json:"confidence"`

	// Reason is a short human-readable explanation for the audit log.
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// Specialist response
// =============================================================================

// SpecialistResponse is the answer produced by exactly one specialist.
type SpecialistResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`

	// Citations lists the source identifiers the answer is grounded in, in
	// the order cited. Each value must be a SourceID that was part of the
	// evidence passed to the specialist; anything else is a citation
	// integrity violation.
	Citations []string `json:"citations"`

	// Uncertain is the specialist's self-reported uncertainty flag. Set
	// when the specialist declines to answer, when generation fell back
	// after provider failures, or when citation integrity was violated.
	Uncertain bool `json:"uncertain"`

	// SafetyWarningIssued is true when the response carries a safety
	// caution (always true for the safety responder).
	SafetyWarningIssued bool `json:"safety_warning_issued"`

	// Unanswerable marks the explicit "unable to answer" response produced
	// when generation failed through all fallbacks.
	Unanswerable bool `json:"unanswerable,omitempty"`

	// CitationViolation is set when the raw completion cited a source that
	// was not part of the evidence context. The orphan citation is dropped
	// but the violation pins the confidence score to the configured
	// minimum.
	CitationViolation bool `json:"citation_violation,omitempty"`
}

// =============================================================================
// Gap record
// =============================================================================

// GapRecord is a logged instance of a query the system could not
// confidently answer. It is queued for the external ingestion/research
// pipeline and never consumed by this core again.
type GapRecord struct {
	ID         string       `json:"id"`
	QueryText  string       `json:"query_text"`
	Domain     string       `json:"domain"`
	Tier       CoverageTier `json:"tier"`
	Confidence float64      `json:"confidence"`
	SessionID  string       `json:"session_id,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// =============================================================================
// Pipeline result
// =============================================================================

// AnswerResult is everything the advisor returns for one query.
type AnswerResult struct {
	Response   SpecialistResponse `json:"response"`
	Confidence float64            `json:"confidence"`
	Decision   RouteDecision      `json:"decision"`

	// Gap is non-nil when this request produced a knowledge gap record.
	Gap *GapRecord `json:"gap,omitempty"`
}
