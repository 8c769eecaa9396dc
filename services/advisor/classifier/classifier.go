// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier maps free-text technician queries to vendor domains.
//
// The classifier runs in bounded time with no network calls: it matches the
// query against a curated domain lexicon (vendor names, product families,
// fault-code prefixes) and against an independent safety lexicon. The two
// checks are orthogonal - a query about a recognized vendor's drive can
// still be safety-sensitive, and the safety check wins downstream.
package classifier

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aleutian.advisor.classifier")

// DomainEntry is one vendor domain in the lexicon.
type DomainEntry struct {
	// Domain is the stable identifier, also used to select the specialist.
	Domain string

	// Patterns are case-insensitive regexes matched against the query.
	// Each distinct matching pattern raises the domain's confidence.
	Patterns []string

	// DocCount is the historical number of knowledge store documents
	// tagged with this domain. Used only as the deterministic tie-break
	// signal; refreshed offline, static per process.
	DocCount int
}

// DefaultLexicon returns the built-in vendor lexicon.
//
// Pattern sets are intentionally narrow: a vendor name or an unambiguous
// product/fault-code family. Broad terms ("drive", "motor") are excluded
// because they appear in almost every query.
func DefaultLexicon() []DomainEntry {
	return []DomainEntry{
		{
			Domain: "rockwell",
			Patterns: []string{
				`\brockwell\b`,
				`allen[- ]bradley\b`,
				`\bpowerflex\b`,
				`\bcompactlogix\b`,
				`\bcontrollogix\b`,
				`\bstudio\s*5000\b`,
			},
			DocCount: 4210,
		},
		{
			Domain: "siemens",
			Patterns: []string{
				`\bsiemens\b`,
				`\bsinamics\b`,
				`\bsimatic\b`,
				`\bs7-\d{3,4}\b`,
				`\btia portal\b`,
				`\bmicromaster\b`,
			},
			DocCount: 3876,
		},
		{
			Domain: "fanuc",
			Patterns: []string{
				`\bfanuc\b`,
				`\bsrvo-\d+\b`,
				`\bkarel\b`,
				`\broboguide\b`,
				`\br-30ib?\b`,
			},
			DocCount: 2145,
		},
		{
			Domain: "mitsubishi",
			Patterns: []string{
				`\bmitsubishi\b`,
				`\bmelsec\b`,
				`\bmelservo\b`,
				`\bfr-[a-f]\d{3}\b`,
				`\bgx works\b`,
			},
			DocCount: 1532,
		},
		{
			Domain: "abb",
			Patterns: []string{
				`\babb\b`,
				`\bacs\d{3}\b`,
				`\brobotstudio\b`,
				`\birc5\b`,
				`\bdrivewindow\b`,
			},
			DocCount: 987,
		},
	}
}

// unknownConfidence is the confidence assigned to the "unknown" domain when
// nothing in the lexicon matches, including for empty queries.
const unknownConfidence = 0.05

// hintConfidence is the confidence for a domain named only by the
// caller's hint. A hint is a claim, not lexical evidence, so it lands in
// the enrichment band rather than the direct-routing band.
const hintConfidence = 0.50

// hintBoost is added when the caller's hint agrees with at least one
// lexicon pattern hit.
const hintBoost = 0.05

// confidence maps a distinct-pattern hit count to a confidence value.
// Lexicon patterns are unambiguous by construction (vendor names, product
// families, fault-code formats), so a single hit clears the direct-routing
// threshold; additional independent signals push toward the cap.
func confidence(hits int) float64 {
	if hits <= 0 {
		return 0
	}
	return math.Min(0.95, 0.50+0.20*float64(hits))
}

// RegexClassifier implements lexicon classification with precompiled
// patterns.
//
// # Thread Safety
//
// Safe for concurrent use after construction.
type RegexClassifier struct {
	entries []compiledEntry
	safety  []safetyPattern
}

type compiledEntry struct {
	domain   string
	docCount int
	patterns []*regexp.Regexp
}

// NewRegexClassifier compiles the given lexicon. A nil or empty lexicon
// falls back to DefaultLexicon().
func NewRegexClassifier(lexicon []DomainEntry) *RegexClassifier {
	if len(lexicon) == 0 {
		lexicon = DefaultLexicon()
	}
	entries := make([]compiledEntry, 0, len(lexicon))
	for _, e := range lexicon {
		ce := compiledEntry{domain: e.Domain, docCount: e.DocCount}
		for _, p := range e.Patterns {
			ce.patterns = append(ce.patterns, regexp.MustCompile("(?i)"+p))
		}
		entries = append(entries, ce)
	}
	return &RegexClassifier{
		entries: entries,
		safety:  compiledSafetyPatterns(),
	}
}

// Classify ranks vendor domains for the query and computes the safety flag.
//
// # Description
//
// Counts distinct lexicon pattern hits per domain and converts the count to
// a confidence in [0,1]. A caller-declared domain hint matching a known
// domain places that domain in the enrichment band on its own and nudges
// the confidence up when pattern hits agree. Domains are ranked
// by confidence; domains within DomainTieEpsilon of each other are ordered
// by historical document count, then by name, so identical inputs always
// produce identical output.
//
// # Inputs
//
//   - ctx: Context for tracing. Must not be nil.
//   - query: The incoming query. Empty text yields the "unknown" domain at
//     minimum confidence; Classify never fails.
//   - tieEpsilon: Confidence gap under which two domains are tied.
//
// # Outputs
//
//   - datatypes.DomainClassification: Ranked domains plus the safety flag.
//     Ranked is never empty.
func (c *RegexClassifier) Classify(ctx context.Context, query *datatypes.Query, tieEpsilon float64) datatypes.DomainClassification {
	_, span := tracer.Start(ctx, "classifier.Classify")
	defer span.End()

	text := ""
	if query != nil {
		text = strings.TrimSpace(query.Text)
	}
	span.SetAttributes(attribute.Int("query_length", len(text)))

	safetyHit, safetyPattern := c.matchSafety(text)

	var ranked []datatypes.DomainScore
	for _, entry := range c.entries {
		hits := 0
		for _, p := range entry.patterns {
			if text != "" && p.MatchString(text) {
				hits++
			}
		}
		conf := confidence(hits)
		if query != nil && strings.EqualFold(query.DomainHint, entry.domain) {
			if hits == 0 {
				conf = hintConfidence
			} else {
				conf = math.Min(0.95, conf+hintBoost)
			}
		}
		if conf > 0 {
			ranked = append(ranked, datatypes.DomainScore{
				Domain:     entry.domain,
				Confidence: conf,
			})
		}
	}

	if len(ranked) == 0 {
		ranked = []datatypes.DomainScore{{Domain: datatypes.DomainUnknown, Confidence: unknownConfidence}}
	} else {
		c.sortRanked(ranked, tieEpsilon)
	}

	span.SetAttributes(
		attribute.String("top_domain", ranked[0].Domain),
		attribute.Float64("top_confidence", ranked[0].Confidence),
		attribute.Bool("safety_sensitive", safetyHit),
	)

	return datatypes.DomainClassification{
		Ranked:               ranked,
		SafetySensitive:      safetyHit,
		MatchedSafetyPattern: safetyPattern,
	}
}

// sortRanked orders scores by confidence descending. Scores within
// tieEpsilon are ordered by historical document count descending, then by
// domain name, never by map or match order.
func (c *RegexClassifier) sortRanked(ranked []datatypes.DomainScore, tieEpsilon float64) {
	docCounts := make(map[string]int, len(c.entries))
	for _, e := range c.entries {
		docCounts[e.domain] = e.docCount
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		di := ranked[i]
		dj := ranked[j]
		if math.Abs(di.Confidence-dj.Confidence) >= tieEpsilon {
			return di.Confidence > dj.Confidence
		}
		if docCounts[di.Domain] != docCounts[dj.Domain] {
			return docCounts[di.Domain] > docCounts[dj.Domain]
		}
		return di.Domain < dj.Domain
	})
}

// Domains returns the lexicon's domain identifiers, in lexicon order. The
// specialist registry uses this to build one responder per domain.
func (c *RegexClassifier) Domains() []string {
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.domain)
	}
	return out
}
