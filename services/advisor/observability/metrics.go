// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability exposes the advisor's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouteDecisions counts routing outcomes by route label.
	RouteDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "route_decisions_total",
		Help:      "Routing decisions by chosen route.",
	}, []string{"route"})

	// CoverageTiers counts coverage evaluation outcomes by tier label.
	CoverageTiers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "coverage_tiers_total",
		Help:      "Coverage evaluations by resulting tier.",
	}, []string{"tier"})

	// GapsRecorded counts knowledge gap records successfully queued.
	GapsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "gaps_recorded_total",
		Help:      "Knowledge gap records queued for persistence.",
	})

	// GapsDropped counts gap records dropped because the queue was full.
	GapsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "gaps_dropped_total",
		Help:      "Knowledge gap records dropped due to a full queue.",
	})

	// GapWriteFailures counts failed gap persistence attempts.
	GapWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "gap_write_failures_total",
		Help:      "Failed knowledge gap writes to the knowledge store.",
	})

	// ProviderRetries counts completion provider retry attempts.
	ProviderRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "provider_retries_total",
		Help:      "Completion provider retry attempts.",
	})

	// AnswerLatency observes end-to-end pipeline latency per route.
	AnswerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "answer_latency_seconds",
		Help:      "End-to-end answer latency by route.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"route"})

	// AnswerConfidence observes the final confidence scores handed to callers.
	AnswerConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aleutian",
		Subsystem: "advisor",
		Name:      "answer_confidence",
		Help:      "Distribution of final answer confidence scores.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})
)
