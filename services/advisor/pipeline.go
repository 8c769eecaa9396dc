// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package advisor wires the answer pipeline: classify and evaluate coverage
// concurrently, decide the route, dispatch exactly one specialist, score
// the result, and record a knowledge gap when warranted.
package advisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/classifier"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/coverage"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/engine"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/gaps"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/observability"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/scorer"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/specialist"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("aleutian.advisor.pipeline")

// Service is the confidence-gated answer pipeline.
//
// # Thread Safety
//
// Safe for concurrent use. Each request captures one immutable config
// snapshot at entry and uses it throughout.
type Service struct {
	classifier *classifier.RegexClassifier
	evaluator  *coverage.Evaluator
	dispatcher *specialist.Dispatcher
	recorder   *gaps.Recorder
	cfgStore   *config.Store
}

// NewService assembles the pipeline from its components.
func NewService(cls *classifier.RegexClassifier, eval *coverage.Evaluator,
	dispatcher *specialist.Dispatcher, recorder *gaps.Recorder, cfgStore *config.Store) *Service {

	return &Service{
		classifier: cls,
		evaluator:  eval,
		dispatcher: dispatcher,
		recorder:   recorder,
		cfgStore:   cfgStore,
	}
}

// Answer runs the full pipeline for one query.
//
// # Description
//
// Classification and coverage evaluation run concurrently; neither depends
// on the other's output. Their results join at the route decision, then
// exactly one specialist is dispatched, the response is scored, and a gap
// record is emitted asynchronously when coverage was NONE or THIN and the
// confidence fell below the gap floor.
//
// Answer never returns an error. Every failure mode inside the pipeline
// degrades to a well-formed response: retrieval failure becomes NONE
// coverage, provider failure walks the dispatcher's fallback ladder, and a
// full gap queue drops the record.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing. Cancellation aborts
//     generation but still yields an unable-to-answer response.
//   - query: The incoming question. Never mutated; a missing ID or
//     SessionID is generated on an internal copy.
//
// # Outputs
//
//   - datatypes.AnswerResult: Response, final confidence, the route
//     decision, and the gap record if one was queued.
func (s *Service) Answer(ctx context.Context, query *datatypes.Query) datatypes.AnswerResult {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "advisor.Answer")
	defer span.End()

	// The caller's Query stays untouched; missing identifiers are generated
	// on a private copy.
	q := *query
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.SessionID == "" {
		q.SessionID = uuid.NewString()
	}
	query = &q
	span.SetAttributes(attribute.String("query_id", query.ID))

	cfg := s.cfgStore.Current()

	var (
		cls datatypes.DomainClassification
		cov datatypes.KBCoverage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cls = s.classifier.Classify(gctx, query, cfg.DomainTieEpsilon)
		return nil
	})
	g.Go(func() error {
		cov = s.evaluator.Evaluate(gctx, query.Text, query.DomainHint, cfg)
		return nil
	})
	// Neither stage returns an error; the group is only used for the join.
	_ = g.Wait()

	decision := engine.Decide(cls, cov, cfg)
	observability.RouteDecisions.WithLabelValues(string(decision.Route)).Inc()
	observability.CoverageTiers.WithLabelValues(string(cov.Tier)).Inc()

	resp := s.dispatcher.Dispatch(ctx, query, cov, decision, cfg)
	confidence := scorer.Score(resp, decision, cov, cfg)
	observability.AnswerConfidence.Observe(confidence)

	var gap *datatypes.GapRecord
	if s.recorder != nil && gaps.ShouldRecord(decision, cov.Tier, confidence, cfg.GapConfidenceFloor) {
		gap = s.recorder.Record(query, cls.Top().Domain, cov.Tier, confidence)
	}

	elapsed := time.Since(start)
	observability.AnswerLatency.WithLabelValues(string(decision.Route)).Observe(elapsed.Seconds())

	slog.Info("Answered query",
		"query_id", query.ID,
		"session_id", query.SessionID,
		"domain", cls.Top().Domain,
		"domain_confidence", cls.Top().Confidence,
		"tier", cov.Tier,
		"route", decision.Route,
		"reason", decision.Reason,
		"confidence", confidence,
		"citations", len(resp.Citations),
		"gap_recorded", gap != nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	span.SetAttributes(
		attribute.String("route", string(decision.Route)),
		attribute.Float64("confidence", confidence),
	)

	return datatypes.AnswerResult{
		Response:   resp,
		Confidence: confidence,
		Decision:   decision,
		Gap:        gap,
	}
}
