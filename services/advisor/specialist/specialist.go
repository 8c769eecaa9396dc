// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package specialist holds the domain responders and the dispatcher that
// invokes exactly one of them per request.
//
// The registry is assembled at startup from the classifier's lexicon plus
// the generalist and the safety responder - static configuration, no
// reflection. The dispatcher enforces the failure ladder: bounded retries
// with backoff, one generalist fallback, then an explicit unable-to-answer
// response. Nothing here raises to the caller.
package specialist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/observability"
	"github.com/AleutianAI/AleutianAdvisor/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.advisor.specialist")

// ErrProviderUnavailable wraps completion provider failures after all
// retries are exhausted.
var ErrProviderUnavailable = errors.New("completion provider unavailable")

// unableToAnswerText is the terminal response body when every generation
// path failed. An honest refusal beats a fabricated answer.
const unableToAnswerText = "I was unable to generate an answer for this question right now. " +
	"Please try again, or escalate to a human support engineer."

// Specialist is one answer generator. Implementations ground their output
// in the retrieved evidence and cite sources by identifier.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Specialist interface {
	// ID returns the registry identifier (a vendor domain, "generalist",
	// or "safety").
	ID() string

	// GenerateAnswer produces an answer grounded in the coverage evidence.
	GenerateAnswer(ctx context.Context, query *datatypes.Query, cov datatypes.KBCoverage,
		decision datatypes.RouteDecision, cfg *config.Snapshot) (datatypes.SpecialistResponse, error)
}

// =============================================================================
// Registry
// =============================================================================

// Registry maps specialist identifiers to implementations. Built once at
// startup; read-only afterwards.
type Registry struct {
	byID map[string]Specialist
}

// NewRegistry builds the registry for the given vendor domains. Every
// domain gets a domain specialist; the generalist and safety responders
// are always present.
func NewRegistry(domains []string, client llm.LLMClient) *Registry {
	byID := make(map[string]Specialist, len(domains)+2)
	for _, d := range domains {
		byID[d] = newDomainSpecialist(d, client)
	}
	byID[datatypes.DomainGeneralist] = newGeneralist(client)
	byID[datatypes.DomainSafety] = newSafetyResponder(client)
	return &Registry{byID: byID}
}

// Get returns the specialist for id, or the generalist when id is unknown
// (for example the classifier's "unknown" domain).
func (r *Registry) Get(id string) Specialist {
	if s, ok := r.byID[id]; ok {
		return s
	}
	return r.byID[datatypes.DomainGeneralist]
}

// IDs returns the registered identifiers, sorted, for startup logging.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher selects and invokes exactly one specialist per request.
//
// # Thread Safety
//
// Safe for concurrent use; it holds no per-request state.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch runs the route's specialist and applies the failure ladder.
//
// # Description
//
// The selected specialist is invoked with bounded retries and backoff.
// If it still fails and it is not already the generalist or the safety
// responder, the generalist is tried once. If that also fails, an explicit
// unable-to-answer response is returned. The safety responder never falls
// back: delegating a hazard query to another responder is contractually
// disallowed (its own implementation degrades to a static caution
// instead of failing).
//
// # Outputs
//
//   - datatypes.SpecialistResponse: Always well-formed; never an error.
func (d *Dispatcher) Dispatch(ctx context.Context, query *datatypes.Query, cov datatypes.KBCoverage,
	decision datatypes.RouteDecision, cfg *config.Snapshot) datatypes.SpecialistResponse {

	ctx, span := tracer.Start(ctx, "specialist.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("route", string(decision.Route)),
		attribute.String("specialist", decision.Specialist),
	)

	selected := d.registry.Get(decision.Specialist)

	resp, err := d.invokeWithRetries(ctx, selected, query, cov, decision, cfg)
	if err == nil {
		return resp
	}
	span.RecordError(err)

	// One generalist fallback, unless the generalist already failed or the
	// safety contract forbids delegation.
	if selected.ID() != datatypes.DomainGeneralist && selected.ID() != datatypes.DomainSafety {
		slog.Warn("Specialist failed after retries, falling back to generalist",
			"specialist", selected.ID(), "error", err)
		fallback := d.registry.Get(datatypes.DomainGeneralist)
		resp, fbErr := d.invokeWithRetries(ctx, fallback, query, cov, decision, cfg)
		if fbErr == nil {
			// The fallback answered outside its intended route; flag it.
			resp.Uncertain = true
			return resp
		}
		span.RecordError(fbErr)
		err = fbErr
	}

	slog.Error("All generation paths failed, returning unable-to-answer response", "error", err)
	span.SetStatus(codes.Error, "generation failed through all fallbacks")
	return datatypes.SpecialistResponse{
		Answer:       unableToAnswerText,
		Citations:    []string{},
		Uncertain:    true,
		Unanswerable: true,
	}
}

// invokeWithRetries calls one specialist with per-attempt generation
// timeouts and linear backoff between attempts. The parent context's
// cancellation aborts the whole ladder.
func (d *Dispatcher) invokeWithRetries(ctx context.Context, s Specialist, query *datatypes.Query,
	cov datatypes.KBCoverage, decision datatypes.RouteDecision, cfg *config.Snapshot) (datatypes.SpecialistResponse, error) {

	var lastErr error
	attempts := cfg.ProviderRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			observability.ProviderRetries.Inc()
			slog.Warn("Retrying specialist generation",
				"specialist", s.ID(), "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return datatypes.SpecialistResponse{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
			case <-time.After(cfg.RetryBackoff * time.Duration(attempt)):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.GenerationTimeout)
		resp, err := s.GenerateAnswer(attemptCtx, query, cov, decision, cfg)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// Caller gone; stop retrying.
			break
		}
	}
	return datatypes.SpecialistResponse{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}
