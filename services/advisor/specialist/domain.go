// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/llm"
)

// domainSpecialist answers queries for a single vendor domain.
type domainSpecialist struct {
	domain string
	client llm.LLMClient
}

func newDomainSpecialist(domain string, client llm.LLMClient) *domainSpecialist {
	return &domainSpecialist{domain: domain, client: client}
}

func (s *domainSpecialist) ID() string { return s.domain }

func (s *domainSpecialist) GenerateAnswer(ctx context.Context, query *datatypes.Query,
	cov datatypes.KBCoverage, decision datatypes.RouteDecision, cfg *config.Snapshot) (datatypes.SpecialistResponse, error) {

	prompt := buildPrompt(domainPersona(s.domain), query, cov, decision.Route)
	raw, err := s.client.Generate(ctx, prompt, generationParams(decision.Route))
	if err != nil {
		return datatypes.SpecialistResponse{}, fmt.Errorf("domain specialist %s generation failed: %w", s.domain, err)
	}

	resp := parseCompletion(raw, cov.SourceIDs())
	if decision.Route == datatypes.RouteSpecialistWithEnrichment {
		// Sparse evidence: the route itself signals lower certainty.
		resp.Uncertain = true
	}
	return resp, nil
}

// generalist is the cross-domain responder used for fallback routes and
// for provider-failure fallback.
type generalist struct {
	client llm.LLMClient
}

func newGeneralist(client llm.LLMClient) *generalist {
	return &generalist{client: client}
}

func (g *generalist) ID() string { return datatypes.DomainGeneralist }

func (g *generalist) GenerateAnswer(ctx context.Context, query *datatypes.Query,
	cov datatypes.KBCoverage, decision datatypes.RouteDecision, cfg *config.Snapshot) (datatypes.SpecialistResponse, error) {

	prompt := buildPrompt(generalistPersona, query, cov, datatypes.RouteGeneralistFallback)
	raw, err := g.client.Generate(ctx, prompt, generationParams(datatypes.RouteGeneralistFallback))
	if err != nil {
		return datatypes.SpecialistResponse{}, fmt.Errorf("generalist generation failed: %w", err)
	}

	resp := parseCompletion(raw, cov.SourceIDs())

	// With no grounding evidence the answer must say so. The prompt asks
	// for it; this enforces it.
	if cov.Tier == datatypes.TierNone && !strings.Contains(resp.Answer, noEvidenceNotice) {
		resp.Answer = noEvidenceNotice + "\n\n" + resp.Answer
		resp.Uncertain = true
	}
	return resp, nil
}

// generationParams picks sampling settings per route. Direct answers stay
// cold; enrichment gets slightly more room to synthesize.
func generationParams(route datatypes.Route) llm.GenerationParams {
	temp := float32(0.1)
	if route == datatypes.RouteSpecialistWithEnrichment {
		temp = 0.3
	}
	maxTokens := 1024
	return llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
}
