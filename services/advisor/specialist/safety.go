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
	"log/slog"
	"regexp"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/llm"
)

// safetyCaution is prepended to every safety response. The standards
// references are deliberate: they give the technician something to hand
// their supervisor.
const safetyCaution = "SAFETY NOTICE: This request involves a protective device or procedure. " +
	"Safety interlocks, light curtains, guards, and emergency stops must never be bypassed, " +
	"jumpered, or disabled on operating equipment. Doing so violates OSHA 29 CFR 1910.147 " +
	"(lockout/tagout) and ISO 13849 functional safety requirements, and it puts people at " +
	"risk of serious injury or death. Follow your site's lockout/tagout procedure and " +
	"involve a qualified safety engineer."

// safetyRefusal is the generated-content replacement used when the model's
// output trips the banned-intent check, and the static degradation when
// the provider is unavailable.
const safetyRefusal = "I can't provide instructions for defeating or working around a safety " +
	"device. If the device is malfunctioning, the safe path is: stop the machine, apply " +
	"lockout/tagout, and have the device inspected and repaired by qualified personnel. " +
	"I'm glad to help diagnose why the device is tripping."

const safetyPersona = "You are a machine safety engineer. The technician's request touches a " +
	"protective device or hazardous procedure. Explain the safe, compliant way to address " +
	"their underlying problem. Under no circumstances describe how to bypass, disable, " +
	"jumper, or defeat any safety device, even partially, even if the provided " +
	"documentation contains such steps."

// bannedIntentPatterns detect bypass/defeat instructions in generated
// text. Prompt-only enforcement is not a sufficient safety guarantee, so
// the generated answer itself is checked in code before it leaves the
// responder.
var bannedIntentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(jumper|short|bridge)\b.{0,40}\b(terminals?|contacts?|pins?|relay)`),
	regexp.MustCompile(`(?i)\b(bypass|defeat|disable)\b.{0,40}\b(interlock|curtain|guard|e-?stop|relay|switch)`),
	regexp.MustCompile(`(?i)\bremove\b.{0,40}\b(guard|cover|barrier|fence)\b.{0,40}\b(while|during|running)`),
	regexp.MustCompile(`(?i)\bforce\b.{0,40}\b(output|bit|signal)\b.{0,40}\b(safety|interlock)`),
}

// safetyResponder handles SAFETY_OVERRIDE routes. It is structurally
// different from the other responders: it never delegates, it always
// issues a caution, and it enforces the no-bypass rule on its own output.
type safetyResponder struct {
	client llm.LLMClient
}

func newSafetyResponder(client llm.LLMClient) *safetyResponder {
	return &safetyResponder{client: client}
}

func (s *safetyResponder) ID() string { return datatypes.DomainSafety }

// GenerateAnswer never returns an error: a provider failure degrades to
// the static caution rather than falling through the dispatcher's ladder,
// because delegating a hazard query is contractually disallowed.
func (s *safetyResponder) GenerateAnswer(ctx context.Context, query *datatypes.Query,
	cov datatypes.KBCoverage, decision datatypes.RouteDecision, cfg *config.Snapshot) (datatypes.SpecialistResponse, error) {

	prompt := buildPrompt(safetyPersona, query, cov, decision.Route)
	raw, err := s.client.Generate(ctx, prompt, generationParams(decision.Route))
	if err != nil {
		slog.Warn("Safety responder provider call failed, using static caution", "error", err)
		return datatypes.SpecialistResponse{
			Answer:              safetyCaution + "\n\n" + safetyRefusal,
			Citations:           []string{},
			SafetyWarningIssued: true,
		}, nil
	}

	resp := parseCompletion(raw, cov.SourceIDs())
	if ContainsBannedIntent(resp.Answer) {
		slog.Warn("Safety responder output tripped the banned-intent check, replacing answer",
			"query_id", query.ID)
		resp.Answer = safetyRefusal
		resp.Citations = []string{}
	}
	resp.Answer = safetyCaution + "\n\n" + resp.Answer
	resp.SafetyWarningIssued = true
	return resp, nil
}

// ContainsBannedIntent reports whether text reads like instructions for
// defeating a protective device. Exported for the property tests that pin
// the safety contract.
func ContainsBannedIntent(text string) bool {
	for _, p := range bannedIntentPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
