// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package specialist

import (
	"context"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

func safetyDecision() datatypes.RouteDecision {
	return datatypes.RouteDecision{
		Route:      datatypes.RouteSafetyOverride,
		Specialist: datatypes.DomainSafety,
		Confidence: 1.0,
	}
}

func TestSafetyResponder_AlwaysIssuesCaution(t *testing.T) {
	client := &scriptedClient{completion: "To diagnose the interlock trip, check the door switch wiring [SOURCE: kb-101]."}
	s := newSafetyResponder(client)

	resp, err := s.GenerateAnswer(context.Background(),
		&datatypes.Query{Text: "interlock keeps tripping"}, strongCoverage(), safetyDecision(), testConfig())
	if err != nil {
		t.Fatalf("safety responder must not return errors: %v", err)
	}
	if !resp.SafetyWarningIssued {
		t.Error("SafetyWarningIssued must always be true")
	}
	if !strings.HasPrefix(resp.Answer, safetyCaution) {
		t.Error("answer must begin with the safety caution")
	}
	if len(resp.Citations) != 1 || resp.Citations[0] != "kb-101" {
		t.Errorf("citations = %v, want [kb-101]", resp.Citations)
	}
}

func TestSafetyResponder_ReplacesBannedIntentOutput(t *testing.T) {
	client := &scriptedClient{completion: "Easy: jumper the terminals on the safety relay and restart [SOURCE: kb-101]."}
	s := newSafetyResponder(client)

	resp, err := s.GenerateAnswer(context.Background(),
		&datatypes.Query{Text: "how do I get past the light curtain"}, strongCoverage(), safetyDecision(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Answer, safetyRefusal) {
		t.Error("banned-intent output must be replaced with the refusal")
	}
	if strings.Contains(resp.Answer, "jumper the terminals") {
		t.Error("banned instructions must not survive the check")
	}
	if len(resp.Citations) != 0 {
		t.Errorf("citations must be cleared on replacement, got %v", resp.Citations)
	}
	if !resp.SafetyWarningIssued {
		t.Error("SafetyWarningIssued must be true")
	}
}

func TestSafetyResponder_DegradesToStaticCautionOnProviderFailure(t *testing.T) {
	client := &scriptedClient{failFirst: 1 << 30}
	s := newSafetyResponder(client)

	resp, err := s.GenerateAnswer(context.Background(),
		&datatypes.Query{Text: "bypass e-stop"}, strongCoverage(), safetyDecision(), testConfig())
	if err != nil {
		t.Fatalf("safety responder must degrade, not fail: %v", err)
	}
	if !strings.Contains(resp.Answer, safetyCaution) || !strings.Contains(resp.Answer, safetyRefusal) {
		t.Error("static degradation must carry both the caution and the refusal")
	}
	if !resp.SafetyWarningIssued {
		t.Error("SafetyWarningIssued must be true on the static path")
	}
}

func TestSafetyResponder_NeverDelegates(t *testing.T) {
	// The dispatcher must not route a failed safety call to the generalist.
	client := &scriptedClient{failFirst: 1 << 30}
	d := newTestDispatcher(client)

	resp := d.Dispatch(context.Background(), &datatypes.Query{Text: "disable the guard switch"},
		strongCoverage(), safetyDecision(), testConfig())

	if !resp.SafetyWarningIssued {
		t.Error("safety queries must always come back with a warning, even under provider failure")
	}
	if resp.Unanswerable {
		t.Error("safety responses degrade to static text, never to unable-to-answer")
	}
}

func TestContainsBannedIntent(t *testing.T) {
	banned := []string{
		"jumper the terminals on the relay",
		"short pins 3 and 4",
		"bypass the interlock circuit",
		"defeat the light curtain by covering the emitter",
		"disable the e-stop temporarily",
		"remove the guard while the machine is running",
		"force the output bit tied to the safety circuit",
	}
	for _, text := range banned {
		if !ContainsBannedIntent(text) {
			t.Errorf("expected banned intent in %q", text)
		}
	}

	benign := []string{
		"the interlock circuit is described in the wiring diagram",
		"check whether the relay contacts are welded",
		"the guard must be closed before the cycle starts",
		"replace the door switch if it reads open",
		safetyCaution,
		safetyRefusal,
	}
	for _, text := range benign {
		if ContainsBannedIntent(text) {
			t.Errorf("false positive on %q", text)
		}
	}
}
