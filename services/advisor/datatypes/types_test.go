// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"
	"time"
)

func TestCoverageTier_AtLeast(t *testing.T) {
	order := []CoverageTier{TierNone, TierThin, TierModerate, TierStrong}
	for i, lower := range order {
		for j, higher := range order {
			got := higher.AtLeast(lower)
			want := j >= i
			if got != want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", higher, lower, got, want)
			}
		}
	}
}

func TestDomainClassification_Top(t *testing.T) {
	empty := &DomainClassification{}
	if top := empty.Top(); top.Domain != DomainUnknown || top.Confidence != 0 {
		t.Errorf("empty classification Top() = %+v, want unknown/0", top)
	}

	cls := &DomainClassification{Ranked: []DomainScore{
		{Domain: "rockwell", Confidence: 0.9},
		{Domain: "siemens", Confidence: 0.5},
	}}
	if top := cls.Top(); top.Domain != "rockwell" {
		t.Errorf("Top() = %+v, want rockwell", top)
	}
}

func TestKBCoverage_SourceIDs(t *testing.T) {
	cov := &KBCoverage{Documents: []RetrievedDocument{
		{SourceID: "a"}, {SourceID: "b"}, {SourceID: "c"},
	}}
	ids := cov.SourceIDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("SourceIDs() = %v", ids)
	}

	var emptyCov KBCoverage
	if ids := emptyCov.SourceIDs(); len(ids) != 0 {
		t.Errorf("empty coverage SourceIDs() = %v, want empty", ids)
	}
}

func TestFromResult_NormalizesNilCitations(t *testing.T) {
	res := &AnswerResult{
		Response:   SpecialistResponse{Answer: "a", Citations: nil},
		Confidence: 0.5,
		Decision:   RouteDecision{Route: RouteGeneralistFallback, Specialist: DomainGeneralist},
	}
	resp := FromResult(res, "s1")
	if resp.Citations == nil {
		t.Error("citations must serialize as an empty array, not null")
	}
	if resp.Route != string(RouteGeneralistFallback) || resp.SessionID != "s1" {
		t.Errorf("FromResult() = %+v", resp)
	}
	if resp.GapRecorded {
		t.Error("GapRecorded must be false without a gap record")
	}
}

func TestGapPropertiesRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	rec := &GapRecord{
		ID:         "g1",
		QueryText:  "unmapped fault",
		Domain:     "fanuc",
		Tier:       TierThin,
		Confidence: 0.2,
		SessionID:  "s1",
		Timestamp:  now,
	}
	props := GapPropertiesFromRecord(rec)
	m := props.ToMap()

	if m["gap_id"] != "g1" || m["domain"] != "fanuc" || m["tier"] != "THIN" {
		t.Errorf("ToMap() = %v", m)
	}
	if m["timestamp"] != now.Unix() {
		t.Errorf("timestamp = %v, want %v", m["timestamp"], now.Unix())
	}
}
