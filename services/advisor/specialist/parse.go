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
	"log/slog"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

var citationPattern = regexp.MustCompile(`\[SOURCE:\s*([^\]]+?)\s*\]`)

// parseCompletion turns a raw completion into a SpecialistResponse and
// enforces citation integrity.
//
// # Description
//
// Extracts [SOURCE: id] citations in order of first appearance and checks
// each against the grounding set that was actually in the prompt. A
// citation to an unknown identifier is a contract violation: the answer is
// kept, the orphan citation is dropped, the response is flagged uncertain,
// and the violation is logged for the scorer to punish. Silent trust is
// not an option.
//
// The leading uncertainty marker, if present, is stripped and recorded as
// the specialist's self-reported uncertainty.
func parseCompletion(raw string, allowedSources []string) datatypes.SpecialistResponse {
	answer := strings.TrimSpace(raw)

	uncertain := false
	if strings.HasPrefix(answer, uncertainMarker) {
		uncertain = true
		answer = strings.TrimSpace(strings.TrimPrefix(answer, uncertainMarker))
	}

	allowed := make(map[string]struct{}, len(allowedSources))
	for _, id := range allowedSources {
		allowed[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	citations := make([]string, 0, 4)
	violated := false
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		id := strings.TrimSpace(match[1])
		if id == "" {
			continue
		}
		if _, ok := allowed[id]; !ok {
			violated = true
			slog.Warn("Citation integrity violation: answer cites a source not in context",
				"cited", id)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		citations = append(citations, id)
	}

	return datatypes.SpecialistResponse{
		Answer:            answer,
		Citations:         citations,
		Uncertain:         uncertain || violated,
		CitationViolation: violated,
	}
}
