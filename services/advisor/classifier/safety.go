// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import "regexp"

// safetyLexicon lists hazard/bypass/override phrasings that must route to
// the safety responder regardless of vendor domain or coverage.
//
// The list is curated to over-trigger. An unnecessary safety response costs
// one cautious answer; a missed hazard request can cost a hand. Patterns
// are grouped by intent for maintainability.
var safetyLexicon = []string{
	// Defeating protective devices
	`\bbypass(ing)?\b.*\b(interlock|light curtain|guard|e-?stop|safety)`,
	`\b(disable|disabling|defeat|defeating)\b.*\b(interlock|light curtain|guard|e-?stop|safety relay|safety circuit)`,
	`\b(jumper|jump out|wire around|cheat)\b.*\b(interlock|safety|guard|door switch)`,
	`\bremove\b.*\b(guard|light curtain|safety fence|barrier)`,
	`\boverride\b.*\b(safety|interlock|e-?stop|torque limit|speed limit)`,

	// Working on live equipment
	`\b(work|working|troubleshoot)\b.*\b(live|energized)\b.*\b(panel|cabinet|circuit|bus)`,
	`\bwithout\b.*\block\s?out|tag\s?out|loto\b`,
	`\bskip\b.*\b(lockout|tagout|loto)`,

	// Exceeding rated limits
	`\b(exceed|raise|increase)\b.*\b(rated|maximum|max)\b.*\b(pressure|current|torque|speed)`,
	`\b(exceed|raise|increase)\b.*\b(pressure|current|torque|speed)\b.*\b(rated|maximum|max)`,
	`\bdisable\b.*\b(overload|overcurrent|thermal)\b.*\b(protection|trip)`,
}

type safetyPattern struct {
	raw string
	re  *regexp.Regexp
}

func compiledSafetyPatterns() []safetyPattern {
	out := make([]safetyPattern, 0, len(safetyLexicon))
	for _, p := range safetyLexicon {
		out = append(out, safetyPattern{raw: p, re: regexp.MustCompile("(?i)" + p)})
	}
	return out
}

// matchSafety checks the query against the safety lexicon. Returns the raw
// pattern that matched so the audit log can show why a query was escalated.
func (c *RegexClassifier) matchSafety(text string) (bool, string) {
	if text == "" {
		return false, ""
	}
	for _, p := range c.safety {
		if p.re.MatchString(text) {
			return true, p.raw
		}
	}
	return false, ""
}
