// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// AnswerRequest is the body of POST /v1/answer.
//
// The caller is already authorized; entitlement checks happen upstream.
type AnswerRequest struct {
	Query      string `json:"query" binding:"required"`
	DomainHint string `json:"domain_hint,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	PriorTurns []Turn `json:"prior_turns,omitempty"`
}

// AnswerResponse is the body returned by POST /v1/answer.
type AnswerResponse struct {
	Answer              string   `json:"answer"`
	Citations           []string `json:"citations"`
	Confidence          float64  `json:"confidence"`
	Route               string   `json:"route"`
	Specialist          string   `json:"specialist"`
	SessionID           string   `json:"session_id"`
	Uncertain           bool     `json:"uncertain"`
	SafetyWarningIssued bool     `json:"safety_warning_issued"`
	Unanswerable        bool     `json:"unanswerable,omitempty"`
	GapRecorded         bool     `json:"gap_recorded"`
}

// FromResult flattens an AnswerResult into the wire response.
func FromResult(res *AnswerResult, sessionID string) AnswerResponse {
	citations := res.Response.Citations
	if citations == nil {
		citations = []string{}
	}
	return AnswerResponse{
		Answer:              res.Response.Answer,
		Citations:           citations,
		Confidence:          res.Confidence,
		Route:               string(res.Decision.Route),
		Specialist:          res.Decision.Specialist,
		SessionID:           sessionID,
		Uncertain:           res.Response.Uncertain,
		SafetyWarningIssued: res.Response.SafetyWarningIssued,
		Unanswerable:        res.Response.Unanswerable,
		GapRecorded:         res.Gap != nil,
	}
}
