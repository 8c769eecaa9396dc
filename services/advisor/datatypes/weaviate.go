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

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// Encapsulates the marshal/unmarshal pattern required to convert Weaviate's
// dynamic response (map[string]models.JSONObject) into a strongly-typed Go
// struct. The target type T must have json tags matching the expected
// response shape.
//
// # Inputs
//
//   - resp: The GraphQL response from the Weaviate client's Do() method.
//
// # Outputs
//
//   - *T: Pointer to the parsed struct.
//   - error: Non-nil if the response is nil or parsing fails.
//
// # Example
//
//	resp, err := client.GraphQL().Get().WithClassName("KnowledgeDoc").Do(ctx)
//	if err != nil { ... }
//	parsed, err := ParseGraphQLResponse[KnowledgeDocQueryResponse](resp)
//
// # Limitations
//
//   - Type mismatches produce zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// =============================================================================
// KnowledgeDoc query types
// =============================================================================

// KnowledgeDocQueryResponse represents the response from querying the
// KnowledgeDoc class.
type KnowledgeDocQueryResponse struct {
	Get struct {
		KnowledgeDoc []KnowledgeDocResult `json:"KnowledgeDoc"`
	} `json:"Get"`
}

// KnowledgeDocResult is a single knowledge document hit.
//
// Certainty is requested instead of distance because it is always in [0,1]
// regardless of the store's distance metric.
type KnowledgeDocResult struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	Vendor     string `json:"vendor"`
	Additional struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// =============================================================================
// KnowledgeGap write types
// =============================================================================

// KnowledgeGapProperties are the properties for creating a KnowledgeGap
// object. This is the only class the advisor writes to.
type KnowledgeGapProperties struct {
	GapID      string  `json:"gap_id"`
	QueryText  string  `json:"query_text"`
	Domain     string  `json:"domain"`
	Tier       string  `json:"tier"`
	Confidence float64 `json:"confidence"`
	SessionID  string  `json:"session_id"`
	Timestamp  int64   `json:"timestamp"`
}

// ToMap converts KnowledgeGapProperties to the map format required by the
// Weaviate client's WithProperties() method.
func (p *KnowledgeGapProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"gap_id":     p.GapID,
		"query_text": p.QueryText,
		"domain":     p.Domain,
		"tier":       p.Tier,
		"confidence": p.Confidence,
		"session_id": p.SessionID,
		"timestamp":  p.Timestamp,
	}
}

// GapPropertiesFromRecord builds the Weaviate property struct for a gap
// record.
func GapPropertiesFromRecord(rec *GapRecord) KnowledgeGapProperties {
	return KnowledgeGapProperties{
		GapID:      rec.ID,
		QueryText:  rec.QueryText,
		Domain:     rec.Domain,
		Tier:       string(rec.Tier),
		Confidence: rec.Confidence,
		SessionID:  rec.SessionID,
		Timestamp:  rec.Timestamp.Unix(),
	}
}
