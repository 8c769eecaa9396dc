// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides clients for the completion providers the advisor
// dispatches to. Providers are stateless between calls; every request
// carries its own context and timeout.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// GenerationParams tunes a single completion request. Nil fields use the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// NewClientFromEnv selects the backend from LLM_BACKEND ("ollama" or
// "openai", default ollama) and constructs it from its own environment.
func NewClientFromEnv() (LLMClient, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_BACKEND")))
	switch backend {
	case "", "ollama":
		return NewOllamaClient()
	case "openai":
		return NewOpenAIClient()
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND %q (want ollama or openai)", backend)
	}
}
