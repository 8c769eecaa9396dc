// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/classifier"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/coverage"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/specialist"
	"github.com/AleutianAI/AleutianAdvisor/services/llm"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticRetriever struct {
	docs []datatypes.RetrievedDocument
}

func (r *staticRetriever) Search(_ context.Context, _, _ string, _ int) ([]datatypes.RetrievedDocument, error) {
	return r.docs, nil
}

type staticLLM struct {
	completion string
}

func (l *staticLLM) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return l.completion, nil
}

func newTestRouter(completion string) *gin.Engine {
	cfg := config.Default()
	cfg.RetryBackoff = 1

	cls := classifier.NewRegexClassifier(nil)
	retriever := &staticRetriever{docs: []datatypes.RetrievedDocument{
		{SourceID: "kb-1", Content: "PowerFlex fault table", Similarity: 0.9, Domain: "rockwell"},
		{SourceID: "kb-2", Content: "Drive reset procedure", Similarity: 0.87, Domain: "rockwell"},
		{SourceID: "kb-3", Content: "Wiring checklist", Similarity: 0.85, Domain: "rockwell"},
	}}
	svc := advisor.NewService(
		cls,
		coverage.NewEvaluator(retriever),
		specialist.NewDispatcher(specialist.NewRegistry(cls.Domains(), &staticLLM{completion: completion})),
		nil, // no gap recorder in handler tests
		config.NewStore(cfg),
	)

	router := gin.New()
	router.GET("/health", HealthCheck)
	router.POST("/v1/answer", HandleAnswer(svc))
	router.GET("/v1/domains", HandleDomains(cls.Domains()))
	return router
}

func TestHandleAnswer_ReturnsAnswerWithSession(t *testing.T) {
	router := newTestRouter("Check the fault table [SOURCE: kb-1].")

	body, _ := json.Marshal(datatypes.AnswerRequest{Query: "Allen-Bradley PowerFlex 525 fault F070"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/answer", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Answer)
	assert.NotEmpty(t, resp.SessionID, "a session id must be generated when absent")
	assert.Equal(t, []string{"kb-1"}, resp.Citations)
	assert.Greater(t, resp.Confidence, 0.0)
}

func TestHandleAnswer_PreservesCallerSessionID(t *testing.T) {
	router := newTestRouter("ok")

	body, _ := json.Marshal(datatypes.AnswerRequest{Query: "siemens sinamics fault", SessionID: "session-42"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/answer", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-42", resp.SessionID)
}

func TestHandleAnswer_RejectsMissingQuery(t *testing.T) {
	router := newTestRouter("ok")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/answer", bytes.NewBufferString(`{"domain_hint":"rockwell"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAnswer_RejectsMalformedJSON(t *testing.T) {
	router := newTestRouter("ok")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/answer", bytes.NewBufferString(`{not json`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck_ReturnsOK(t *testing.T) {
	router := newTestRouter("ok")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestHandleDomains_ListsLexiconDomains(t *testing.T) {
	router := newTestRouter("ok")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/domains", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Domains []string `json:"domains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Contains(t, payload.Domains, "rockwell")
	assert.Contains(t, payload.Domains, "siemens")
}
