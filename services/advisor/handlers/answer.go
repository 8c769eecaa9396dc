// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aleutian.advisor.handlers")

// HandleAnswer serves POST /v1/answer.
//
// The handler only translates between the wire shapes and the pipeline;
// every failure mode below the binding layer is absorbed by the pipeline
// and surfaces as a low-confidence or unable-to-answer response, so the
// only non-200 status here is a malformed request body.
func HandleAnswer(svc *advisor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAnswer")
		defer span.End()

		var req datatypes.AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			slog.Error("Failed to bind answer request JSON", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
			slog.Info("No session_id provided, creating a new one", "session_id", sessionID)
		}
		span.SetAttributes(attribute.String("session_id", sessionID))

		query := &datatypes.Query{
			Text:       req.Query,
			DomainHint: req.DomainHint,
			SessionID:  sessionID,
			PriorTurns: req.PriorTurns,
		}

		res := svc.Answer(ctx, query)
		c.JSON(http.StatusOK, datatypes.FromResult(&res, sessionID))
	}
}

// HealthCheck serves GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "aleutian-advisor"})
}

// HandleDomains serves GET /v1/domains: the specialist identifiers this
// deployment can route to.
func HandleDomains(domains []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"domains": domains})
	}
}
