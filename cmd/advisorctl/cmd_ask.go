// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/spf13/cobra"
)

var (
	askDomainHint string
	askSessionID  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the advisor an equipment support question",
	Args:  cobra.MinimumNArgs(1),
	Run:   runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askDomainHint, "domain", "", "Optional vendor domain hint (e.g. rockwell, siemens)")
	askCmd.Flags().StringVar(&askSessionID, "session", "", "Session id to continue a conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	reqBody, err := json.Marshal(datatypes.AnswerRequest{
		Query:      question,
		DomainHint: askDomainHint,
		SessionID:  askSessionID,
	})
	if err != nil {
		log.Fatalf("Could not build request: %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(getAdvisorBaseURL()+"/v1/answer", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		log.Fatalf("Advisor error, status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var answer datatypes.AnswerResponse
	if err := json.Unmarshal(bodyBytes, &answer); err != nil {
		log.Fatalf("Could not parse response: %v", err)
	}

	fmt.Println(answer.Answer)
	fmt.Println()
	if len(answer.Citations) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(answer.Citations, ", "))
	}
	fmt.Printf("Confidence: %.2f  Route: %s  Specialist: %s\n",
		answer.Confidence, answer.Route, answer.Specialist)
	fmt.Printf("Session: %s\n", answer.SessionID)
	if answer.GapRecorded {
		fmt.Println("Note: this question was logged as a knowledge gap.")
	}
}
