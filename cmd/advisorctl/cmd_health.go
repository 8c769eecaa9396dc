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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the advisor service is up",
	Run:   runHealth,
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the vendor domains this advisor can route to",
	Run:   runDomains,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(domainsCmd)
}

func runHealth(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(getAdvisorBaseURL() + "/health")
	if err != nil {
		log.Fatalf("Advisor unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("Advisor unhealthy, status %d: %s", resp.StatusCode, string(body))
	}
	fmt.Println("Advisor is healthy.")
}

func runDomains(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(getAdvisorBaseURL() + "/v1/domains")
	if err != nil {
		log.Fatalf("Advisor unreachable: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Advisor error, status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var payload struct {
		Domains []string `json:"domains"`
	}
	if err := json.Unmarshal(bodyBytes, &payload); err != nil {
		log.Fatalf("Could not parse response: %v", err)
	}
	fmt.Printf("Domains: %s\n", strings.Join(payload.Domains, ", "))
}
