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
	"log"
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianAdvisor/pkg/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisorctl",
	Short: "Command line client for the Aleutian Advisor service",
}

// getAdvisorBaseURL resolves the service endpoint. Flag wins over env.
func getAdvisorBaseURL() string {
	if advisorURL != "" {
		return advisorURL
	}
	if env := os.Getenv("ADVISOR_URL"); env != "" {
		return env
	}
	return "http://localhost:12220"
}

var advisorURL string

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  os.Getenv("ADVISOR_LOG_DIR"),
		Service: "advisorctl",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	rootCmd.PersistentFlags().StringVar(&advisorURL, "url", "", "Advisor service base URL (default $ADVISOR_URL or http://localhost:12220)")
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
