// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the tunable thresholds for the advisor pipeline.
//
// All routing and scoring thresholds live in an immutable Snapshot. Each
// request reads the snapshot that was current when it entered the pipeline,
// so a reload mid-request can never produce a decision computed against two
// different threshold sets. Reloads happen on a controlled cadence via
// Store.Watch, never by mutating shared state.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

// Snapshot is one immutable set of pipeline thresholds.
//
// # Thread Safety
//
// A Snapshot is never mutated after creation. Share it freely.
type Snapshot struct {
	// DomainHighConfidence gates DIRECT_SPECIALIST routing.
	DomainHighConfidence float64 `json:"domain_high_confidence" validate:"gte=0,lte=1"`

	// DomainModerateConfidence gates SPECIALIST_WITH_ENRICHMENT routing.
	DomainModerateConfidence float64 `json:"domain_moderate_confidence" validate:"gte=0,lte=1"`

	// DomainTieEpsilon is the confidence gap under which two domains are
	// considered tied and broken by historical document count.
	DomainTieEpsilon float64 `json:"domain_tie_epsilon" validate:"gte=0,lte=1"`

	// TierStrong, TierModerate and TierThin are the aggregate score
	// boundaries of the coverage tiers. Scores below TierThin map to NONE.
	TierStrong   float64 `json:"tier_strong" validate:"gte=0,lte=1"`
	TierModerate float64 `json:"tier_moderate" validate:"gte=0,lte=1"`
	TierThin     float64 `json:"tier_thin" validate:"gte=0,lte=1"`

	// StrongMinDocs is the minimum number of documents above the
	// similarity floor required for the STRONG tier.
	StrongMinDocs int `json:"strong_min_docs" validate:"gte=1"`

	// SimilarityFloor is the minimum similarity a document must have to
	// count toward coverage.
	SimilarityFloor float64 `json:"similarity_floor" validate:"gte=0,lte=1"`

	// TopK caps the number of documents retrieved and carried downstream.
	TopK int `json:"top_k" validate:"gte=1,lte=50"`

	// GapConfidenceFloor is the scored confidence below which a THIN/NONE
	// outcome emits a gap record.
	GapConfidenceFloor float64 `json:"gap_confidence_floor" validate:"gte=0,lte=1"`

	// UncertaintyCeiling caps the confidence score when the specialist
	// self-reports uncertainty.
	UncertaintyCeiling float64 `json:"uncertainty_ceiling" validate:"gte=0,lte=1"`

	// MinConfidence is the score assigned on citation integrity violations.
	MinConfidence float64 `json:"min_confidence" validate:"gte=0,lte=1"`

	// RetrievalTimeout bounds the knowledge store call.
	RetrievalTimeout time.Duration `json:"retrieval_timeout_ms" validate:"gt=0"`

	// GenerationTimeout bounds one completion provider call. Deliberately
	// distinct from RetrievalTimeout; generation is the slow step.
	GenerationTimeout time.Duration `json:"generation_timeout_ms" validate:"gt=0"`

	// ProviderRetries is the number of retries after the first failed
	// provider call, before falling back to the generalist.
	ProviderRetries int `json:"provider_retries" validate:"gte=0,lte=5"`

	// RetryBackoff is the base backoff between provider retries.
	RetryBackoff time.Duration `json:"retry_backoff_ms" validate:"gt=0"`
}

// Default returns the snapshot used when no overrides are configured.
//
// The numeric values are product-tuning defaults, not canonical constants;
// deployments override them via environment or the threshold file.
func Default() *Snapshot {
	return &Snapshot{
		DomainHighConfidence:     0.70,
		DomainModerateConfidence: 0.40,
		DomainTieEpsilon:         0.05,
		TierStrong:               0.80,
		TierModerate:             0.55,
		TierThin:                 0.25,
		StrongMinDocs:            3,
		SimilarityFloor:          0.50,
		TopK:                     8,
		GapConfidenceFloor:       0.45,
		UncertaintyCeiling:       0.40,
		MinConfidence:            0.05,
		RetrievalTimeout:         5 * time.Second,
		GenerationTimeout:        45 * time.Second,
		ProviderRetries:          2,
		RetryBackoff:             500 * time.Millisecond,
	}
}

var validate = validator.New()

// Validate checks the snapshot's invariants, including the ordering of the
// tier boundaries. Returns a descriptive error on the first violation.
func (s *Snapshot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid advisor config: %w", err)
	}
	if !(s.TierThin < s.TierModerate && s.TierModerate < s.TierStrong) {
		return fmt.Errorf("tier thresholds must be strictly increasing: thin=%.2f moderate=%.2f strong=%.2f",
			s.TierThin, s.TierModerate, s.TierStrong)
	}
	if s.DomainModerateConfidence > s.DomainHighConfidence {
		return fmt.Errorf("domain moderate threshold %.2f exceeds high threshold %.2f",
			s.DomainModerateConfidence, s.DomainHighConfidence)
	}
	return nil
}

// FromEnv builds a snapshot from defaults plus ADVISOR_* environment
// overrides. Invalid values are logged and ignored rather than fatal, so a
// bad override degrades to the default instead of taking the service down.
func FromEnv() (*Snapshot, error) {
	s := Default()

	overrideFloat(&s.DomainHighConfidence, "ADVISOR_DOMAIN_HIGH_CONFIDENCE")
	overrideFloat(&s.DomainModerateConfidence, "ADVISOR_DOMAIN_MODERATE_CONFIDENCE")
	overrideFloat(&s.TierStrong, "ADVISOR_TIER_STRONG")
	overrideFloat(&s.TierModerate, "ADVISOR_TIER_MODERATE")
	overrideFloat(&s.TierThin, "ADVISOR_TIER_THIN")
	overrideFloat(&s.SimilarityFloor, "ADVISOR_SIMILARITY_FLOOR")
	overrideFloat(&s.GapConfidenceFloor, "ADVISOR_GAP_CONFIDENCE_FLOOR")
	overrideInt(&s.TopK, "ADVISOR_TOP_K")
	overrideInt(&s.StrongMinDocs, "ADVISOR_STRONG_MIN_DOCS")
	overrideInt(&s.ProviderRetries, "ADVISOR_PROVIDER_RETRIES")
	overrideDuration(&s.RetrievalTimeout, "ADVISOR_RETRIEVAL_TIMEOUT")
	overrideDuration(&s.GenerationTimeout, "ADVISOR_GENERATION_TIMEOUT")

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads a snapshot from a JSON threshold file. Fields omitted from
// the file keep their default values.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read threshold file: %w", err)
	}
	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse threshold file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func overrideFloat(dst *float64, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Ignoring invalid config override", "key", key, "value", raw, "error", err)
		return
	}
	*dst = v
}

func overrideInt(dst *int, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring invalid config override", "key", key, "value", raw, "error", err)
		return
	}
	*dst = v
}

func overrideDuration(dst *time.Duration, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Ignoring invalid config override", "key", key, "value", raw, "error", err)
		return
	}
	*dst = v
}

// =============================================================================
// Store
// =============================================================================

// Store hands out the current snapshot and supports live reload from a
// threshold file.
//
// # Thread Safety
//
// Store is safe for concurrent use. Current() is a single atomic load.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store serving the given snapshot.
func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.current.Store(s)
	return st
}

// Current returns the active snapshot. Callers must capture the returned
// pointer once per request and use it for the whole request.
func (st *Store) Current() *Snapshot {
	return st.current.Load()
}

// Replace atomically swaps in a new snapshot after validating it.
func (st *Store) Replace(s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	st.current.Store(s)
	return nil
}

// Watch reloads the threshold file whenever it changes, until ctx-style
// shutdown via the returned stop function. Reload failures keep the
// previous snapshot and log a warning; they never interrupt serving.
func (st *Store) Watch(path string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch threshold file %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, err := LoadFile(path)
				if err != nil {
					slog.Warn("Threshold file reload failed, keeping previous snapshot",
						"path", path, "error", err)
					continue
				}
				st.current.Store(next)
				slog.Info("Reloaded advisor thresholds", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Config watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
