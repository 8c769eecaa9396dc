// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gaps records queries the system could not confidently answer.
//
// Recording is fire-and-forget: the answer path enqueues a record onto a
// bounded channel and moves on, and a background goroutine persists the
// queue to the knowledge store. A persistence failure or a full queue loses
// the record and increments a counter; it never delays or fails the answer.
package gaps

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/observability"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

const (
	gapClassName = "KnowledgeGap"
	queueSize    = 256
	writeTimeout = 10 * time.Second
)

// Writer persists one gap record.
type Writer interface {
	Write(ctx context.Context, rec *datatypes.GapRecord) error
}

// WeaviateWriter writes gap records as KnowledgeGap objects.
type WeaviateWriter struct {
	client *weaviate.Client
}

// NewWeaviateWriter creates a writer backed by the given Weaviate client.
func NewWeaviateWriter(client *weaviate.Client) *WeaviateWriter {
	return &WeaviateWriter{client: client}
}

func (w *WeaviateWriter) Write(ctx context.Context, rec *datatypes.GapRecord) error {
	props := datatypes.GapPropertiesFromRecord(rec)
	_, err := w.client.Data().Creator().
		WithClassName(gapClassName).
		WithProperties(props.ToMap()).
		Do(ctx)
	return err
}

// Recorder queues gap records for asynchronous persistence.
//
// # Thread Safety
//
// Record may be called from any number of goroutines. Close must be called
// exactly once, after all Record calls have returned.
type Recorder struct {
	writer Writer
	queue  chan *datatypes.GapRecord
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewRecorder starts the recorder's background writer goroutine.
func NewRecorder(writer Writer) *Recorder {
	r := &Recorder{
		writer: writer,
		queue:  make(chan *datatypes.GapRecord, queueSize),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// ShouldRecord reports whether an answered query warrants a gap record:
// coverage was NONE or THIN and the final confidence fell below the gap
// floor. Safety overrides never produce gaps; the coverage there is
// irrelevant to the response.
func ShouldRecord(decision datatypes.RouteDecision, tier datatypes.CoverageTier,
	confidence, gapFloor float64) bool {

	if decision.Route == datatypes.RouteSafetyOverride {
		return false
	}
	if tier != datatypes.TierNone && tier != datatypes.TierThin {
		return false
	}
	return confidence < gapFloor
}

// Record builds and enqueues a gap record. It never blocks: when the queue
// is full the record is dropped and counted.
//
// # Outputs
//
//   - *datatypes.GapRecord: The enqueued record, or nil when dropped.
func (r *Recorder) Record(query *datatypes.Query, domain string,
	tier datatypes.CoverageTier, confidence float64) *datatypes.GapRecord {

	rec := &datatypes.GapRecord{
		ID:         uuid.NewString(),
		QueryText:  query.Text,
		Domain:     domain,
		Tier:       tier,
		Confidence: confidence,
		SessionID:  query.SessionID,
		Timestamp:  time.Now().UTC(),
	}

	select {
	case r.queue <- rec:
		observability.GapsRecorded.Inc()
		return rec
	default:
		observability.GapsDropped.Inc()
		slog.Warn("Gap queue full, dropping record", "query_id", query.ID, "domain", domain)
		return nil
	}
}

// Close stops accepting records, flushes the queue, and waits for the
// writer goroutine to finish.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
		r.wg.Wait()
	})
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := r.writer.Write(ctx, rec)
		cancel()
		if err != nil {
			observability.GapWriteFailures.Inc()
			slog.Warn("Failed to persist gap record", "gap_id", rec.ID, "error", err)
			continue
		}
		slog.Debug("Persisted gap record", "gap_id", rec.ID, "domain", rec.Domain, "tier", rec.Tier)
	}
}
