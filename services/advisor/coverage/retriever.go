// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// Retriever issues one semantic search against the knowledge store.
//
// The store is an external, read-only dependency. How documents got there
// (crawling, chunking, embedding) is out of scope.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Retriever interface {
	// Search returns up to topK documents ordered by similarity, filtered
	// by vendor domain when domainFilter is non-empty.
	Search(ctx context.Context, queryText, domainFilter string, topK int) ([]datatypes.RetrievedDocument, error)
}

// WeaviateRetriever implements Retriever against the KnowledgeDoc class.
//
// # Description
//
// Embeds the query via the embedding service, then runs a nearVector
// search. Certainty is requested instead of distance because it is always
// in [0,1] regardless of the store's distance metric.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying Weaviate client pools
// connections.
type WeaviateRetriever struct {
	client   *weaviate.Client
	embedder EmbeddingProvider
}

// NewWeaviateRetriever creates a retriever over the given client and
// embedding provider.
func NewWeaviateRetriever(client *weaviate.Client, embedder EmbeddingProvider) *WeaviateRetriever {
	return &WeaviateRetriever{client: client, embedder: embedder}
}

// Search implements Retriever.
func (r *WeaviateRetriever) Search(ctx context.Context, queryText, domainFilter string, topK int) ([]datatypes.RetrievedDocument, error) {
	ctx, span := tracer.Start(ctx, "WeaviateRetriever.Search")
	defer span.End()

	vector, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	nearVector := r.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "vendor"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	query := r.client.GraphQL().Get().
		WithClassName("KnowledgeDoc").
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK)

	if domainFilter != "" {
		vendorFilter := filters.Where().
			WithPath([]string{"vendor"}).
			WithOperator(filters.Equal).
			WithValueString(domainFilter)
		query = query.WithWhere(vendorFilter)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.KnowledgeDocQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	docs := make([]datatypes.RetrievedDocument, 0, len(parsed.Get.KnowledgeDoc))
	for _, hit := range parsed.Get.KnowledgeDoc {
		sim := 0.0
		if hit.Additional.Certainty != nil {
			sim = float64(*hit.Additional.Certainty)
		}
		sourceID := hit.Source
		if sourceID == "" {
			sourceID = hit.Additional.ID
		}
		docs = append(docs, datatypes.RetrievedDocument{
			SourceID:   sourceID,
			Content:    hit.Content,
			Similarity: sim,
			Domain:     hit.Vendor,
		})
	}

	slog.Debug("Knowledge store search complete",
		"hits", len(docs), "domain_filter", domainFilter, "top_k", topK)
	return docs, nil
}
