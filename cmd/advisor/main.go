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
	"context"
	"errors"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/classifier"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/config"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/coverage"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/gaps"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/routes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/specialist"
	"github.com/AleutianAI/AleutianAdvisor/services/llm"
	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "aleutian-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("advisor-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient connects to the knowledge store. Returns nil when the
// URL is unset or invalid: the service then runs in lightweight mode where
// every query sees NONE coverage and routes to the generalist.
func newWeaviateClient() *weaviate.Client {
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running in lightweight mode (generalist only).")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
			"url", weaviateURL, "error", err)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}
	return client
}

// noStoreRetriever is used in lightweight mode. Its permanent failure is
// exactly the "store unavailable" degradation the evaluator already handles.
type noStoreRetriever struct{}

func (noStoreRetriever) Search(context.Context, string, string, int) ([]datatypes.RetrievedDocument, error) {
	return nil, errors.New("knowledge store not configured")
}

func main() {
	port := os.Getenv("ADVISOR_PORT")
	if port == "" {
		port = "12220"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	// --- Thresholds ---
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("FATAL: invalid advisor configuration: %v", err)
	}
	cfgStore := config.NewStore(cfg)
	if path := os.Getenv("ADVISOR_THRESHOLD_FILE"); path != "" {
		if fileCfg, err := config.LoadFile(path); err != nil {
			slog.Warn("Threshold file unreadable at startup, using env/default thresholds",
				"path", path, "error", err)
		} else if err := cfgStore.Replace(fileCfg); err != nil {
			slog.Warn("Threshold file rejected at startup", "path", path, "error", err)
		}
		stop, err := cfgStore.Watch(path)
		if err != nil {
			slog.Warn("Could not watch threshold file, live reload disabled", "path", path, "error", err)
		} else {
			defer stop()
		}
	}

	// --- Knowledge store ---
	weaviateClient := newWeaviateClient()
	var retriever coverage.Retriever = noStoreRetriever{}
	if weaviateClient != nil {
		embedder, err := coverage.NewHTTPEmbedder()
		if err != nil {
			log.Fatalf("FATAL: could not configure the embedding provider: %v", err)
		}
		retriever = coverage.NewWeaviateRetriever(weaviateClient, embedder)
	}

	// --- Completion provider ---
	log.Println("Configuring the LLM Client")
	llmClient, err := llm.NewClientFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	llmClient = llm.NewRateLimitedClient(llmClient, 4, 8)

	// --- Pipeline ---
	cls := classifier.NewRegexClassifier(nil)
	slog.Info("Loaded domain lexicon", "domains", cls.Domains())

	var recorder *gaps.Recorder
	if weaviateClient != nil {
		recorder = gaps.NewRecorder(gaps.NewWeaviateWriter(weaviateClient))
		defer recorder.Close()
	}

	registry := specialist.NewRegistry(cls.Domains(), llmClient)
	slog.Info("Registered specialists", "specialists", registry.IDs())

	svc := advisor.NewService(
		cls,
		coverage.NewEvaluator(retriever),
		specialist.NewDispatcher(registry),
		recorder,
		cfgStore,
	)

	router := gin.Default()
	router.Use(otelgin.Middleware("advisor-service"))
	routes.SetupRoutes(router, svc, cls.Domains())

	log.Println("Starting the advisor server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
