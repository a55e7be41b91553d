package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"exam-schedule-extractor/internal/config"
	"exam-schedule-extractor/internal/models"
	"exam-schedule-extractor/internal/services"
)

// LambdaResponse summarizes one invocation's processing
type LambdaResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	Documents      int      `json:"documents"`
	TotalEvents    int      `json:"total_events"`
	ProcessingTime int64    `json:"processing_time_ms"`
	Errors         []string `json:"errors,omitempty"`
}

// extractionRunner holds the services for one Lambda container
type extractionRunner struct {
	processor *services.DocumentProcessor
	artifacts *services.ArtifactStore
	cache     *services.ExtractionStore
}

// newExtractionRunner wires the pipeline from environment configuration.
// A missing model key is fatal here: a batch entry point with no model
// can do nothing useful.
func newExtractionRunner(ctx context.Context) (*extractionRunner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if !cfg.AIEnabled() {
		return nil, fmt.Errorf("extraction model not configured: MODEL_API_KEY is required")
	}

	model := services.NewModelClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelName)
	validator := services.NewEventValidator(cfg.ExpectedYearMin, cfg.ExpectedYearMax)
	converter := services.NewPopplerConverter(300)
	processor := services.NewDocumentProcessor(model, converter, validator, cfg.MinEventsBeforeTextFallback)

	artifacts, err := services.NewArtifactStore(ctx, cfg.ArtifactBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	var cache *services.ExtractionStore
	if cfg.ExtractionsTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		cache = services.NewExtractionStore(dynamodb.NewFromConfig(awsCfg), cfg.ExtractionsTable)
	}

	return &extractionRunner{
		processor: processor,
		artifacts: artifacts,
		cache:     cache,
	}, nil
}

// processDocument downloads one uploaded document, extracts its events
// and persists the result
func (r *extractionRunner) processDocument(ctx context.Context, key string) (int, error) {
	filename := filepath.Base(key)
	if !models.IsAllowedDocument(filename) {
		return 0, fmt.Errorf("unsupported document type: %s", filename)
	}

	data, err := r.artifacts.DownloadDocument(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", key, err)
	}

	tmp, err := os.CreateTemp("", "document-*."+models.FileExtension(filename))
	if err != nil {
		return 0, fmt.Errorf("failed to stage document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to stage document: %w", err)
	}
	tmp.Close()

	allEvents, err := r.processor.ExtractAllEvents(ctx, tmp.Name(), filename)
	if err != nil {
		return 0, err
	}

	extractionID := models.GenerateExtractionID()
	output := &models.ExtractionOutput{
		ExtractionID:   extractionID,
		Filename:       filename,
		TotalExtracted: len(allEvents),
		AllEvents:      allEvents,
	}

	if _, err := r.artifacts.UploadExtractionOutput(ctx, output); err != nil {
		log.Printf("WARNING: failed to upload extraction artifact for %s: %v", key, err)
	}
	if r.cache != nil {
		if err := r.cache.PutExtraction(ctx, extractionID, filename, allEvents); err != nil {
			log.Printf("WARNING: failed to cache extraction for %s: %v", key, err)
		}
	}

	log.Printf("Processed %s: %d events (extraction %s)", key, len(allEvents), extractionID)
	return len(allEvents), nil
}

// HandleS3Event processes every document uploaded in the triggering
// batch. One failing document does not abort the rest.
func HandleS3Event(ctx context.Context, event events.S3Event) (LambdaResponse, error) {
	start := time.Now()

	runner, err := newExtractionRunner(ctx)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return LambdaResponse{
			Success:        false,
			Message:        err.Error(),
			ProcessingTime: time.Since(start).Milliseconds(),
		}, err
	}

	var (
		totalEvents int
		processed   int
		errs        []string
	)

	for _, record := range event.Records {
		key := record.S3.Object.Key
		count, err := runner.processDocument(ctx, key)
		if err != nil {
			log.Printf("ERROR: processing %s failed: %v", key, err)
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		processed++
		totalEvents += count
	}

	services.GetExtractionMetrics().LogMetricsSummary()

	return LambdaResponse{
		Success:        processed > 0 || len(event.Records) == 0,
		Message:        fmt.Sprintf("Processed %d/%d documents, %d events", processed, len(event.Records), totalEvents),
		Documents:      processed,
		TotalEvents:    totalEvents,
		ProcessingTime: time.Since(start).Milliseconds(),
		Errors:         errs,
	}, nil
}

func main() {
	lambda.Start(HandleS3Event)
}
