package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"exam-schedule-extractor/internal/config"
	"exam-schedule-extractor/internal/models"
	"exam-schedule-extractor/internal/services"
)

const serverVersion = "2.0.0"

// server bundles the services behind the HTTP handlers. Everything is
// constructed once in main and passed in; no package-level clients.
type server struct {
	cfg       *config.Config
	processor *services.DocumentProcessor
	filter    services.EventFilter
	artifacts *services.ArtifactStore
	cache     *services.ExtractionStore
	aiEnabled bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	srv := &server{cfg: cfg, aiEnabled: cfg.AIEnabled()}

	var model *services.ModelClient
	if cfg.AIEnabled() {
		model = services.NewModelClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelName)
		log.Printf("Extraction model initialized: %s", model.GetModel())
	} else {
		log.Printf("ERROR: MODEL_API_KEY not set, AI extraction will not work")
	}

	validator := services.NewEventValidator(cfg.ExpectedYearMin, cfg.ExpectedYearMax)
	converter := services.NewPopplerConverter(300)

	var extractionClient services.ExtractionClient
	if model != nil {
		extractionClient = model
	}
	srv.processor = services.NewDocumentProcessor(extractionClient, converter, validator, cfg.MinEventsBeforeTextFallback)

	// AI-first filtering with the deterministic matcher as fallback; the
	// fallback alone when no model is configured
	localFilter := services.NewLocalEventFilter()
	if model != nil {
		srv.filter = services.NewFallbackEventFilter(services.NewAIEventFilter(model), localFilter)
	} else {
		srv.filter = localFilter
	}

	if cfg.ArtifactBucket != "" {
		artifacts, err := services.NewArtifactStore(context.Background(), cfg.ArtifactBucket)
		if err != nil {
			log.Printf("WARNING: artifact store unavailable: %v", err)
		} else {
			srv.artifacts = artifacts
		}
	}

	if cfg.ExtractionsTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Printf("WARNING: extraction cache unavailable: %v", err)
		} else {
			srv.cache = services.NewExtractionStore(dynamodb.NewFromConfig(awsCfg), cfg.ExtractionsTable)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/extract-events", srv.handleExtractEvents)
	mux.HandleFunc("/extract-all-events", srv.handleExtractAllEvents)
	mux.HandleFunc("/filter-events", srv.handleFilterEvents)
	mux.HandleFunc("/metrics", srv.handleMetrics)
	mux.HandleFunc("/", srv.handleRoot)

	log.Printf("Exam schedule extractor listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// handleHealth reports service readiness
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	message := "Ready for event extraction"
	if !s.aiEnabled {
		status = "degraded"
		message = "AI model not configured"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"ai_enabled": s.aiEnabled,
		"timestamp":  time.Now().Format(time.RFC3339),
		"version":    serverVersion,
		"message":    message,
	})
}

// handleExtractEvents runs the full two-stage pipeline: extract all
// events from the uploaded document, then filter by the student criteria.
func (s *server) handleExtractEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.aiEnabled {
		writeError(w, http.StatusServiceUnavailable, "AI model not configured. Set MODEL_API_KEY.")
		return
	}

	filePath, filename, cleanup, err := s.receiveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	criteria := models.FilterCriteria{
		MajorLevel: r.FormValue("major_level"),
		OfferedTo:  r.FormValue("offered_to"),
	}

	log.Printf("Processing file: %s", filename)
	log.Printf("User filters - Level: %s, Major: %s", criteria.MajorLevel, criteria.OfferedTo)

	allEvents, err := s.processor.ExtractAllEvents(r.Context(), filePath, filename)
	if err != nil {
		log.Printf("ERROR: processing %s failed: %v", filename, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing file: %v", err))
		return
	}

	filteredEvents, err := s.filter.FilterEvents(r.Context(), allEvents, criteria)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error filtering events: %v", err))
		return
	}
	services.GetExtractionMetrics().RecordFilter(len(filteredEvents))

	extractionID := models.GenerateExtractionID()
	s.persistExtraction(r.Context(), &models.ExtractionOutput{
		ExtractionID:   extractionID,
		Filename:       filename,
		Filters:        criteria,
		TotalExtracted: len(allEvents),
		AfterFilter:    len(filteredEvents),
		AllEvents:      allEvents,
		FilteredEvents: filteredEvents,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"events":             filteredEvents,
		"total_extracted":    len(allEvents),
		"total_after_filter": len(filteredEvents),
		"filters_applied":    criteria,
		"extraction_id":      extractionID,
		"ai_enabled":         true,
	})
}

// handleExtractAllEvents runs Stage 1 only and reports the filters the
// client could apply afterwards
func (s *server) handleExtractAllEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.aiEnabled {
		writeError(w, http.StatusServiceUnavailable, "AI model not configured")
		return
	}

	filePath, filename, cleanup, err := s.receiveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	allEvents, err := s.processor.ExtractAllEvents(r.Context(), filePath, filename)
	if err != nil {
		log.Printf("ERROR: processing %s failed: %v", filename, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	extractionID := models.GenerateExtractionID()
	s.persistExtraction(r.Context(), &models.ExtractionOutput{
		ExtractionID:   extractionID,
		Filename:       filename,
		TotalExtracted: len(allEvents),
		AllEvents:      allEvents,
	})

	available := models.CollectAvailableFilters(allEvents)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"events":           allEvents,
		"total_events":     len(allEvents),
		"available_majors": available.Majors,
		"available_levels": available.Levels,
		"extraction_id":    extractionID,
		"ai_enabled":       true,
	})
}

// filterRequest is the /filter-events payload. Events may be supplied
// inline or referenced by a cached extraction ID.
type filterRequest struct {
	Events       []models.Event `json:"events"`
	ExtractionID string         `json:"extraction_id"`
	MajorLevel   string         `json:"major_level"`
	OfferedTo    string         `json:"offered_to"`
}

// handleFilterEvents filters pre-extracted events by criteria
func (s *server) handleFilterEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	events := req.Events
	if len(events) == 0 && req.ExtractionID != "" {
		if s.cache == nil {
			writeError(w, http.StatusBadRequest, "extraction cache not configured")
			return
		}
		record, err := s.cache.GetExtraction(r.Context(), req.ExtractionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "extraction not found or expired")
			return
		}
		events = record.Events
	}

	criteria := models.FilterCriteria{MajorLevel: req.MajorLevel, OfferedTo: req.OfferedTo}
	filtered, err := s.filter.FilterEvents(r.Context(), events, criteria)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	services.GetExtractionMetrics().RecordFilter(len(filtered))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"events":         filtered,
		"original_count": len(events),
		"filtered_count": len(filtered),
	})
}

// handleMetrics exposes the process extraction counters
func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, services.GetExtractionMetrics().Snapshot())
}

// handleRoot describes the API
func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Exam Schedule Extractor API",
		"version": serverVersion,
		"features": []string{
			"AI-powered table extraction",
			"PDF page and text extraction",
			"Two-stage extract & filter approach",
			"Strict level/major filtering with AI fallback",
			"Multi-page document support",
		},
		"endpoints": map[string]string{
			"health":         "GET /health",
			"extract_events": "POST /extract-events",
			"extract_all":    "POST /extract-all-events",
			"filter":         "POST /filter-events",
			"metrics":        "GET /metrics",
		},
	})
}

// receiveUpload validates and stages the multipart upload into a temp
// file. The returned cleanup removes it.
func (s *server) receiveUpload(r *http.Request) (string, string, func(), error) {
	if err := r.ParseMultipartForm(models.MaxUploadSize); err != nil {
		return "", "", nil, fmt.Errorf("invalid multipart form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, fmt.Errorf("no file selected")
	}
	defer file.Close()

	if header.Filename == "" {
		return "", "", nil, fmt.Errorf("no file selected")
	}
	if !models.IsAllowedDocument(header.Filename) {
		return "", "", nil, fmt.Errorf("file type not allowed: %s", header.Filename)
	}
	if header.Size > models.MaxUploadSize {
		return "", "", nil, fmt.Errorf("file too large, maximum %dMB", models.MaxUploadSize/1024/1024)
	}

	tmp, err := os.CreateTemp("", "upload-*."+models.FileExtension(header.Filename))
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to stage upload: %v", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", nil, fmt.Errorf("failed to stage upload: %v", err)
	}
	tmp.Close()

	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil {
			log.Printf("WARNING: failed to remove staged upload: %v", err)
		}
	}
	return tmp.Name(), header.Filename, cleanup, nil
}

// persistExtraction stores the debug artifact and cache record. Both are
// best-effort; failures are logged and ignored.
func (s *server) persistExtraction(ctx context.Context, output *models.ExtractionOutput) {
	if s.artifacts != nil {
		if _, err := s.artifacts.UploadExtractionOutput(ctx, output); err != nil {
			log.Printf("WARNING: failed to upload extraction artifact: %v", err)
		}
		if err := s.artifacts.UploadLastExtraction(ctx, output); err != nil {
			log.Printf("WARNING: failed to upload last extraction artifact: %v", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.PutExtraction(ctx, output.ExtractionID, output.Filename, output.AllEvents); err != nil {
			log.Printf("WARNING: failed to cache extraction: %v", err)
		}
	}
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("WARNING: failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"detail":  detail,
	})
}
