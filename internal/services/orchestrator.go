package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"exam-schedule-extractor/internal/models"
)

// ExtractionClient is the model call surface the processor depends on.
// ModelClient implements it; tests substitute a stub.
type ExtractionClient interface {
	ExtractFromImage(ctx context.Context, imagePath string) (string, error)
	ExtractFromText(ctx context.Context, text string) (string, error)
}

// Text extraction below this many characters is treated as an empty
// document (scanned PDFs usually have no embedded text at all)
const minUsableTextLength = 100

// DocumentProcessor runs Stage 1 over one document: extract every exam
// row, normalize, deduplicate across pages, validate. Filtering is
// Stage 2 and belongs to the EventFilter implementations.
type DocumentProcessor struct {
	model     ExtractionClient
	converter DocumentConverter
	validator *EventValidator

	// Minimum events before the PDF text second pass is skipped
	minEventsBeforeTextFallback int
}

// NewDocumentProcessor creates a processor. The model client is a hard
// precondition: extraction without it is a setup error, surfaced on the
// first call rather than retried.
func NewDocumentProcessor(model ExtractionClient, converter DocumentConverter, validator *EventValidator, minEventsBeforeTextFallback int) *DocumentProcessor {
	if minEventsBeforeTextFallback <= 0 {
		minEventsBeforeTextFallback = 5
	}
	return &DocumentProcessor{
		model:                       model,
		converter:                   converter,
		validator:                   validator,
		minEventsBeforeTextFallback: minEventsBeforeTextFallback,
	}
}

// ExtractAllEvents extracts every exam event from the document at
// filePath. PDFs are processed page-by-page as images with a whole-
// document text pass when image extraction finds too few events; plain
// images get a single extraction call.
func (p *DocumentProcessor) ExtractAllEvents(ctx context.Context, filePath, filename string) ([]models.Event, error) {
	if p.model == nil {
		return nil, fmt.Errorf("extraction model not configured")
	}

	accumulator := NewEventAccumulator()

	if models.IsPDF(filename) {
		if err := p.extractFromPDF(ctx, filePath, accumulator); err != nil {
			return nil, err
		}
	} else {
		log.Printf("Processing image file: %s", filename)
		p.extractPage(ctx, filePath, accumulator)
	}

	events := p.validator.Validate(accumulator.Events())

	GetExtractionMetrics().RecordDocument(len(events))
	log.Printf("Stage 1 complete: extracted %d total events from %s", len(events), filename)

	return events, nil
}

// extractFromPDF runs the per-page image pass and, when it yields too few
// events, the whole-document text second pass. Both feed the same
// accumulator, so first-seen rows win across passes too.
func (p *DocumentProcessor) extractFromPDF(ctx context.Context, filePath string, accumulator *EventAccumulator) error {
	log.Printf("Processing PDF file...")

	pagesDir, err := os.MkdirTemp("", "exam-pages-")
	if err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}
	defer os.RemoveAll(pagesDir)

	pages, err := p.converter.RenderPages(ctx, filePath, pagesDir)
	if err != nil {
		// Rendering failure is not fatal; the text pass may still work
		log.Printf("WARNING: failed to render PDF pages: %v", err)
	}

	for i, pagePath := range pages {
		log.Printf("Processing PDF page %d/%d as image...", i+1, len(pages))
		p.extractPage(ctx, pagePath, accumulator)
	}

	if accumulator.Count() < p.minEventsBeforeTextFallback {
		log.Printf("Only %d events after image pass, trying text extraction as fallback...", accumulator.Count())
		p.extractFromText(ctx, filePath, accumulator)
	}

	return nil
}

// extractPage runs one image extraction call and accumulates its rows.
// A failed page is logged and skipped; it never aborts the remaining
// pages.
func (p *DocumentProcessor) extractPage(ctx context.Context, imagePath string, accumulator *EventAccumulator) {
	response, err := p.model.ExtractFromImage(ctx, imagePath)
	if err != nil {
		log.Printf("WARNING: page extraction failed for %s: %v", imagePath, err)
		GetExtractionMetrics().RecordPage(false)
		return
	}

	rows := ParseModelResponse(response)
	kept := accumulator.AddAll(NormalizeRows(rows))

	GetExtractionMetrics().RecordPage(true)
	log.Printf("Page yielded %d rows, %d kept after dedup", len(rows), kept)
}

// extractFromText runs the whole-document text pass
func (p *DocumentProcessor) extractFromText(ctx context.Context, filePath string, accumulator *EventAccumulator) {
	text, err := p.converter.ExtractText(ctx, filePath)
	if err != nil {
		log.Printf("WARNING: PDF text extraction failed: %v", err)
		return
	}

	if len(text) <= minUsableTextLength {
		log.Printf("PDF text too short (%d chars), skipping text pass", len(text))
		return
	}

	log.Printf("Extracted %d characters of text from PDF", len(text))
	GetExtractionMetrics().RecordTextFallback()

	response, err := p.model.ExtractFromText(ctx, text)
	if err != nil {
		log.Printf("WARNING: text extraction failed: %v", err)
		return
	}

	rows := ParseModelResponse(response)
	kept := accumulator.AddAll(NormalizeRows(rows))
	log.Printf("Text pass yielded %d rows, %d kept after dedup", len(rows), kept)
}
