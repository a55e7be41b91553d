package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubModel replays canned responses keyed by image path, with a single
// response for the text pass
type stubModel struct {
	pageResponses map[string]string
	pageErrors    map[string]error
	textResponse  string
	textErr       error

	imageCalls []string
	textCalls  int
}

func (m *stubModel) ExtractFromImage(_ context.Context, imagePath string) (string, error) {
	m.imageCalls = append(m.imageCalls, imagePath)
	if err, ok := m.pageErrors[imagePath]; ok {
		return "", err
	}
	return m.pageResponses[imagePath], nil
}

func (m *stubModel) ExtractFromText(_ context.Context, _ string) (string, error) {
	m.textCalls++
	return m.textResponse, m.textErr
}

// stubConverter returns fixed page paths and document text without
// touching poppler
type stubConverter struct {
	pages    []string
	pagesErr error
	text     string
	textErr  error
}

func (c *stubConverter) RenderPages(_ context.Context, _, _ string) ([]string, error) {
	return c.pages, c.pagesErr
}

func (c *stubConverter) ExtractText(_ context.Context, _ string) (string, error) {
	return c.text, c.textErr
}

func testValidator() *EventValidator {
	return NewEventValidator(2025, 2026)
}

// TestExtractAllEventsImage tests the single-call image path
func TestExtractAllEventsImage(t *testing.T) {
	model := &stubModel{
		pageResponses: map[string]string{
			"/tmp/schedule.png": `[{"Course Code": "CIS308", "Date": "23/12/2025", "Time": "9:00 to 11:30"}]`,
		},
	}
	processor := NewDocumentProcessor(model, &stubConverter{}, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.png", "schedule.png")
	if err != nil {
		t.Fatalf("ExtractAllEvents failed: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].CourseCode != "CIS308" {
		t.Errorf("Expected CIS308, got %s", events[0].CourseCode)
	}
	if events[0].Date != "2025-12-23" {
		t.Errorf("Expected normalized ISO date, got %s", events[0].Date)
	}
	if len(model.imageCalls) != 1 {
		t.Errorf("Expected exactly 1 image call, got %d", len(model.imageCalls))
	}
	if model.textCalls != 0 {
		t.Errorf("Expected no text pass for an image file, got %d calls", model.textCalls)
	}
}

// TestExtractAllEventsPDFPages tests the page loop with an overlapping
// row across pages
func TestExtractAllEventsPDFPages(t *testing.T) {
	model := &stubModel{
		pageResponses: map[string]string{
			"page-1.png": `[
				{"Course Code": "CIS308", "Date": "23/12/2025"},
				{"Course Code": "MTH101", "Date": "24/12/2025"},
				{"Course Code": "PHY201", "Date": "25/12/2025"}
			]`,
			"page-2.png": `[
				{"Course Code": "PHY201", "Date": "25/12/2025"},
				{"Course Code": "CHM110", "Date": "26/12/2025"},
				{"Course Code": "BIO120", "Date": "27/12/2025"}
			]`,
		},
	}
	converter := &stubConverter{pages: []string{"page-1.png", "page-2.png"}}
	processor := NewDocumentProcessor(model, converter, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.pdf", "schedule.pdf")
	if err != nil {
		t.Fatalf("ExtractAllEvents failed: %v", err)
	}

	if len(events) != 5 {
		t.Fatalf("Expected 5 events after cross-page dedup, got %d", len(events))
	}
	if len(model.imageCalls) != 2 {
		t.Errorf("Expected 2 page calls, got %d", len(model.imageCalls))
	}
	// 5 events meets the threshold, so no text pass
	if model.textCalls != 0 {
		t.Errorf("Expected no text fallback at threshold, got %d calls", model.textCalls)
	}
}

// TestExtractAllEventsTextFallback tests the whole-document text pass
// when the image pass finds too few events
func TestExtractAllEventsTextFallback(t *testing.T) {
	model := &stubModel{
		pageResponses: map[string]string{
			"page-1.png": `[{"Course Code": "CIS308", "Date": "23/12/2025"}]`,
		},
		textResponse: `[
			{"Course Code": "CIS308", "Date": "23/12/2025"},
			{"Course Code": "MTH101", "Date": "24/12/2025"}
		]`,
	}
	converter := &stubConverter{
		pages: []string{"page-1.png"},
		text:  strings.Repeat("EXAM SCHEDULE ", 20),
	}
	processor := NewDocumentProcessor(model, converter, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.pdf", "schedule.pdf")
	if err != nil {
		t.Fatalf("ExtractAllEvents failed: %v", err)
	}

	if model.textCalls != 1 {
		t.Fatalf("Expected text fallback to run once, got %d calls", model.textCalls)
	}
	// CIS308 from the image pass wins; MTH101 arrives via the text pass
	if len(events) != 2 {
		t.Fatalf("Expected 2 events after merging passes, got %d", len(events))
	}
	if events[0].CourseCode != "CIS308" || events[1].CourseCode != "MTH101" {
		t.Errorf("Expected [CIS308 MTH101], got %v", events)
	}
}

// TestExtractAllEventsShortTextSkipsFallback tests that a near-empty text
// layer does not trigger a wasted model call
func TestExtractAllEventsShortTextSkipsFallback(t *testing.T) {
	model := &stubModel{
		pageResponses: map[string]string{
			"page-1.png": `[{"Course Code": "CIS308", "Date": "23/12/2025"}]`,
		},
	}
	converter := &stubConverter{
		pages: []string{"page-1.png"},
		text:  "scanned", // no usable text layer
	}
	processor := NewDocumentProcessor(model, converter, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.pdf", "schedule.pdf")
	if err != nil {
		t.Fatalf("ExtractAllEvents failed: %v", err)
	}

	if model.textCalls != 0 {
		t.Errorf("Expected short text to skip the model call, got %d calls", model.textCalls)
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 event from the image pass, got %d", len(events))
	}
}

// TestExtractAllEventsPageFailureSkipped tests that one failing page does
// not abort the rest of the document
func TestExtractAllEventsPageFailureSkipped(t *testing.T) {
	model := &stubModel{
		pageResponses: map[string]string{
			"page-2.png": `[
				{"Course Code": "CIS308", "Date": "23/12/2025"},
				{"Course Code": "MTH101", "Date": "24/12/2025"},
				{"Course Code": "PHY201", "Date": "25/12/2025"},
				{"Course Code": "CHM110", "Date": "26/12/2025"},
				{"Course Code": "BIO120", "Date": "27/12/2025"}
			]`,
		},
		pageErrors: map[string]error{
			"page-1.png": errors.New("model timeout"),
		},
	}
	converter := &stubConverter{pages: []string{"page-1.png", "page-2.png"}}
	processor := NewDocumentProcessor(model, converter, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.pdf", "schedule.pdf")
	if err != nil {
		t.Fatalf("Expected page failure to be absorbed, got %v", err)
	}
	if len(events) != 5 {
		t.Errorf("Expected 5 events from the surviving page, got %d", len(events))
	}
}

// TestExtractAllEventsRenderFailureFallsBackToText tests that a document
// whose pages cannot render still gets the text pass
func TestExtractAllEventsRenderFailureFallsBackToText(t *testing.T) {
	model := &stubModel{
		textResponse: `[{"Course Code": "CIS308", "Date": "23/12/2025"}]`,
	}
	converter := &stubConverter{
		pagesErr: errors.New("pdftoppm: command not found"),
		text:     strings.Repeat("FINAL EXAMINATION TIMETABLE ", 10),
	}
	processor := NewDocumentProcessor(model, converter, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.pdf", "schedule.pdf")
	if err != nil {
		t.Fatalf("Expected render failure to be absorbed, got %v", err)
	}
	if model.textCalls != 1 {
		t.Errorf("Expected text pass after render failure, got %d calls", model.textCalls)
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 event from the text pass, got %d", len(events))
	}
}

// TestExtractAllEventsNoModel tests the unconfigured-model error
func TestExtractAllEventsNoModel(t *testing.T) {
	processor := NewDocumentProcessor(nil, &stubConverter{}, testValidator(), 5)

	_, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.pdf", "schedule.pdf")
	if err == nil {
		t.Fatal("Expected error when no extraction model is configured")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

// TestExtractAllEventsValidatesOutput tests that normalization noise is
// dropped before the result is returned
func TestExtractAllEventsValidatesOutput(t *testing.T) {
	model := &stubModel{
		pageResponses: map[string]string{
			"/tmp/schedule.png": `[
				{"Course Code": "CIS308", "Date": "23/12/2025"},
				{"Course Name": "Orphan row without a code", "Date": "24/12/2025"},
				{"Course Code": "MTH101"}
			]`,
		},
	}
	processor := NewDocumentProcessor(model, &stubConverter{}, testValidator(), 5)

	events, err := processor.ExtractAllEvents(context.Background(), "/tmp/schedule.png", "schedule.png")
	if err != nil {
		t.Fatalf("ExtractAllEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected only the complete row to survive, got %d", len(events))
	}
	if events[0].CourseCode != "CIS308" {
		t.Errorf("Expected CIS308, got %s", events[0].CourseCode)
	}
}
