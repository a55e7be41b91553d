package services

import (
	"log"
	"sync"
	"time"
)

// ExtractionMetrics tracks extraction and filtering outcomes across a
// process lifetime. Counts are observability metadata, not part of the
// pipeline's correctness contract.
type ExtractionMetrics struct {
	mu sync.Mutex

	DocumentsProcessed int
	PagesProcessed     int
	PagesFailed        int
	TextFallbacks      int
	EventsExtracted    int
	EventsFiltered     int

	LastDocumentAt time.Time
}

var (
	metricsInstance *ExtractionMetrics
	metricsOnce     sync.Once
)

// GetExtractionMetrics returns the process-wide metrics instance
func GetExtractionMetrics() *ExtractionMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &ExtractionMetrics{}
	})
	return metricsInstance
}

// RecordDocument records one completed document extraction
func (m *ExtractionMetrics) RecordDocument(eventsExtracted int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DocumentsProcessed++
	m.EventsExtracted += eventsExtracted
	m.LastDocumentAt = time.Now()
}

// RecordPage records one page extraction attempt
func (m *ExtractionMetrics) RecordPage(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		m.PagesProcessed++
	} else {
		m.PagesFailed++
	}
}

// RecordTextFallback records a whole-document text second pass
func (m *ExtractionMetrics) RecordTextFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TextFallbacks++
}

// RecordFilter records one filtering request's output size
func (m *ExtractionMetrics) RecordFilter(eventsAfterFilter int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EventsFiltered += eventsAfterFilter
}

// Snapshot returns a copy of the current counters
func (m *ExtractionMetrics) Snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]interface{}{
		"documents_processed": m.DocumentsProcessed,
		"pages_processed":     m.PagesProcessed,
		"pages_failed":        m.PagesFailed,
		"text_fallbacks":      m.TextFallbacks,
		"events_extracted":    m.EventsExtracted,
		"events_filtered":     m.EventsFiltered,
	}
}

// LogMetricsSummary writes the current counters to the log
func (m *ExtractionMetrics) LogMetricsSummary() {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Printf("Extraction metrics: documents=%d pages=%d/%d failed, text fallbacks=%d, events=%d extracted/%d filtered",
		m.DocumentsProcessed, m.PagesProcessed, m.PagesProcessed+m.PagesFailed,
		m.TextFallbacks, m.EventsExtracted, m.EventsFiltered)
}

// ResetMetrics clears all counters
func (m *ExtractionMetrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DocumentsProcessed = 0
	m.PagesProcessed = 0
	m.PagesFailed = 0
	m.TextFallbacks = 0
	m.EventsExtracted = 0
	m.EventsFiltered = 0
}
