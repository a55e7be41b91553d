package services

import (
	"log"
	"strings"
	"time"

	"exam-schedule-extractor/internal/models"
)

// EventAccumulator collects normalized events across the page-by-page
// extraction of one document, dropping duplicates as they arrive. The
// dedup key is (course_code, date); the first occurrence wins and later
// duplicates are silently discarded, never merged.
type EventAccumulator struct {
	seen   map[string]bool
	events []models.Event
}

// NewEventAccumulator creates an empty accumulator for one document
func NewEventAccumulator() *EventAccumulator {
	return &EventAccumulator{
		seen: make(map[string]bool),
	}
}

// Add appends an event unless it is a duplicate of an already-seen one
// or has no course code. Returns true when the event was kept.
func (a *EventAccumulator) Add(event models.Event) bool {
	// Rows without a course code are parsing noise, not exam rows
	if event.CourseCode == "" {
		return false
	}

	key := event.Key()
	if a.seen[key] {
		return false
	}

	a.seen[key] = true
	a.events = append(a.events, event)
	return true
}

// AddAll accumulates a batch of events in order and returns how many
// were kept
func (a *EventAccumulator) AddAll(events []models.Event) int {
	kept := 0
	for _, event := range events {
		if a.Add(event) {
			kept++
		}
	}
	return kept
}

// Events returns the accumulated events in first-seen order
func (a *EventAccumulator) Events() []models.Event {
	return a.events
}

// Count returns the number of accumulated events
func (a *EventAccumulator) Count() int {
	return len(a.events)
}

// EventValidator drops events missing mandatory fields and flags
// suspicious dates. The year range is a sanity check only: an
// out-of-range year logs a warning but keeps the row.
type EventValidator struct {
	yearMin int
	yearMax int
}

// NewEventValidator creates a validator with the expected schedule year range
func NewEventValidator(yearMin, yearMax int) *EventValidator {
	return &EventValidator{yearMin: yearMin, yearMax: yearMax}
}

// Validate filters out events with an empty course code or date. Every
// surviving event satisfies course_code != "" and date != "".
func (v *EventValidator) Validate(events []models.Event) []models.Event {
	valid := make([]models.Event, 0, len(events))

	for _, event := range events {
		if event.CourseCode == "" {
			continue
		}
		if event.Date == "" {
			log.Printf("Skipping event without date: %s", event.CourseCode)
			continue
		}

		v.checkDateRange(event)
		valid = append(valid, event)
	}

	return valid
}

// checkDateRange warns about dates whose year falls outside the expected
// schedule window. Dates that parse under neither accepted layout are
// left alone; the normalizer already did its best.
func (v *EventValidator) checkDateRange(event models.Event) {
	var parsed time.Time
	var err error

	switch {
	case strings.Contains(event.Date, "-"):
		parsed, err = time.Parse("2006-01-02", event.Date)
	case strings.Contains(event.Date, "/"):
		parsed, err = time.Parse("02/01/2006", event.Date)
	default:
		return
	}

	if err != nil {
		log.Printf("WARNING: date parsing error for %s: %v", event.CourseCode, err)
		return
	}

	if parsed.Year() < v.yearMin || parsed.Year() > v.yearMax {
		log.Printf("WARNING: suspicious date for %s: %s", event.CourseCode, event.Date)
	}
}
