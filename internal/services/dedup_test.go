package services

import (
	"testing"

	"exam-schedule-extractor/internal/models"
)

// TestAccumulatorFirstWins tests that the first occurrence of a
// (course code, date) pair survives and later duplicates are dropped
func TestAccumulatorFirstWins(t *testing.T) {
	acc := NewEventAccumulator()

	first := models.Event{CourseCode: "CIS308", Date: "2025-12-23", Time: "9:00 to 11:30"}
	duplicate := models.Event{CourseCode: "CIS308", Date: "2025-12-23", Time: "14:00 to 16:00"}

	if !acc.Add(first) {
		t.Error("Expected first event to be kept")
	}
	if acc.Add(duplicate) {
		t.Error("Expected duplicate to be dropped")
	}

	events := acc.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Time != "9:00 to 11:30" {
		t.Errorf("Expected first occurrence kept, got time %q", events[0].Time)
	}
}

// TestAccumulatorAcrossPages tests dedup across page batches, the way the
// PDF page loop feeds overlapping rows
func TestAccumulatorAcrossPages(t *testing.T) {
	acc := NewEventAccumulator()

	page1 := []models.Event{
		{CourseCode: "CIS308", Date: "2025-12-23"},
		{CourseCode: "MTH101", Date: "2025-12-24"},
	}
	// Table row split across a page boundary shows up again on page 2
	page2 := []models.Event{
		{CourseCode: "MTH101", Date: "2025-12-24"},
		{CourseCode: "PHY201", Date: "2025-12-25"},
	}

	if kept := acc.AddAll(page1); kept != 2 {
		t.Errorf("Expected 2 kept from page 1, got %d", kept)
	}
	if kept := acc.AddAll(page2); kept != 1 {
		t.Errorf("Expected 1 kept from page 2, got %d", kept)
	}

	if acc.Count() != 3 {
		t.Errorf("Expected 3 total events, got %d", acc.Count())
	}

	codes := []string{"CIS308", "MTH101", "PHY201"}
	for i, event := range acc.Events() {
		if event.CourseCode != codes[i] {
			t.Errorf("Position %d: expected %s, got %s", i, codes[i], event.CourseCode)
		}
	}
}

// TestAccumulatorDistinctDates tests that the same course on different
// dates is two events, not a duplicate
func TestAccumulatorDistinctDates(t *testing.T) {
	acc := NewEventAccumulator()
	acc.Add(models.Event{CourseCode: "CIS308", Date: "2025-12-23"})
	acc.Add(models.Event{CourseCode: "CIS308", Date: "2026-01-10"})

	if acc.Count() != 2 {
		t.Errorf("Expected 2 events for same course on different dates, got %d", acc.Count())
	}
}

// TestAccumulatorSkipsEmptyCode tests that rows without a course code are
// never accumulated
func TestAccumulatorSkipsEmptyCode(t *testing.T) {
	acc := NewEventAccumulator()
	if acc.Add(models.Event{CourseCode: "", Date: "2025-12-23"}) {
		t.Error("Expected event without course code to be dropped")
	}
	if acc.Count() != 0 {
		t.Errorf("Expected empty accumulator, got %d events", acc.Count())
	}
}

// TestValidatorDropsIncompleteEvents tests the mandatory-field invariant
func TestValidatorDropsIncompleteEvents(t *testing.T) {
	validator := NewEventValidator(2025, 2026)

	events := []models.Event{
		{CourseCode: "CIS308", Date: "2025-12-23"},
		{CourseCode: "", Date: "2025-12-23"},
		{CourseCode: "MTH101", Date: ""},
		{CourseCode: "PHY201", Date: "2026-01-10"},
	}

	valid := validator.Validate(events)
	if len(valid) != 2 {
		t.Fatalf("Expected 2 valid events, got %d", len(valid))
	}
	for _, event := range valid {
		if event.CourseCode == "" || event.Date == "" {
			t.Errorf("Validator let through incomplete event: %+v", event)
		}
	}
}

// TestValidatorKeepsSuspiciousYears tests that out-of-range years warn
// but never drop the row
func TestValidatorKeepsSuspiciousYears(t *testing.T) {
	validator := NewEventValidator(2025, 2026)

	events := []models.Event{
		{CourseCode: "CIS308", Date: "2019-12-23"},
		{CourseCode: "MTH101", Date: "23/12/2030"},
		{CourseCode: "PHY201", Date: "sometime in December"},
	}

	valid := validator.Validate(events)
	if len(valid) != 3 {
		t.Errorf("Expected all 3 events kept despite suspicious dates, got %d", len(valid))
	}
}
