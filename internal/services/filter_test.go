package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"exam-schedule-extractor/internal/models"
)

// TestCheckLevelMatch tests the per-pair level matching rules
func TestCheckLevelMatch(t *testing.T) {
	tests := []struct {
		majorLevel  string
		filterLevel string
		filterMajor string
		expected    bool
	}{
		// Bare level matches any major at that level
		{"5", "5", "CIS", true},
		{"5", "7", "CIS", false},
		{"5,7", "7", "AI", true},
		// Annotated pair matches only its own major
		{"5 (CIS)", "5", "CIS", true},
		{"5 (CIS)", "5", "AI", false},
		// Compound string: annotated 5 plus bare 7
		{"5 (CIS) 7", "5", "CIS", true},
		{"5 (CIS) 7", "5", "AI", false},
		{"5 (CIS) 7", "7", "AI", true},
		{"5 (CIS) 7", "7", "CIS", true},
		// Multi-annotated compound
		{"7 (AI) 9 (CS) 9(CYS)", "9", "CS", true},
		{"7 (AI) 9 (CS) 9(CYS)", "9", "CYS", true},
		{"7 (AI) 9 (CS) 9(CYS)", "9", "AI", false},
		{"7 (AI) 9 (CS) 9(CYS)", "7", "AI", true},
		// Nothing parseable never matches
		{"", "5", "CIS", false},
		{"TBD", "5", "CIS", false},
	}

	for _, tt := range tests {
		got := CheckLevelMatch(tt.majorLevel, tt.filterLevel, tt.filterMajor)
		if got != tt.expected {
			t.Errorf("CheckLevelMatch(%q, %q, %q) = %v, want %v",
				tt.majorLevel, tt.filterLevel, tt.filterMajor, got, tt.expected)
		}
	}
}

// TestCheckMajorMatch tests offered-to membership and the ALL sentinel
func TestCheckMajorMatch(t *testing.T) {
	tests := []struct {
		offeredTo   string
		filterMajor string
		expected    bool
	}{
		{"CIS,AI", "CIS", true},
		{"CIS,AI", "AI", true},
		{"CIS,AI", "CYS", false},
		{"CIS/AI", "AI", true},
		{"ALL", "CIS", true},
		{"all", "CYS", true},
		// Empty offered-to excludes, never includes
		{"", "CIS", false},
		{"CIS", "", false},
		// Substring is not membership
		{"CIST", "CIS", false},
	}

	for _, tt := range tests {
		got := CheckMajorMatch(tt.offeredTo, tt.filterMajor)
		if got != tt.expected {
			t.Errorf("CheckMajorMatch(%q, %q) = %v, want %v", tt.offeredTo, tt.filterMajor, got, tt.expected)
		}
	}
}

// TestLocalFilterStrictAND tests that both criteria must hold for a match
func TestLocalFilterStrictAND(t *testing.T) {
	events := []models.Event{
		{CourseCode: "CIS308", MajorLevel: "5", OfferedTo: "CIS,AI"},
		{CourseCode: "CIS400", MajorLevel: "5", OfferedTo: "CYS"},  // level ok, major not
		{CourseCode: "CIS500", MajorLevel: "7", OfferedTo: "CIS"},  // major ok, level not
		{CourseCode: "MTH101", MajorLevel: "5", OfferedTo: "ALL"},  // ALL always passes major
	}

	filter := NewLocalEventFilter()
	filtered, err := filter.FilterEvents(context.Background(), events, models.FilterCriteria{
		MajorLevel: "5",
		OfferedTo:  "CIS",
	})
	if err != nil {
		t.Fatalf("FilterEvents failed: %v", err)
	}

	if len(filtered) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(filtered))
	}
	if filtered[0].CourseCode != "CIS308" || filtered[1].CourseCode != "MTH101" {
		t.Errorf("Expected CIS308 and MTH101, got %s and %s", filtered[0].CourseCode, filtered[1].CourseCode)
	}
}

// TestLocalFilterMissingCriteria tests that an incomplete request yields
// an empty result without error
func TestLocalFilterMissingCriteria(t *testing.T) {
	events := []models.Event{
		{CourseCode: "CIS308", MajorLevel: "5", OfferedTo: "CIS"},
	}
	filter := NewLocalEventFilter()

	cases := []models.FilterCriteria{
		{MajorLevel: "", OfferedTo: "CIS"},
		{MajorLevel: "5", OfferedTo: ""},
		{MajorLevel: "", OfferedTo: ""},
	}

	for _, criteria := range cases {
		filtered, err := filter.FilterEvents(context.Background(), events, criteria)
		if err != nil {
			t.Errorf("Expected no error for criteria %+v, got %v", criteria, err)
		}
		if len(filtered) != 0 {
			t.Errorf("Expected empty result for criteria %+v, got %d events", criteria, len(filtered))
		}
	}
}

// TestLocalFilterRewritesMatchedLevel tests that matched events carry the
// student's single level, with the description line rewritten and the
// original left untouched
func TestLocalFilterRewritesMatchedLevel(t *testing.T) {
	original := models.Event{
		CourseCode:  "CIS308",
		MajorLevel:  "5 (CIS) 7",
		OfferedTo:   "CIS,AI",
		Description: "Date: 23/12/2025\nMajor-Level: 5 (CIS) 7\nOffered To: CIS,AI",
	}

	filter := NewLocalEventFilter()
	filtered, err := filter.FilterEvents(context.Background(), []models.Event{original}, models.FilterCriteria{
		MajorLevel: "7",
		OfferedTo:  "AI",
	})
	if err != nil {
		t.Fatalf("FilterEvents failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(filtered))
	}

	if filtered[0].MajorLevel != "7" {
		t.Errorf("Expected rewritten level 7, got %q", filtered[0].MajorLevel)
	}
	if !strings.Contains(filtered[0].Description, "Major-Level: 7") {
		t.Errorf("Expected rewritten description line, got %q", filtered[0].Description)
	}
	if !strings.Contains(filtered[0].Description, "Date: 23/12/2025") {
		t.Errorf("Expected other description lines untouched, got %q", filtered[0].Description)
	}

	// The input event is never mutated
	if original.MajorLevel != "5 (CIS) 7" {
		t.Errorf("Original event mutated: %q", original.MajorLevel)
	}
	if !strings.Contains(original.Description, "Major-Level: 5 (CIS) 7") {
		t.Errorf("Original description mutated: %q", original.Description)
	}
}

// TestLocalFilterCompoundLevelBothSides tests one compound row against
// both of its audiences
func TestLocalFilterCompoundLevelBothSides(t *testing.T) {
	event := models.Event{
		CourseCode: "CIS308",
		MajorLevel: "5 (CIS) 7",
		OfferedTo:  "CIS,AI",
	}
	filter := NewLocalEventFilter()

	// A level-5 CIS student matches through the annotated pair
	filtered, err := filter.FilterEvents(context.Background(), []models.Event{event}, models.FilterCriteria{
		MajorLevel: "5", OfferedTo: "CIS",
	})
	if err != nil {
		t.Fatalf("FilterEvents failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected level-5 CIS student to match, got %d events", len(filtered))
	}

	// A level-7 AI student matches through the bare level-7 token
	filtered, err = filter.FilterEvents(context.Background(), []models.Event{event}, models.FilterCriteria{
		MajorLevel: "7", OfferedTo: "AI",
	})
	if err != nil {
		t.Fatalf("FilterEvents failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected level-7 AI student to match, got %d events", len(filtered))
	}

	// A level-5 AI student does not: the only level-5 pair is CIS-annotated
	filtered, err = filter.FilterEvents(context.Background(), []models.Event{event}, models.FilterCriteria{
		MajorLevel: "5", OfferedTo: "AI",
	})
	if err != nil {
		t.Fatalf("FilterEvents failed: %v", err)
	}
	if len(filtered) != 0 {
		t.Errorf("Expected level-5 AI student excluded, got %d events", len(filtered))
	}
}

// TestLocalFilterCaseInsensitiveMajor tests that the student's major is
// matched case-insensitively
func TestLocalFilterCaseInsensitiveMajor(t *testing.T) {
	events := []models.Event{
		{CourseCode: "CIS308", MajorLevel: "5", OfferedTo: "CIS,AI"},
	}
	filter := NewLocalEventFilter()

	filtered, err := filter.FilterEvents(context.Background(), events, models.FilterCriteria{
		MajorLevel: "5",
		OfferedTo:  "cis",
	})
	if err != nil {
		t.Fatalf("FilterEvents failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected lowercase criteria major to match, got %d events", len(filtered))
	}
}

// failingFilter always errors, standing in for a broken AI filter
type failingFilter struct{}

func (f *failingFilter) FilterEvents(context.Context, []models.Event, models.FilterCriteria) ([]models.Event, error) {
	return nil, errors.New("model unavailable")
}

// TestFallbackFilterUsesSecondary tests that a primary failure is
// transparent to the caller
func TestFallbackFilterUsesSecondary(t *testing.T) {
	events := []models.Event{
		{CourseCode: "CIS308", MajorLevel: "5", OfferedTo: "CIS"},
		{CourseCode: "CIS400", MajorLevel: "7", OfferedTo: "CIS"},
	}
	criteria := models.FilterCriteria{MajorLevel: "5", OfferedTo: "CIS"}

	fallback := NewFallbackEventFilter(&failingFilter{}, NewLocalEventFilter())
	filtered, err := fallback.FilterEvents(context.Background(), events, criteria)
	if err != nil {
		t.Fatalf("Expected fallback to absorb primary failure, got %v", err)
	}
	if len(filtered) != 1 || filtered[0].CourseCode != "CIS308" {
		t.Errorf("Expected fallback result [CIS308], got %v", filtered)
	}

	// Result must be identical to calling the local filter directly
	direct, err := NewLocalEventFilter().FilterEvents(context.Background(), events, criteria)
	if err != nil {
		t.Fatalf("Direct filter failed: %v", err)
	}
	if len(direct) != len(filtered) {
		t.Errorf("Fallback result diverges from direct local filter: %d vs %d", len(filtered), len(direct))
	}
}

// TestFallbackFilterPrefersPrimary tests that a healthy primary is used as-is
func TestFallbackFilterPrefersPrimary(t *testing.T) {
	events := []models.Event{
		{CourseCode: "CIS308", MajorLevel: "5", OfferedTo: "CIS"},
	}

	fallback := NewFallbackEventFilter(NewLocalEventFilter(), &failingFilter{})
	filtered, err := fallback.FilterEvents(context.Background(), events, models.FilterCriteria{
		MajorLevel: "5", OfferedTo: "CIS",
	})
	if err != nil {
		t.Fatalf("Expected primary success, got %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected 1 event from primary, got %d", len(filtered))
	}
}
