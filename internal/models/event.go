package models

import "strings"

// RawRow is a single table row as returned by the AI model, before any
// normalization. Keys are whatever spelling the model chose on that run
// ("Date", "date", "exam_date", ...) and values may be strings or numbers.
// It is untrusted external input and carries no invariants.
type RawRow map[string]interface{}

// Event is the canonical normalized exam-schedule record
type Event struct {
	Date        string  `json:"date"`        // ISO date (YYYY-MM-DD), or the raw string if parsing failed
	Time        string  `json:"time"`        // free-text time range, whitespace-normalized
	Title       string  `json:"title"`       // "CODE: Name" or whichever part is present
	Description string  `json:"description"` // newline-joined "Label: value" lines
	CourseCode  string  `json:"course_code"`
	CourseName  string  `json:"course_name"`
	MajorLevel  string  `json:"major_level"` // compound level string, e.g. "5", "5,7", "7 (AI) 9 (CS)"
	OfferedTo   string  `json:"offered_to"`  // uppercased major list, "ALL" = every major
	Confidence  float64 `json:"confidence"`
}

// LevelMajor is one (level, major) pair parsed from an Event's MajorLevel
// field. An empty Major means the level applies regardless of major.
type LevelMajor struct {
	Level string `json:"level"`
	Major string `json:"major,omitempty"`
}

// FilterCriteria holds the two student-supplied filter inputs. Both are
// required for strict filtering.
type FilterCriteria struct {
	MajorLevel string `json:"major_level"`
	OfferedTo  string `json:"offered_to"`
}

// ExtractionOutput is the complete result of one document extraction,
// persisted as the debug artifact and cached for later re-filtering.
type ExtractionOutput struct {
	ExtractionID   string         `json:"extraction_id"`
	Filename       string         `json:"filename"`
	Filters        FilterCriteria `json:"filters"`
	TotalExtracted int            `json:"total_extracted"`
	AfterFilter    int            `json:"after_filter"`
	AllEvents      []Event        `json:"all_events"`
	FilteredEvents []Event        `json:"filtered_events"`
}

// Description line labels. The normalizer writes these and the matcher
// rewrites the Major-Level line after a match, so both sides must agree.
const (
	LabelDate       = "Date"
	LabelTime       = "Time"
	LabelMajorLevel = "Major-Level"
	LabelOfferedTo  = "Offered To"
)

// OfferedToAll is the wildcard value meaning an exam applies to every major.
const OfferedToAll = "ALL"

// DefaultConfidence marks AI-extracted rows. It is a fixed tag, not a
// measured probability.
const DefaultConfidence = 0.95

// PlaceholderTitle is used when a row has neither course code nor name.
const PlaceholderTitle = "Exam"

// Key returns the dedup key for an event. Two events from the same
// document with the same key are duplicates; the first one seen wins.
func (e Event) Key() string {
	return e.CourseCode + "|" + e.Date
}

// Clone returns a shallow copy of the event. The matcher mutates the copy
// (rewriting MajorLevel and its description line) so the original can be
// evaluated again against other criteria.
func (e Event) Clone() Event {
	return e
}

// BuildTitle derives the display title from course code and name.
func BuildTitle(code, name string) string {
	switch {
	case code != "" && name != "":
		return code + ": " + name
	case name != "":
		return name
	case code != "":
		return code
	default:
		return PlaceholderTitle
	}
}

// BuildDescription joins the present fields into "Label: value" lines.
// Order is fixed: date, time, level, major. Empty fields are skipped.
func BuildDescription(date, timeStr, level, major string) string {
	var parts []string
	if date != "" {
		parts = append(parts, LabelDate+": "+date)
	}
	if timeStr != "" {
		parts = append(parts, LabelTime+": "+timeStr)
	}
	if level != "" {
		parts = append(parts, LabelMajorLevel+": "+level)
	}
	if major != "" {
		parts = append(parts, LabelOfferedTo+": "+major)
	}
	return strings.Join(parts, "\n")
}

// RewriteDescriptionLevel replaces the Major-Level line of a description
// with the given level, leaving every other line untouched. Descriptions
// without a Major-Level line are returned unchanged.
func RewriteDescriptionLevel(description, level string) string {
	if description == "" {
		return description
	}
	lines := strings.Split(description, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, LabelMajorLevel+":") {
			lines[i] = LabelMajorLevel + ": " + level
		}
	}
	return strings.Join(lines, "\n")
}
