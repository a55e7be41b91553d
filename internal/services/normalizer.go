package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"exam-schedule-extractor/internal/models"
)

// Ordered alias tables for each canonical field. The AI model is not
// consistent about key spelling between invocations, so each field is
// probed through its aliases in order and the first non-empty value wins.
var (
	dateAliases  = []string{"Date", "date", "exam_date", "Exam Date"}
	timeAliases  = []string{"Time", "time", "exam_time", "Exam Time"}
	levelAliases = []string{"Major-Level", "major_level", "Major Level", "level", "Level", "Year", "Level-Major"}
	majorAliases = []string{"Offered To", "offered_to", "Offered_To", "major", "Major", "Program"}
	codeAliases  = []string{"Course Code", "course_code", "Course_Code", "code", "Code"}
	nameAliases  = []string{"Course Name", "course_name", "Course_Name", "name", "Name", "Title"}
)

var (
	colonSpacingPattern = regexp.MustCompile(`\s*:\s*`)
	digitGapPattern     = regexp.MustCompile(`(\d)\s+(\d)`)
	toConnectivePattern = regexp.MustCompile(`\s+to\s+`)
)

// NormalizeEvent maps one raw AI row into a canonical Event. It is a pure
// function: rows missing mandatory fields still produce a best-effort
// Event and the validator decides whether to keep it.
func NormalizeEvent(row models.RawRow) models.Event {
	dateStr := firstAliasValue(row, dateAliases)
	timeStr := firstAliasValue(row, timeAliases)
	levelStr := firstAliasValue(row, levelAliases)
	majorStr := firstAliasValue(row, majorAliases)
	codeStr := firstAliasValue(row, codeAliases)
	nameStr := firstAliasValue(row, nameAliases)

	timeStr = cleanTimeField(timeStr)
	levelStr = cleanLevelField(levelStr)
	majorStr = cleanMajorField(majorStr)

	// Parse to ISO form; on failure keep the raw string untouched
	isoDate := dateStr
	if dateStr != "" {
		if parsed, ok := parseFlexibleDate(dateStr); ok {
			isoDate = parsed.Format("2006-01-02")
		}
	}

	return models.Event{
		Date:        isoDate,
		Time:        timeStr,
		Title:       models.BuildTitle(codeStr, nameStr),
		Description: models.BuildDescription(dateStr, timeStr, levelStr, majorStr),
		CourseCode:  codeStr,
		CourseName:  nameStr,
		MajorLevel:  levelStr,
		OfferedTo:   majorStr,
		Confidence:  models.DefaultConfidence,
	}
}

// NormalizeRows normalizes a batch of raw rows in order
func NormalizeRows(rows []models.RawRow) []models.Event {
	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, NormalizeEvent(row))
	}
	return events
}

// firstAliasValue probes the row through the alias list in order and
// returns the first non-empty value, stringified and trimmed.
func firstAliasValue(row models.RawRow, aliases []string) string {
	for _, key := range aliases {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		str := strings.TrimSpace(stringifyValue(value))
		if str != "" {
			return str
		}
	}
	return ""
}

// stringifyValue renders a raw JSON value as a string. Numbers come out
// of encoding/json as float64; whole values are rendered without a
// decimal point so a level of 5 stays "5".
func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// cleanTimeField normalizes OCR spacing noise in a time-range string:
// "9 : 0 0 to 11 : 3 0" becomes "9:00 to 11:30".
func cleanTimeField(timeStr string) string {
	if timeStr == "" {
		return timeStr
	}

	// "9 : 00" -> "9:00"
	timeStr = colonSpacingPattern.ReplaceAllString(timeStr, ":")

	// Collapse whitespace between adjacent digits until stable; a single
	// pass leaves every other gap because the match consumes both digits
	for {
		collapsed := digitGapPattern.ReplaceAllString(timeStr, "$1$2")
		if collapsed == timeStr {
			break
		}
		timeStr = collapsed
	}

	// Exactly one space on each side of the "to" connective
	timeStr = toConnectivePattern.ReplaceAllString(timeStr, " to ")

	return timeStr
}

// cleanLevelField strips the literal "Level" word and normalizes the
// plus separator: "Level 5 + 7" becomes "5 , 7"-style comma form.
func cleanLevelField(levelStr string) string {
	if levelStr == "" {
		return levelStr
	}
	levelStr = strings.ReplaceAll(levelStr, "Level", "")
	levelStr = strings.ReplaceAll(levelStr, "level", "")
	levelStr = strings.TrimSpace(levelStr)
	levelStr = strings.ReplaceAll(levelStr, "+", ",")
	return levelStr
}

// cleanMajorField uppercases the offered-to list and normalizes it to
// comma-separated form with trimmed segments.
func cleanMajorField(majorStr string) string {
	if majorStr == "" {
		return majorStr
	}
	majorStr = strings.ToUpper(majorStr)
	majorStr = strings.ReplaceAll(majorStr, "/", ",")
	if strings.Contains(majorStr, ",") {
		parts := strings.Split(majorStr, ",")
		for i, part := range parts {
			parts[i] = strings.TrimSpace(part)
		}
		majorStr = strings.Join(parts, ",")
	}
	return majorStr
}

// Date layouts attempted in order. Day-first forms come before
// month-first ones because the source schedules are day-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/06",
	"2/1/06",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
	"2 Jan, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"02.01.2006",
	"2006/01/02",
}

var weekdayPrefixPattern = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)[,.]?\s+`)

var ordinalSuffixPattern = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

// parseFlexibleDate attempts a tolerant, day-first parse of a free-text
// date. Weekday prefixes and ordinal suffixes are stripped before the
// layout scan. Returns false when nothing matches.
func parseFlexibleDate(dateStr string) (time.Time, bool) {
	cleaned := strings.TrimSpace(dateStr)
	cleaned = weekdayPrefixPattern.ReplaceAllString(cleaned, "")
	cleaned = ordinalSuffixPattern.ReplaceAllString(cleaned, "$1")
	cleaned = strings.TrimSpace(cleaned)

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
