package services

import (
	"regexp"
	"strings"

	"exam-schedule-extractor/internal/models"
)

// levelMajorPattern scans a compound level string for "digits, optionally
// followed by a parenthesized major". The separator between tokens does
// not matter: "5,7", "5+7", "5 (CS)-7(CS)" and plain spaces all parse the
// same way.
var levelMajorPattern = regexp.MustCompile(`(\d+)\s*(?:\(([^)]*)\))?`)

// majorListSplitPattern splits an offered-to list on any of the
// separators the source tables use, with optional surrounding spaces.
var majorListSplitPattern = regexp.MustCompile(`\s*[/,+]\s*`)

// ParseLevelMajors parses a compound major-level string into its ordered
// (level, major) pairs. A pair without a parenthesized major applies to
// every major at that level.
//
//	"5"                    -> [{5 }]
//	"5,7"                  -> [{5 } {7 }]
//	"7 (AI) 9 (CS) 9(CYS)" -> [{7 AI} {9 CS} {9 CYS}]
func ParseLevelMajors(majorLevel string) []models.LevelMajor {
	majorLevel = strings.TrimSpace(majorLevel)
	if majorLevel == "" {
		return nil
	}

	matches := levelMajorPattern.FindAllStringSubmatch(majorLevel, -1)
	pairs := make([]models.LevelMajor, 0, len(matches))
	for _, match := range matches {
		pairs = append(pairs, models.LevelMajor{
			Level: match[1],
			Major: strings.ToUpper(strings.TrimSpace(match[2])),
		})
	}
	return pairs
}

// ParseMajorList splits an offered-to string into its major tokens.
// "CIS/AI", "CIS,AI" and "CIS + AI" all yield ["CIS", "AI"].
func ParseMajorList(offeredTo string) []string {
	offeredTo = strings.TrimSpace(offeredTo)
	if offeredTo == "" {
		return nil
	}

	parts := majorListSplitPattern.Split(offeredTo, -1)
	majors := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			majors = append(majors, part)
		}
	}
	return majors
}
