package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// GenerateEventID creates a stable ID for an event from its core attributes
func GenerateEventID(courseCode, date, majorLevel string) string {
	normalizedCode := strings.ToLower(strings.TrimSpace(courseCode))
	normalizedDate := strings.ToLower(strings.TrimSpace(date))
	normalizedLevel := strings.ToLower(strings.TrimSpace(majorLevel))

	input := fmt.Sprintf("%s|%s|%s", normalizedCode, normalizedDate, normalizedLevel)
	hash := sha256.Sum256([]byte(input))

	return "evt_" + hex.EncodeToString(hash[:])[:8]
}

// GenerateExtractionID creates a unique ID for one document extraction run
func GenerateExtractionID() string {
	return "ext_" + uuid.NewString()[:8]
}

// Allowed upload extensions, matching the original service limits
var (
	allowedImageExtensions    = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp"}
	allowedDocumentExtensions = []string{"pdf"}
)

// MaxUploadSize is the largest accepted document (50 MB)
const MaxUploadSize = 50 * 1024 * 1024

// FileExtension returns the lowercase extension of a filename without the dot
func FileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// IsAllowedImage checks whether the filename has a supported image extension
func IsAllowedImage(filename string) bool {
	ext := FileExtension(filename)
	for _, allowed := range allowedImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsAllowedDocument checks whether the filename is a supported image or PDF
func IsAllowedDocument(filename string) bool {
	if IsAllowedImage(filename) {
		return true
	}
	ext := FileExtension(filename)
	for _, allowed := range allowedDocumentExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsPDF reports whether the filename is a PDF document
func IsPDF(filename string) bool {
	return FileExtension(filename) == "pdf"
}

// AvailableFilters lists the distinct majors and levels present in an
// extraction, for client-side filter pickers.
type AvailableFilters struct {
	Majors []string `json:"available_majors"`
	Levels []string `json:"available_levels"`
}

// CollectAvailableFilters gathers the distinct offered-to majors and level
// strings across a set of events. The ALL wildcard is not listed as a major.
func CollectAvailableFilters(events []Event) AvailableFilters {
	majorSet := make(map[string]bool)
	levelSet := make(map[string]bool)

	for _, event := range events {
		if event.OfferedTo != "" {
			offered := strings.ToUpper(event.OfferedTo)
			if strings.Contains(offered, ",") {
				for _, major := range strings.Split(offered, ",") {
					major = strings.TrimSpace(major)
					if major != "" && major != OfferedToAll {
						majorSet[major] = true
					}
				}
			} else if offered != OfferedToAll {
				majorSet[offered] = true
			}
		}

		if event.MajorLevel != "" {
			levelSet[strings.TrimSpace(event.MajorLevel)] = true
		}
	}

	filters := AvailableFilters{
		Majors: make([]string, 0, len(majorSet)),
		Levels: make([]string, 0, len(levelSet)),
	}
	for major := range majorSet {
		filters.Majors = append(filters.Majors, major)
	}
	for level := range levelSet {
		filters.Levels = append(filters.Levels, level)
	}
	sort.Strings(filters.Majors)
	sort.Strings(filters.Levels)

	return filters
}
