package services

import (
	"encoding/json"
	"log"
	"strings"

	"exam-schedule-extractor/internal/models"
)

// Container keys the model wraps row arrays under, in priority order
var responseContainerKeys = []string{"exams", "events", "data", "results"}

// ParseModelResponse extracts the list of raw rows from an AI text
// response. The model sometimes fences the JSON in markdown blocks or
// nests the array under a container key; both are tolerated. A response
// that cannot be parsed yields an empty list, never an error — a bad
// response is simply zero rows from that call.
func ParseModelResponse(response string) []models.RawRow {
	cleaned := cleanJSONResponse(response)
	if cleaned == "" {
		return nil
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Printf("Failed to parse model response JSON: %v", err)
		log.Printf("Response: %s", truncateForLog(cleaned, 500))
		return nil
	}

	switch value := parsed.(type) {
	case []interface{}:
		return rawRowsFromList(value)
	case map[string]interface{}:
		// Prefer a known container key whose value is a list
		for _, key := range responseContainerKeys {
			if nested, ok := value[key].([]interface{}); ok {
				return rawRowsFromList(nested)
			}
		}
		// A bare object is treated as a single row
		return []models.RawRow{models.RawRow(value)}
	default:
		return nil
	}
}

// rawRowsFromList keeps the object elements of a decoded JSON array.
// Non-object elements (stray strings, numbers) are skipped.
func rawRowsFromList(items []interface{}) []models.RawRow {
	rows := make([]models.RawRow, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			rows = append(rows, models.RawRow(obj))
		}
	}
	return rows
}

// cleanJSONResponse removes markdown code blocks and other formatting
// from a model response
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	// Remove ```json prefix
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}

	// Remove ``` suffix
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSuffix(cleaned, "```")
	}

	return strings.TrimSpace(cleaned)
}

// truncateForLog shortens a string for diagnostic logging
func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
