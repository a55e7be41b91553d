package models

import "time"

// Sort key constants for the extractions table
const (
	SortKeyResult = "RESULT"
)

// ExtractionRecord is the DynamoDB row caching one document's Stage 1
// extraction so later filter requests can reuse it without calling the
// AI model again.
type ExtractionRecord struct {
	// Primary keys: PK = EXTRACTION#{extraction_id}, SK = RESULT
	PK string `json:"PK" dynamodbav:"PK"`
	SK string `json:"SK" dynamodbav:"SK"`

	ExtractionID string  `json:"extraction_id" dynamodbav:"extraction_id"`
	Filename     string  `json:"filename" dynamodbav:"filename"`
	Events       []Event `json:"events" dynamodbav:"events"`
	TotalEvents  int     `json:"total_events" dynamodbav:"total_events"`

	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	// ExpiresAt drives the table's TTL; cached extractions are short-lived
	ExpiresAt int64 `json:"expires_at" dynamodbav:"expires_at"`
}

// NewExtractionRecord builds a cache record for an extraction result
func NewExtractionRecord(extractionID, filename string, events []Event, ttl time.Duration) *ExtractionRecord {
	now := time.Now()
	return &ExtractionRecord{
		PK:           "EXTRACTION#" + extractionID,
		SK:           SortKeyResult,
		ExtractionID: extractionID,
		Filename:     filename,
		Events:       events,
		TotalEvents:  len(events),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl).Unix(),
	}
}
