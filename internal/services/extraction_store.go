package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"exam-schedule-extractor/internal/models"
)

// Cached extractions expire after a day; re-uploading the document is
// cheap compared to keeping stale schedules around
const extractionCacheTTL = 24 * time.Hour

// ExtractionStore caches Stage 1 extraction results in DynamoDB so
// follow-up filter requests can reuse them without another model call.
type ExtractionStore struct {
	client *dynamodb.Client
	table  string
}

// NewExtractionStore creates a store against the given table
func NewExtractionStore(client *dynamodb.Client, table string) *ExtractionStore {
	return &ExtractionStore{
		client: client,
		table:  table,
	}
}

// PutExtraction caches one document's extracted events
func (s *ExtractionStore) PutExtraction(ctx context.Context, extractionID, filename string, events []models.Event) error {
	record := models.NewExtractionRecord(extractionID, filename, events, extractionCacheTTL)

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store extraction record: %w", err)
	}

	return nil
}

// GetExtraction fetches a cached extraction by ID. Returns nil without
// error when the record does not exist (or has expired).
func (s *ExtractionStore) GetExtraction(ctx context.Context, extractionID string) (*models.ExtractionRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "EXTRACTION#" + extractionID},
			"SK": &types.AttributeValueMemberS{Value: models.SortKeyResult},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction record: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var record models.ExtractionRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction record: %w", err)
	}

	return &record, nil
}
