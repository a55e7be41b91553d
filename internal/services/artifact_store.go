package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"exam-schedule-extractor/internal/models"
)

// ArtifactStore persists extraction debug artifacts to S3. The artifacts
// are diagnostics, not authoritative state: every write failure is safe
// to ignore at the call site.
type ArtifactStore struct {
	client     *s3.Client
	bucketName string
	region     string
}

// NewArtifactStore creates a store against the given bucket using the
// default AWS credential chain
func NewArtifactStore(ctx context.Context, bucketName string) (*ArtifactStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("artifact bucket name is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ArtifactStore{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
		region:     cfg.Region,
	}, nil
}

// UploadExtractionOutput stores one extraction's full result under a
// timestamped key and returns the key
func (s *ArtifactStore) UploadExtractionOutput(ctx context.Context, output *models.ExtractionOutput) (string, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	key := fmt.Sprintf("extractions/%s_%s.json", timestamp, output.ExtractionID)

	if err := s.uploadJSON(ctx, output, key); err != nil {
		return "", err
	}
	return key, nil
}

// UploadLastExtraction stores the extraction under the fixed "last
// extraction" key, mirroring the local debug dump of earlier revisions
func (s *ArtifactStore) UploadLastExtraction(ctx context.Context, output *models.ExtractionOutput) error {
	return s.uploadJSON(ctx, output, "extractions/last_extraction.json")
}

// DownloadExtractionOutput fetches a stored extraction artifact
func (s *ArtifactStore) DownloadExtractionOutput(ctx context.Context, key string) (*models.ExtractionOutput, error) {
	data, err := s.downloadObject(ctx, key)
	if err != nil {
		return nil, err
	}

	var output models.ExtractionOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction JSON: %w", err)
	}

	return &output, nil
}

// DownloadDocument fetches an uploaded source document (the lambda entry
// point processes documents dropped into the bucket)
func (s *ArtifactStore) DownloadDocument(ctx context.Context, key string) ([]byte, error) {
	return s.downloadObject(ctx, key)
}

// uploadJSON marshals a value and puts it under the given key
func (s *ArtifactStore) uploadJSON(ctx context.Context, value interface{}, key string) error {
	key = strings.TrimPrefix(key, "/")

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact JSON: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"uploaded-by": "exam-schedule-extractor",
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// downloadObject fetches an object body from the bucket
func (s *ArtifactStore) downloadObject(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimPrefix(key, "/")

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	return data, nil
}

// FileExists checks whether a key exists in the bucket
func (s *ArtifactStore) FileExists(ctx context.Context, key string) (bool, error) {
	key = strings.TrimPrefix(key, "/")

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if S3 object exists: %w", err)
	}

	return true, nil
}

// GetBucketName returns the configured bucket name
func (s *ArtifactStore) GetBucketName() string {
	return s.bucketName
}
