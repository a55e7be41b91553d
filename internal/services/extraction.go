package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"exam-schedule-extractor/internal/models"
)

// ModelClient wraps the chat-completion API used for both extraction and
// AI-side filtering. BaseURL may point at any OpenAI-compatible endpoint.
type ModelClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewModelClient creates a model client. The API key is required; an
// empty base URL uses the default endpoint.
func NewModelClient(apiKey, baseURL, model string) *ModelClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &ModelClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: 0.1,
		maxTokens:   4000,
	}
}

// ExtractFromImage sends one schedule page image to the vision model and
// returns the raw text response. The response is expected to be a JSON
// array of exam rows but is not parsed here; ParseModelResponse owns that.
func (m *ModelClient) ExtractFromImage(ctx context.Context, imagePath string) (string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", imageMIMEType(imagePath), base64.StdEncoding.EncodeToString(imageData))

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildExtractionSystemPrompt(),
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Extract every exam row from this schedule table image.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("image extraction request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from model")
	}

	return resp.Choices[0].Message.Content, nil
}

// ExtractFromText sends extracted PDF text to the model and returns the
// raw text response
func (m *ModelClient) ExtractFromText(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildExtractionSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Extract every exam row from the following schedule text:\n\n%s", text),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("text extraction request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from model")
	}

	return resp.Choices[0].Message.Content, nil
}

// complete runs a plain system+user chat completion and returns the text
func (m *ModelClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from model")
	}

	return resp.Choices[0].Message.Content, nil
}

// GetModel returns the configured model name
func (m *ModelClient) GetModel() string {
	return m.model
}

// buildExtractionSystemPrompt creates the system prompt for exam schedule
// extraction. Merged-cell reconstruction (rows inheriting the date or
// session of the row above) is delegated to the model here; the rest of
// the pipeline never re-derives it.
func buildExtractionSystemPrompt() string {
	return `You are an expert at extracting exam schedule tables from university documents.

Analyze the provided schedule and extract EVERY exam row. The tables use merged cells: when a row has no date or session of its own, it belongs to the nearest date/session above it — fill those values in for each row.

OUTPUT FORMAT:
Return ONLY a JSON array, one object per exam row:
[
  {
    "course_code": "CIS308",
    "course_name": "Operating Systems",
    "date": "23/12/2025",
    "time": "9:00 to 11:00",
    "major_level": "5 (CIS) 7",
    "offered_to": "CIS/AI"
  }
]

EXTRACTION RULES:
- Extract every row, even when fields repeat across rows
- Keep the date exactly as printed; do not reformat it
- Keep the Major-Level column verbatim, including parenthesized majors like "7 (AI) 9 (CS)"
- Keep the Offered To column verbatim, including separators like "CIS/AI" or "ALL"
- Use an empty string for values that are genuinely absent
- Do not invent rows or fields that are not in the table

Accuracy over quantity: a complete, correct subset beats a padded one.`
}

// imageMIMEType guesses the MIME type of an image file from its extension
func imageMIMEType(path string) string {
	ext := strings.ToLower(models.FileExtension(path))
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
