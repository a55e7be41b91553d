package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"exam-schedule-extractor/internal/models"
)

// AIEventFilter delegates the whole filter decision to the model: it
// sends the event list plus the student's criteria and expects a strict
// JSON array of the matching events back. Any failure (request error,
// malformed JSON, non-array response) is returned as an error so the
// composing FallbackEventFilter can switch to the local matcher.
type AIEventFilter struct {
	model *ModelClient
}

// NewAIEventFilter creates the AI-delegated filter
func NewAIEventFilter(model *ModelClient) *AIEventFilter {
	return &AIEventFilter{model: model}
}

// FilterEvents asks the model to apply the strict matching rules
func (f *AIEventFilter) FilterEvents(ctx context.Context, events []models.Event, criteria models.FilterCriteria) ([]models.Event, error) {
	filterLevel := strings.TrimSpace(criteria.MajorLevel)
	filterMajor := strings.ToUpper(strings.TrimSpace(criteria.OfferedTo))

	if filterLevel == "" || filterMajor == "" {
		// Same refusal contract as the local filter
		return []models.Event{}, nil
	}

	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events for filtering: %w", err)
	}

	userPrompt := fmt.Sprintf(`Student criteria:
- level: %s
- major: %s

Events:
%s`, filterLevel, filterMajor, string(eventsJSON))

	response, err := f.model.complete(ctx, buildFilterSystemPrompt(), userPrompt)
	if err != nil {
		return nil, fmt.Errorf("AI filter request failed: %w", err)
	}

	cleaned := cleanJSONResponse(response)

	var filtered []models.Event
	if err := json.Unmarshal([]byte(cleaned), &filtered); err != nil {
		return nil, fmt.Errorf("AI filter returned malformed JSON: %w", err)
	}

	// The model echoes events back; enforce the post-match level rewrite
	// locally so the output is identical to the deterministic path
	for i := range filtered {
		filtered[i].MajorLevel = filterLevel
		if filtered[i].Description != "" {
			filtered[i].Description = models.RewriteDescriptionLevel(filtered[i].Description, filterLevel)
		}
	}

	return filtered, nil
}

// buildFilterSystemPrompt states the strict matching rules for the model
func buildFilterSystemPrompt() string {
	return `You filter university exam events for one student. Apply these rules EXACTLY:

LEVEL RULE: parse the event's "major_level" as a sequence of level tokens, each optionally followed by a parenthesized major, e.g. "7 (AI) 9 (CS)". The event matches the student's level when some token equals it AND either that token has no parenthesized major, or its major equals the student's major.

MAJOR RULE: the event's "offered_to" is a list of majors separated by "/", "," or "+". "ALL" matches every student. An empty "offered_to" matches nobody. Otherwise the student's major must appear in the list exactly.

An event is included only when BOTH rules match. No partial matches.

Return ONLY a JSON array containing the matching event objects, unchanged, in their original order. Return [] when nothing matches.`
}
