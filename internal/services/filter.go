package services

import (
	"context"
	"log"
	"strings"

	"exam-schedule-extractor/internal/models"
)

// EventFilter narrows an extracted event list down to the events matching
// a student's criteria. Two implementations exist: the deterministic
// local matcher and an AI-delegated variant; FallbackEventFilter composes
// them.
type EventFilter interface {
	FilterEvents(ctx context.Context, events []models.Event, criteria models.FilterCriteria) ([]models.Event, error)
}

// LocalEventFilter is the deterministic strict matcher. Both criteria are
// required and both must match; there is no partial credit.
type LocalEventFilter struct{}

// NewLocalEventFilter creates the deterministic filter
func NewLocalEventFilter() *LocalEventFilter {
	return &LocalEventFilter{}
}

// FilterEvents applies strict two-criteria matching. A request missing
// either criterion is refused with an empty result, not an error — it is
// a valid (if unhelpful) request.
func (f *LocalEventFilter) FilterEvents(_ context.Context, events []models.Event, criteria models.FilterCriteria) ([]models.Event, error) {
	filterLevel := strings.TrimSpace(criteria.MajorLevel)
	filterMajor := strings.ToUpper(strings.TrimSpace(criteria.OfferedTo))

	if filterLevel == "" || filterMajor == "" {
		log.Printf("WARNING: strict filtering requires both level and major, got level=%q major=%q", filterLevel, filterMajor)
		return []models.Event{}, nil
	}

	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		levelMatch := CheckLevelMatch(event.MajorLevel, filterLevel, filterMajor)
		majorMatch := CheckMajorMatch(event.OfferedTo, filterMajor)

		// Hard AND: both criteria must hold
		if levelMatch && majorMatch {
			filtered = append(filtered, rewriteMatchedEvent(event, filterLevel))
		}
	}

	log.Printf("Strict local filter: %d -> %d events (level=%s, major=%s)", len(events), len(filtered), filterLevel, filterMajor)
	return filtered, nil
}

// CheckLevelMatch decides whether a compound major-level string covers
// the student's level. Each parsed (level, major) pair is checked in
// order: a pair with a major annotation matches only that major, a pair
// without one matches any major at that level. No parsed pairs means no
// match.
func CheckLevelMatch(majorLevel, filterLevel, filterMajor string) bool {
	pairs := ParseLevelMajors(majorLevel)
	if len(pairs) == 0 {
		return false
	}

	for _, pair := range pairs {
		if pair.Level != filterLevel {
			continue
		}
		if pair.Major == "" {
			return true
		}
		if pair.Major == filterMajor {
			return true
		}
	}
	return false
}

// CheckMajorMatch decides whether an offered-to list covers the student's
// major. An empty or unknown offered-to always excludes; the ALL sentinel
// always includes.
func CheckMajorMatch(offeredTo, filterMajor string) bool {
	offeredTo = strings.TrimSpace(offeredTo)
	if filterMajor == "" || offeredTo == "" {
		return false
	}

	if strings.ToUpper(offeredTo) == models.OfferedToAll {
		return true
	}

	for _, major := range ParseMajorList(strings.ToUpper(offeredTo)) {
		if major == filterMajor {
			return true
		}
	}
	return false
}

// rewriteMatchedEvent copies a matched event and collapses its compound
// level string down to the one level the student actually matched. The
// copy keeps the original event reusable for other queries.
func rewriteMatchedEvent(event models.Event, filterLevel string) models.Event {
	matched := event.Clone()
	matched.MajorLevel = filterLevel
	if matched.Description != "" {
		matched.Description = models.RewriteDescriptionLevel(matched.Description, filterLevel)
	}
	return matched
}

// FallbackEventFilter tries a primary filter and falls back to a
// secondary one on any failure of the primary. The secondary is expected
// to be behaviorally complete on its own, not a degraded approximation.
type FallbackEventFilter struct {
	primary  EventFilter
	fallback EventFilter
}

// NewFallbackEventFilter composes two filters into a try/fallback pair
func NewFallbackEventFilter(primary, fallback EventFilter) *FallbackEventFilter {
	return &FallbackEventFilter{primary: primary, fallback: fallback}
}

// FilterEvents delegates to the primary filter and transparently retries
// with the fallback when the primary fails
func (f *FallbackEventFilter) FilterEvents(ctx context.Context, events []models.Event, criteria models.FilterCriteria) ([]models.Event, error) {
	filtered, err := f.primary.FilterEvents(ctx, events, criteria)
	if err == nil {
		return filtered, nil
	}

	log.Printf("WARNING: primary filter failed: %v, using fallback", err)
	return f.fallback.FilterEvents(ctx, events, criteria)
}
