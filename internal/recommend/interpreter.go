// Package recommend extracts structured recommendations from the free-form
// text returned by the generation service.
//
// Parsing is attempted in three tiers and the first success wins:
//
//  1. the whole reply as a JSON array of {title, reason} objects
//  2. the span from the first '[' to the last ']' in the reply, parsed as JSON
//  3. a single placeholder recommendation
//
// Tier 2 is a heuristic, not a JSON scanner. It does not balance brackets, so
// prose containing several bracketed fragments (or nested arrays followed by
// more text) can produce a span that fails to parse or picks up the wrong
// array. Failure there falls through to tier 3; it never surfaces as an error.
package recommend

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// Tier records which parsing stage produced a result
type Tier string

const (
	TierStrict      Tier = "strict"
	TierBracketSpan Tier = "bracket_span"
	TierPlaceholder Tier = "placeholder"
)

// PlaceholderTitle is the sentinel title used when nothing could be parsed
const PlaceholderTitle = "Recommendation Placeholder"

// PlaceholderReason explains the placeholder to the user
const PlaceholderReason = "I cannot share personal info, but I can recommend manga based on your saved list and preferences!"

var bracketSpan = regexp.MustCompile(`(?s)\[.*\]`)

// Result is the outcome of interpreting one reply
type Result struct {
	Recommendations []models.Recommendation
	Tier            Tier
}

// Interpret parses raw generation output. It always returns a well-typed
// result; the placeholder tier guarantees at least one recommendation when
// the reply carries no parseable array.
func Interpret(raw string) Result {
	if recs, ok := parseArray([]byte(raw)); ok {
		return Result{Recommendations: recs, Tier: TierStrict}
	}

	if span := bracketSpan.Find([]byte(raw)); span != nil {
		if recs, ok := parseArray(span); ok {
			return Result{Recommendations: recs, Tier: TierBracketSpan}
		}
	}

	return Result{Recommendations: Placeholder(), Tier: TierPlaceholder}
}

// Placeholder returns the fallback recommendation list
func Placeholder() []models.Recommendation {
	return []models.Recommendation{{Title: PlaceholderTitle, Reason: PlaceholderReason}}
}

func parseArray(data []byte) ([]models.Recommendation, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var decoded []*models.Recommendation
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, false
	}

	// Entries without a title (null, {"reason":...}) are dropped. An array
	// that had entries but none usable does not count as parsed.
	recs := make([]models.Recommendation, 0, len(decoded))
	for _, rec := range decoded {
		if rec == nil || strings.TrimSpace(rec.Title) == "" {
			continue
		}
		recs = append(recs, *rec)
	}
	if len(recs) == 0 && len(decoded) > 0 {
		return nil, false
	}
	return recs, true
}
