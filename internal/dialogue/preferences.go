package dialogue

import (
	"strings"

	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// GenreVocabulary lists the genres recognised in questionnaire answers, in
// the order they are reported
var GenreVocabulary = []string{
	"action",
	"romance",
	"fantasy",
	"horror",
	"comedy",
	"slice of life",
	"sci-fi",
	"thriller",
}

type keywordRule struct {
	value    string
	keywords []string
}

// First matching rule wins, so order encodes precedence.
var lengthRules = []keywordRule{
	{value: models.LengthShort, keywords: []string{"short"}},
	{value: models.LengthMedium, keywords: []string{"medium"}},
	{value: models.LengthLong, keywords: []string{"long"}},
}

var toneRules = []keywordRule{
	{value: models.ToneDark, keywords: []string{"dark"}},
	{value: models.ToneLight, keywords: []string{"light"}},
	{value: models.ToneSerious, keywords: []string{"serious"}},
	{value: models.ToneComedic, keywords: []string{"comedic", "funny"}},
}

// ParsePreferences extracts questionnaire answers from free text by keyword
// matching. Unmatched length and tone default to "any"; unmatched genres
// leave the field empty.
func ParsePreferences(text string) models.Preferences {
	lower := strings.ToLower(text)

	var genres []string
	for _, genre := range GenreVocabulary {
		if strings.Contains(lower, genre) {
			genres = append(genres, genre)
		}
	}

	return models.Preferences{
		Genres: strings.Join(genres, ", "),
		Length: matchRule(lower, lengthRules, models.LengthAny),
		Tone:   matchRule(lower, toneRules, models.ToneAny),
	}
}

func matchRule(lower string, rules []keywordRule, fallback string) string {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.value
			}
		}
	}
	return fallback
}
