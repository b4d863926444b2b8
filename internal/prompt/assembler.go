// Package prompt turns a mode, preferences and the user's saved titles into
// the outbound turn sequence for the generation service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// SystemPrompt frames every conversation
const SystemPrompt = `You are a super friendly and excited manga enthusiast bot.
You love recommending manga to your friends in a fun, upbeat way.
IMPORTANT: You MUST NOT reference any personal user information,
emails, passwords, or any database content. Only use saved manga titles
and user preferences to make recommendations.`

// NoSavedTitles replaces the saved list when the user has not saved anything
const NoSavedTitles = "You have no saved manga"

// ExclusionDirective is the literal instruction keeping saved titles out of
// the recommendations
const ExclusionDirective = "make sure NOT to include any titles already in their saved list"

// GenericInstruction is sent when no mode has been chosen; replies to it
// carry no format contract
const GenericInstruction = "The user wants manga recommendations. Recommend 5 titles."

const responseFormat = `Respond in JSON format like this:
[
  { "title": "Example", "reason": "Why this fits the user" }
]`

// SavedList renders the saved titles for inclusion in an instruction
func SavedList(savedTitles []string) string {
	if len(savedTitles) == 0 {
		return NoSavedTitles
	}
	return strings.Join(savedTitles, ", ")
}

// Instruction builds the mode-specific instruction text
func Instruction(mode models.Mode, prefs models.Preferences, savedTitles []string) string {
	savedList := SavedList(savedTitles)

	switch mode {
	case models.ModeSaved:
		return fmt.Sprintf(`The user has these saved manga: %s.
Recommend 5 manga that are similar in style, genre, or theme,
but %s.
%s`, savedList, ExclusionDirective, responseFormat)

	case models.ModeQuestionnaire:
		return fmt.Sprintf(`The user has these saved manga: %s.
User preferences are: genres=%s,
length=%s,
tone=%s.
Recommend 5 manga that match preferences and are NOT in saved list,
%s.
%s`, savedList, orAny(prefs.Genres), orAny(prefs.Length), orAny(prefs.Tone), ExclusionDirective, responseFormat)

	default:
		return GenericInstruction
	}
}

// Assemble returns the full ordered turn sequence for one generation call:
// the system framing, the prior history verbatim, the mode instruction as a
// user turn, and finally the caller's message when there is one.
func Assemble(mode models.Mode, prefs models.Preferences, savedTitles []string, prior []models.Turn, newMessage string) []models.Turn {
	turns := make([]models.Turn, 0, len(prior)+3)
	turns = append(turns, models.Turn{Role: models.RoleSystem, Content: SystemPrompt})
	turns = append(turns, prior...)
	turns = append(turns, models.Turn{Role: models.RoleUser, Content: Instruction(mode, prefs, savedTitles)})

	if newMessage != "" {
		turns = append(turns, models.Turn{Role: models.RoleUser, Content: newMessage})
	}
	return turns
}

// LearnedTurn is the user-side turn recorded in the session after an
// exchange. Without free text the instruction itself is recorded so later
// rounds keep the original format contract.
func LearnedTurn(mode models.Mode, prefs models.Preferences, savedTitles []string, newMessage string) models.Turn {
	if newMessage != "" {
		return models.Turn{Role: models.RoleUser, Content: newMessage}
	}
	return models.Turn{Role: models.RoleUser, Content: Instruction(mode, prefs, savedTitles)}
}

func orAny(v string) string {
	if v == "" {
		return "Any"
	}
	return v
}
