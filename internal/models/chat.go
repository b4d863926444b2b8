package models

// Role identifies the author of a turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation
type Turn struct {
	Role    Role   `json:"role" db:"role"`
	Content string `json:"content" db:"content"`
}

// Mode is the recommendation strategy in effect for a session
type Mode string

const (
	ModeUnset         Mode = ""
	ModeSaved         Mode = "saved"
	ModeQuestionnaire Mode = "questionnaire"
)

// Valid reports whether the mode is one the server understands
func (m Mode) Valid() bool {
	switch m {
	case ModeUnset, ModeSaved, ModeQuestionnaire:
		return true
	}
	return false
}

// Length and tone values accepted in Preferences
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
	LengthAny    = "any"

	ToneDark    = "dark"
	ToneLight   = "light"
	ToneSerious = "serious"
	ToneComedic = "comedic"
	ToneAny     = "any"
)

// Preferences are the questionnaire answers resent with every request in
// questionnaire mode
type Preferences struct {
	Genres string `json:"genres,omitempty"`
	Length string `json:"length,omitempty" validate:"omitempty,oneof=short medium long any"`
	Tone   string `json:"tone,omitempty" validate:"omitempty,oneof=dark light serious comedic any"`
}

// Recommendation is a single title suggested by the assistant
type Recommendation struct {
	Title  string `json:"title"`
	Reason string `json:"reason,omitempty"`
}

// ChatRequest is the body of a chatbot message
type ChatRequest struct {
	SessionID   string       `json:"sessionId" validate:"required"`
	Mode        Mode         `json:"mode,omitempty" validate:"omitempty,oneof=saved questionnaire"`
	Preferences *Preferences `json:"preferences,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// ChatResponse is returned for a successful chatbot exchange
type ChatResponse struct {
	Reply           string           `json:"reply"`
	Recommendations []Recommendation `json:"recommendations"`
}

// UsageSummary reports the caller's quota consumption for today
type UsageSummary struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}
