// Package dialogue drives the client side of the recommendation chat: mode
// selection, preference collection, help and reset commands, and dispatch
// of messages to the chatbot server.
package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// State is the dialogue's position in the mode protocol
type State int

const (
	StateIdle State = iota
	StateAwaitingPreferences
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPreferences:
		return "awaiting_preferences"
	case StateActive:
		return "active"
	}
	return "unknown"
}

var (
	// ErrUnknownMode is returned when selecting a mode other than saved or questionnaire
	ErrUnknownMode = errors.New("unknown mode")
	// ErrModeLocked is returned when selecting a mode outside the idle state
	ErrModeLocked = errors.New("mode already selected, reset to choose again")
)

// Dispatcher delivers one chat request to the server
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// SessionDiscarder is implemented by dispatchers that can drop the server
// side turns of a session on reset
type SessionDiscarder interface {
	DiscardSession(ctx context.Context, sessionID string) error
}

// DispatchError carries a user-facing message for a failed dispatch
type DispatchError struct {
	Status  int
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	return e.Message
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Message is one entry of the displayed transcript
type Message struct {
	Role            models.Role             `json:"role"`
	Content         string                  `json:"content"`
	Recommendations []models.Recommendation `json:"recommendations,omitempty"`
	ShowModeButtons bool                    `json:"showModeButtons,omitempty"`
}

// Machine is the dialogue state machine. It is safe for concurrent use but
// processes one input at a time.
type Machine struct {
	mu          sync.Mutex
	dispatcher  Dispatcher
	newID       func() string
	state       State
	mode        models.Mode
	preferences models.Preferences
	sessionID   string
	transcript  []Message
}

// MachineOption configures a Machine
type MachineOption func(*Machine)

// WithSessionIDs overrides the session token generator
func WithSessionIDs(newID func() string) MachineOption {
	return func(m *Machine) {
		m.newID = newID
	}
}

// NewMachine creates a machine in the idle state, seeded with the greeting
func NewMachine(dispatcher Dispatcher, opts ...MachineOption) *Machine {
	m := &Machine{
		dispatcher: dispatcher,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.sessionID = m.newID()
	m.transcript = []Message{{Role: models.RoleAssistant, Content: GreetingText, ShowModeButtons: true}}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mode returns the active mode, empty while idle
func (m *Machine) Mode() models.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Preferences returns the questionnaire answers collected so far
func (m *Machine) Preferences() models.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preferences
}

// SessionID returns the current session token
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Transcript returns a copy of everything displayed since the last reset
func (m *Machine) Transcript() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]Message, len(m.transcript))
	copy(copied, m.transcript)
	return copied
}

// SelectMode chooses the recommendation strategy. Saved mode immediately
// runs one generation round; questionnaire mode asks for preferences first.
func (m *Machine) SelectMode(ctx context.Context, mode models.Mode) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mode != models.ModeSaved && mode != models.ModeQuestionnaire {
		return nil, ErrUnknownMode
	}
	if m.state != StateIdle {
		return nil, ErrModeLocked
	}

	m.mode = mode
	label := "Questionnaire Mode"
	if mode == models.ModeSaved {
		label = "Saved Mode"
	}
	out := m.emit(nil, Message{Role: models.RoleUser, Content: "Selected: " + label})

	if mode == models.ModeQuestionnaire {
		m.state = StateAwaitingPreferences
		return m.emit(out, Message{Role: models.RoleAssistant, Content: PreferencesPromptText}), nil
	}

	m.state = StateActive
	out = m.emit(out, Message{Role: models.RoleAssistant, Content: SavedModeText})
	return m.dispatch(ctx, out, ""), nil
}

// Send handles one line of user input
func (m *Machine) Send(ctx context.Context, text string) []Message {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if strings.EqualFold(trimmed, "reset") {
		return m.Reset(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.emit(nil, Message{Role: models.RoleUser, Content: text})

	if strings.EqualFold(trimmed, "help") {
		return m.emit(out, Message{Role: models.RoleAssistant, Content: HelpText})
	}

	switch m.state {
	case StateAwaitingPreferences:
		m.preferences = ParsePreferences(text)
		m.state = StateActive
		return m.dispatch(ctx, out, "")

	case StateActive:
		return m.dispatch(ctx, out, text)

	default:
		return m.emit(out, Message{Role: models.RoleAssistant, Content: SelectModeFirstText, ShowModeButtons: true})
	}
}

// Reset returns to the idle state under a fresh session token. The old
// session is discarded on the server when the dispatcher supports it.
func (m *Machine) Reset(ctx context.Context) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.sessionID
	if d, ok := m.dispatcher.(SessionDiscarder); ok {
		_ = d.DiscardSession(ctx, old)
	}

	m.sessionID = m.newID()
	m.state = StateIdle
	m.mode = models.ModeUnset
	m.preferences = models.Preferences{}
	m.transcript = nil
	return m.emit(nil, Message{Role: models.RoleAssistant, Content: ResetText, ShowModeButtons: true})
}

func (m *Machine) dispatch(ctx context.Context, out []Message, text string) []Message {
	req := models.ChatRequest{
		SessionID: m.sessionID,
		Mode:      m.mode,
		Message:   text,
	}
	if m.mode == models.ModeQuestionnaire {
		prefs := m.preferences
		req.Preferences = &prefs
	}

	resp, err := m.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return m.emit(out, Message{Role: models.RoleAssistant, Content: failureText(err)})
	}
	return m.emit(out, Message{
		Role:            models.RoleAssistant,
		Content:         resp.Reply,
		Recommendations: resp.Recommendations,
	})
}

func (m *Machine) emit(out []Message, msg Message) []Message {
	m.transcript = append(m.transcript, msg)
	return append(out, msg)
}

func failureText(err error) string {
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) && dispatchErr.Message != "" {
		return dispatchErr.Message
	}
	return FailureText
}
