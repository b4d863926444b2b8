package services

import (
	"context"

	"github.com/mangatrack/mangatrack-backend/internal/dialogue"
	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// DialogueDispatcher lets a server-side dialogue.Machine talk to the chatbot
// in-process on behalf of one authenticated user
type DialogueDispatcher struct {
	chatbot *Chatbot
	userID  string
}

// NewDialogueDispatcher binds the chatbot to a user
func NewDialogueDispatcher(chatbot *Chatbot, userID string) *DialogueDispatcher {
	return &DialogueDispatcher{chatbot: chatbot, userID: userID}
}

// Dispatch runs one chat exchange, translating failures into the same
// status and message an HTTP client would receive
func (d *DialogueDispatcher) Dispatch(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	resp, err := d.chatbot.Chat(ctx, d.userID, req)
	if err != nil {
		status, message := Classify(err)
		return nil, &dialogue.DispatchError{Status: status, Message: message, Err: err}
	}
	return resp, nil
}

// DiscardSession drops the turns of a session being reset
func (d *DialogueDispatcher) DiscardSession(ctx context.Context, sessionID string) error {
	return d.chatbot.DiscardSession(ctx, d.userID, sessionID)
}
