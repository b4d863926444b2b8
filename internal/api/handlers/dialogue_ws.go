package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/mangatrack/mangatrack-backend/internal/api/middleware"
	"github.com/mangatrack/mangatrack-backend/internal/dialogue"
	"github.com/mangatrack/mangatrack-backend/internal/metrics"
	"github.com/mangatrack/mangatrack-backend/internal/models"
	"github.com/mangatrack/mangatrack-backend/internal/services"
)

// Client frame types
const (
	FrameMode    = "mode"
	FrameMessage = "message"
	FrameReset   = "reset"
)

// DialogueFrame is sent by the client over the dialogue websocket
type DialogueFrame struct {
	Type string      `json:"type"`
	Mode models.Mode `json:"mode,omitempty"`
	Text string      `json:"text,omitempty"`
}

// DialogueState is sent to the client after every frame: the machine state
// and the messages the frame produced
type DialogueState struct {
	State     string             `json:"state"`
	Mode      models.Mode        `json:"mode"`
	SessionID string             `json:"sessionId"`
	Messages  []dialogue.Message `json:"messages"`
	Error     string             `json:"error,omitempty"`
}

// RequireUpgrade rejects plain HTTP requests to websocket routes
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// DialogueSocket handles GET /api/chatbot/ws. Each connection hosts its own
// dialogue machine that dispatches to the chatbot in-process. A client that
// disconnects cancels the message being generated for it.
func DialogueSocket(chatbot *services.Chatbot, logger logrus.FieldLogger) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(middleware.LocalUserID).(string)
		log := logger.WithField("user_id", userID)

		metrics.ActiveDialogues.Inc()
		defer metrics.ActiveDialogues.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		frames := make(chan DialogueFrame)
		readerDone := make(chan struct{})

		// The connection goes back to a pool when the handler returns, so the
		// reader must have exited by then.
		defer func() {
			cancel()
			_ = c.Close()
			<-readerDone
		}()

		machine := dialogue.NewMachine(services.NewDialogueDispatcher(chatbot, userID))
		if err := c.WriteJSON(snapshot(machine, machine.Transcript(), nil)); err != nil {
			close(readerDone)
			return
		}
		log.WithField("session_id", machine.SessionID()).Debug("Dialogue opened")

		go func() {
			defer close(readerDone)
			defer close(frames)
			defer cancel()
			for {
				var frame DialogueFrame
				if err := c.ReadJSON(&frame); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						log.WithError(err).Warn("Dialogue connection dropped")
					}
					return
				}
				select {
				case frames <- frame:
				case <-ctx.Done():
					return
				}
			}
		}()

		for frame := range frames {
			messages, err := apply(ctx, machine, frame)
			if err := c.WriteJSON(snapshot(machine, messages, err)); err != nil {
				return
			}
		}
	})
}

func apply(ctx context.Context, machine *dialogue.Machine, frame DialogueFrame) ([]dialogue.Message, error) {
	switch frame.Type {
	case FrameMode:
		return machine.SelectMode(ctx, frame.Mode)
	case FrameMessage:
		return machine.Send(ctx, frame.Text), nil
	case FrameReset:
		return machine.Reset(ctx), nil
	default:
		return nil, errors.New("unknown frame type")
	}
}

func snapshot(machine *dialogue.Machine, messages []dialogue.Message, err error) DialogueState {
	if messages == nil {
		messages = []dialogue.Message{}
	}
	state := DialogueState{
		State:     machine.State().String(),
		Mode:      machine.Mode(),
		SessionID: machine.SessionID(),
		Messages:  messages,
	}
	if err != nil {
		state.Error = err.Error()
	}
	return state
}
