package dialogue

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/mangatrack/mangatrack-backend/internal/models"
)

// UnavailableText is shown when the chatbot server cannot be reached
const UnavailableText = "Chatbot service is unavailable."

// HTTPClient dispatches dialogue requests to the chatbot HTTP API
type HTTPClient struct {
	baseURL string
	token   string
	timeout time.Duration
}

// NewHTTPClient creates a client for the API rooted at baseURL, sending the
// given bearer token with every request
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
	}
}

// Dispatch sends one chat message
func (c *HTTPClient) Dispatch(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	agent := c.prepare(ctx, fiber.Post(c.baseURL+"/api/chatbot"))
	agent.JSONEncoder(json.Marshal).JSON(req)

	var resp models.ChatResponse
	if err := c.do(agent, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DiscardSession drops the server-side turns of a session
func (c *HTTPClient) DiscardSession(ctx context.Context, sessionID string) error {
	agent := c.prepare(ctx, fiber.Delete(c.baseURL+"/api/chatbot/sessions/"+url.PathEscape(sessionID)))
	return c.do(agent, nil)
}

// Usage reports the caller's quota consumption for today
func (c *HTTPClient) Usage(ctx context.Context) (*models.UsageSummary, error) {
	agent := c.prepare(ctx, fiber.Get(c.baseURL+"/api/chatbot/usage"))

	var summary models.UsageSummary
	if err := c.do(agent, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *HTTPClient) prepare(ctx context.Context, agent *fiber.Agent) *fiber.Agent {
	agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	return agent
}

func (c *HTTPClient) do(agent *fiber.Agent, out interface{}) error {
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return &DispatchError{Message: UnavailableText, Err: errs[0]}
	}

	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)

		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		if msg == "" {
			msg = FailureText
		}
		return &DispatchError{Status: status, Message: msg, Err: fmt.Errorf("chatbot returned status %d", status)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DispatchError{Status: status, Message: FailureText, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
