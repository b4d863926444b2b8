// Package stub provides a canned text generation backend for local
// development and tests.
package stub

import (
	"context"
	"sync"

	"github.com/mangatrack/mangatrack-backend/internal/providers"
)

// DefaultReply is what the stub answers when no script is given
const DefaultReply = `[
  {"title": "One Piece", "reason": "A long-running adventure full of heart and humor."},
  {"title": "Vinland Saga", "reason": "A gripping historical epic about revenge and growth."},
  {"title": "Frieren: Beyond Journey's End", "reason": "A gentle fantasy about time and memory."},
  {"title": "Chainsaw Man", "reason": "Wild, dark action with a big personality."},
  {"title": "Blue Period", "reason": "An inspiring slice-of-life story about art."}
]`

// Provider replays scripted replies in order, repeating the last one
type Provider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	next     int
	requests []providers.CompletionRequest
}

// NewProvider creates a stub answering with replies, or DefaultReply when
// none are given
func NewProvider(replies ...string) *Provider {
	if len(replies) == 0 {
		replies = []string{DefaultReply}
	}
	return &Provider{replies: replies}
}

// NewFailing creates a stub whose every completion fails with err
func NewFailing(err error) *Provider {
	return &Provider{err: err}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "stub"
}

// Complete records the request and returns the next scripted reply
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}

	reply := p.replies[p.next]
	if p.next < len(p.replies)-1 {
		p.next++
	}

	return &providers.CompletionResponse{
		ID:    "stub",
		Model: req.Model,
		Choices: []providers.Choice{{
			Message:      providers.Message{Role: "assistant", Content: reply},
			FinishReason: "stop",
		}},
	}, nil
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	return nil
}

// Requests returns a copy of every request received so far
func (p *Provider) Requests() []providers.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]providers.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
