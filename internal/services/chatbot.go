package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/mangatrack/mangatrack-backend/internal/metrics"
	"github.com/mangatrack/mangatrack-backend/internal/models"
	"github.com/mangatrack/mangatrack-backend/internal/prompt"
	"github.com/mangatrack/mangatrack-backend/internal/providers"
	"github.com/mangatrack/mangatrack-backend/internal/recommend"
	"github.com/mangatrack/mangatrack-backend/internal/repository"
	"github.com/mangatrack/mangatrack-backend/internal/session"
	"github.com/mangatrack/mangatrack-backend/internal/usage"
	"github.com/mangatrack/mangatrack-backend/internal/validation"
)

// Reply is the fixed conversational text returned with every recommendation set
const Reply = "Here are some manga recommendations for you! 🎉"

// ValidationError is returned for malformed chat requests
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamGenerationError wraps any failure of the text generation service,
// including timeouts and an open circuit
type UpstreamGenerationError struct {
	Provider string
	Err      error
}

func (e *UpstreamGenerationError) Error() string {
	return fmt.Sprintf("generation via %s failed: %v", e.Provider, e.Err)
}

func (e *UpstreamGenerationError) Unwrap() error {
	return e.Err
}

// ChatbotConfig holds the per-request generation and quota settings
type ChatbotConfig struct {
	DailyLimit  int
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Chatbot runs one recommendation exchange per message
type Chatbot struct {
	governor *usage.Governor
	saved    repository.SavedMangaRepository
	sessions session.Store
	provider providers.Provider
	config   ChatbotConfig
	logger   logrus.FieldLogger
}

// NewChatbot creates the chatbot service
func NewChatbot(
	governor *usage.Governor,
	saved repository.SavedMangaRepository,
	sessions session.Store,
	provider providers.Provider,
	config ChatbotConfig,
	logger logrus.FieldLogger,
) *Chatbot {
	if config.DailyLimit <= 0 {
		config.DailyLimit = usage.DefaultDailyLimit
	}
	return &Chatbot{
		governor: governor,
		saved:    saved,
		sessions: sessions,
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Chat handles one chatbot message for an authenticated user. The daily
// quota is charged before anything else happens, so failed generations
// still count against it.
func (s *Chatbot) Chat(ctx context.Context, userID string, req models.ChatRequest) (*models.ChatResponse, error) {
	log := s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": req.SessionID,
		"mode":       string(req.Mode),
	})

	resp, outcome, err := s.chat(ctx, log, userID, req)
	metrics.RecordChat(modeLabel(req.Mode), outcome)
	return resp, err
}

// modeLabel keeps client-supplied modes out of metric label values
func modeLabel(mode models.Mode) string {
	if !mode.Valid() {
		return metrics.ModeInvalid
	}
	return string(mode)
}

func (s *Chatbot) chat(ctx context.Context, log logrus.FieldLogger, userID string, req models.ChatRequest) (*models.ChatResponse, string, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, metrics.OutcomeInvalid, &ValidationError{Message: err.Error()}
	}

	count, err := s.governor.CheckAndIncrement(ctx, userID, s.config.DailyLimit)
	if err != nil {
		var quotaErr *usage.QuotaExceededError
		if errors.As(err, &quotaErr) {
			log.WithField("count", quotaErr.Count).Info("Daily chatbot limit reached")
			return nil, metrics.OutcomeQuota, err
		}
		log.WithError(err).Error("Failed to charge chatbot usage")
		return nil, metrics.OutcomeInternal, err
	}

	var savedTitles []string
	if req.Mode == models.ModeSaved || req.Mode == models.ModeQuestionnaire {
		savedTitles, err = s.saved.ListTitles(ctx, userID)
		if err != nil {
			log.WithError(err).Error("Failed to load saved manga")
			return nil, metrics.OutcomeInternal, fmt.Errorf("load saved titles: %w", err)
		}
	}

	key := sessionKey(userID, req.SessionID)
	prior, err := s.sessions.History(ctx, key)
	if err != nil {
		log.WithError(err).Error("Failed to load session history")
		return nil, metrics.OutcomeInternal, fmt.Errorf("load session history: %w", err)
	}

	var prefs models.Preferences
	if req.Mode == models.ModeQuestionnaire && req.Preferences != nil {
		prefs = *req.Preferences
	}

	turns := prompt.Assemble(req.Mode, prefs, savedTitles, prior, req.Message)
	raw, err := s.generate(ctx, turns)
	if err != nil {
		log.WithError(err).Warn("Text generation failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, metrics.OutcomeBreakerOff, err
		}
		return nil, metrics.OutcomeUpstream, err
	}

	result := recommend.Interpret(raw)
	metrics.RecordInterpreterTier(string(result.Tier))

	learned := prompt.LearnedTurn(req.Mode, prefs, savedTitles, req.Message)
	if err := s.sessions.Append(ctx, key, learned); err != nil {
		return nil, metrics.OutcomeInternal, fmt.Errorf("append user turn: %w", err)
	}
	if err := s.sessions.Append(ctx, key, models.Turn{Role: models.RoleAssistant, Content: raw}); err != nil {
		return nil, metrics.OutcomeInternal, fmt.Errorf("append assistant turn: %w", err)
	}

	log.WithFields(logrus.Fields{
		"tier":            string(result.Tier),
		"recommendations": len(result.Recommendations),
		"count":           count,
		"history":         len(prior) + 2,
	}).Info("Chatbot exchange completed")

	return &models.ChatResponse{
		Reply:           Reply,
		Recommendations: result.Recommendations,
	}, metrics.OutcomeOK, nil
}

func (s *Chatbot) generate(ctx context.Context, turns []models.Turn) (string, error) {
	messages := make([]providers.Message, len(turns))
	for i, turn := range turns {
		messages[i] = providers.Message{Role: string(turn.Role), Content: turn.Content}
	}

	req := providers.CompletionRequest{
		Messages: messages,
		Model:    s.config.Model,
	}
	if s.config.MaxTokens > 0 {
		maxTokens := s.config.MaxTokens
		req.MaxTokens = &maxTokens
	}
	if s.config.Temperature > 0 {
		temperature := s.config.Temperature
		req.Temperature = &temperature
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	var content string
	resp, err := s.provider.Complete(ctx, req)
	if err == nil {
		content, err = resp.FirstContent()
	}
	metrics.RecordGeneration(s.provider.Name(), time.Since(start), err)
	if err != nil {
		return "", &UpstreamGenerationError{Provider: s.provider.Name(), Err: err}
	}
	return content, nil
}

// Usage reports the user's quota consumption for today
func (s *Chatbot) Usage(ctx context.Context, userID string) (*models.UsageSummary, error) {
	count, err := s.governor.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining := s.config.DailyLimit - count
	if remaining < 0 {
		remaining = 0
	}

	return &models.UsageSummary{
		Date:      s.governor.Today().Format(usage.DayLayout),
		Count:     count,
		Limit:     s.config.DailyLimit,
		Remaining: remaining,
	}, nil
}

// DiscardSession drops all turns of one of the user's chat sessions
func (s *Chatbot) DiscardSession(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return &ValidationError{Message: "sessionId is required"}
	}
	if err := s.sessions.Discard(ctx, sessionKey(userID, sessionID)); err != nil {
		return fmt.Errorf("discard session: %w", err)
	}
	s.logger.WithField("session_id", sessionID).Debug("Chat session discarded")
	return nil
}

// sessionKey scopes client-chosen session ids to their owner so one user can
// neither read nor discard another user's history. The length prefix keeps
// the key unambiguous whatever characters either id contains.
func sessionKey(userID, sessionID string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + ":" + sessionID
}
