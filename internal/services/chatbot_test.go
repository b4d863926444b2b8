package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangatrack/mangatrack-backend/internal/dialogue"
	"github.com/mangatrack/mangatrack-backend/internal/logging"
	"github.com/mangatrack/mangatrack-backend/internal/metrics"
	"github.com/mangatrack/mangatrack-backend/internal/models"
	"github.com/mangatrack/mangatrack-backend/internal/prompt"
	"github.com/mangatrack/mangatrack-backend/internal/providers"
	"github.com/mangatrack/mangatrack-backend/internal/providers/stub"
	"github.com/mangatrack/mangatrack-backend/internal/recommend"
	"github.com/mangatrack/mangatrack-backend/internal/repository"
	"github.com/mangatrack/mangatrack-backend/internal/session"
	"github.com/mangatrack/mangatrack-backend/internal/usage"
)

const onePiece = `[{"title":"One Piece","reason":"Shonen adventure"}]`

type fixture struct {
	chatbot  *Chatbot
	provider *stub.Provider
	saved    *repository.MemorySavedManga
	sessions *session.MemoryStore
	ledger   *usage.MemoryLedger
}

func newFixture(t *testing.T, provider *stub.Provider, limit int) *fixture {
	t.Helper()

	f := &fixture{
		provider: provider,
		saved:    repository.NewMemorySavedManga(),
		sessions: session.NewMemoryStore(),
		ledger:   usage.NewMemoryLedger(),
	}
	governor := usage.NewGovernor(f.ledger, usage.WithClock(func() time.Time {
		return time.Date(2026, 10, 16, 14, 30, 0, 0, time.Local)
	}))
	f.chatbot = NewChatbot(governor, f.saved, f.sessions, provider, ChatbotConfig{
		DailyLimit: limit,
		Model:      "gpt-4o-mini",
		MaxTokens:  400,
		Timeout:    time.Second,
	}, logging.Discard())
	return f
}

func lastUserContent(req providers.CompletionRequest) string {
	return req.Messages[len(req.Messages)-1].Content
}

func TestChat_SavedModeExcludesSavedTitles(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)
	ctx := context.Background()
	require.NoError(t, f.saved.Save(ctx, "reader", "Naruto"))
	require.NoError(t, f.saved.Save(ctx, "reader", "Bleach"))

	resp, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1", Mode: models.ModeSaved})
	require.NoError(t, err)

	assert.Equal(t, Reply, resp.Reply)
	assert.Equal(t, []models.Recommendation{{Title: "One Piece", Reason: "Shonen adventure"}}, resp.Recommendations)

	requests := f.provider.Requests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 400, *req.MaxTokens)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	instruction := lastUserContent(req)
	assert.Contains(t, instruction, "Naruto")
	assert.Contains(t, instruction, "Bleach")
	assert.Contains(t, instruction, prompt.ExclusionDirective)
}

func TestChat_QuestionnairePreferencesReachThePrompt(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)

	_, err := f.chatbot.Chat(context.Background(), "reader", models.ChatRequest{
		SessionID:   "s1",
		Mode:        models.ModeQuestionnaire,
		Preferences: &models.Preferences{Genres: "action", Length: "short", Tone: "dark"},
	})
	require.NoError(t, err)

	instruction := lastUserContent(f.provider.Requests()[0])
	assert.Contains(t, instruction, "genres=action")
	assert.Contains(t, instruction, "length=short")
	assert.Contains(t, instruction, "tone=dark")
	assert.Contains(t, instruction, prompt.NoSavedTitles)
}

func TestChat_HistoryGrowsByTwoTurnsPerExchange(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)
	ctx := context.Background()

	messages := []string{"", "something darker", "older titles please"}
	for _, msg := range messages {
		_, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1", Mode: models.ModeSaved, Message: msg})
		require.NoError(t, err)
	}

	history, err := f.sessions.History(ctx, sessionKey("reader", "s1"))
	require.NoError(t, err)
	require.Len(t, history, 2*len(messages))
	for i, turn := range history {
		if i%2 == 0 {
			assert.Equal(t, models.RoleUser, turn.Role)
		} else {
			assert.Equal(t, models.RoleAssistant, turn.Role)
			assert.Equal(t, onePiece, turn.Content)
		}
	}

	// Without a message the instruction itself is remembered
	assert.Contains(t, history[0].Content, prompt.ExclusionDirective)
	assert.Equal(t, "something darker", history[2].Content)

	// Third request: system + 4 prior turns + instruction + message
	last := f.provider.Requests()[2]
	require.Len(t, last.Messages, 7)
	assert.Equal(t, "older titles please", lastUserContent(last))
}

func TestChat_SessionsAreScopedPerUser(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)
	ctx := context.Background()

	_, err := f.chatbot.Chat(ctx, "alice", models.ChatRequest{SessionID: "shared", Message: "hi"})
	require.NoError(t, err)
	_, err = f.chatbot.Chat(ctx, "bob", models.ChatRequest{SessionID: "shared", Message: "hello"})
	require.NoError(t, err)

	// Bob's request carried no history from Alice
	assert.Len(t, f.provider.Requests()[1].Messages, 3)

	require.NoError(t, f.chatbot.DiscardSession(ctx, "bob", "shared"))
	alice, err := f.sessions.History(ctx, sessionKey("alice", "shared"))
	require.NoError(t, err)
	assert.Len(t, alice, 2)
}

func TestChat_SessionKeysDoNotCollideAcrossUsers(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)
	ctx := context.Background()

	assert.NotEqual(t, sessionKey("alice", "x:y"), sessionKey("alice:x", "y"))

	_, err := f.chatbot.Chat(ctx, "alice", models.ChatRequest{SessionID: "x:y", Message: "hi"})
	require.NoError(t, err)
	_, err = f.chatbot.Chat(ctx, "alice:x", models.ChatRequest{SessionID: "y", Message: "hello"})
	require.NoError(t, err)

	assert.Len(t, f.provider.Requests()[1].Messages, 3)
}

func TestChat_QuotaRejectsTheMessageAfterTheLimit(t *testing.T) {
	const limit = 3
	f := newFixture(t, stub.NewProvider(onePiece), limit)
	ctx := context.Background()

	for i := 0; i < limit; i++ {
		_, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1"})
		require.NoError(t, err)
	}

	_, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1"})
	var quotaErr *usage.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, limit+1, quotaErr.Count)

	// The rejected message never reached the generator or the session
	assert.Len(t, f.provider.Requests(), limit)
	history, _ := f.sessions.History(ctx, sessionKey("reader", "s1"))
	assert.Len(t, history, 2*limit)

	summary, err := f.chatbot.Usage(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, models.UsageSummary{Date: "2026-10-16", Count: limit + 1, Limit: limit, Remaining: 0}, *summary)

	status, message := Classify(err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "You have reached your daily chatbot limit of 3 messages. Come back tomorrow!", message)
}

func TestChat_MissingSessionID(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)

	_, err := f.chatbot.Chat(context.Background(), "reader", models.ChatRequest{Message: "hi"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "sessionId is required", validationErr.Message)

	count, _ := f.ledger.Count(context.Background(), "reader", usage.Day(time.Date(2026, 10, 16, 0, 0, 0, 0, time.Local)))
	assert.Zero(t, count)
	assert.Empty(t, f.provider.Requests())
}

func TestChat_UnknownModesShareOneMetricSeries(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 20)
	ctx := context.Background()
	invalid := metrics.ChatRequestsTotal.WithLabelValues(metrics.ModeInvalid, metrics.OutcomeInvalid)

	_, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1", Mode: "warmup"})
	require.Error(t, err)
	series := testutil.CollectAndCount(metrics.ChatRequestsTotal)
	before := testutil.ToFloat64(invalid)

	for i := 0; i < 5; i++ {
		_, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1", Mode: models.Mode(fmt.Sprintf("made-up-%d", i))})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	}

	assert.Equal(t, series, testutil.CollectAndCount(metrics.ChatRequestsTotal))
	assert.Equal(t, before+5, testutil.ToFloat64(invalid))
}

func TestChat_UpstreamFailure(t *testing.T) {
	f := newFixture(t, stub.NewFailing(errors.New("connection refused")), 20)
	ctx := context.Background()

	_, err := f.chatbot.Chat(ctx, "reader", models.ChatRequest{SessionID: "s1", Message: "hi"})

	var upstreamErr *UpstreamGenerationError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "stub", upstreamErr.Provider)

	status, message := Classify(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, FailureMessage, message)

	// Nothing learned, but the attempt was counted
	history, _ := f.sessions.History(ctx, sessionKey("reader", "s1"))
	assert.Empty(t, history)
	summary, _ := f.chatbot.Usage(ctx, "reader")
	assert.Equal(t, 1, summary.Count)
}

func TestChat_UnparseableReplyFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t, stub.NewProvider("Sorry, I cannot help with that."), 20)

	resp, err := f.chatbot.Chat(context.Background(), "reader", models.ChatRequest{SessionID: "s1"})
	require.NoError(t, err)

	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, recommend.PlaceholderTitle, resp.Recommendations[0].Title)
	assert.Equal(t, prompt.GenericInstruction, lastUserContent(f.provider.Requests()[0]))
}

func TestChat_ProseWrappedArray(t *testing.T) {
	f := newFixture(t, stub.NewProvider("Sure! Here you go:\n"+onePiece+"\nEnjoy!"), 20)

	resp, err := f.chatbot.Chat(context.Background(), "reader", models.ChatRequest{SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "One Piece", resp.Recommendations[0].Title)
}

func TestClassify_Internal(t *testing.T) {
	status, message := Classify(errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, FailureMessage, message)
	assert.False(t, strings.Contains(message, "db"))
}

func TestDialogueDispatcher(t *testing.T) {
	f := newFixture(t, stub.NewProvider(onePiece), 1)
	ctx := context.Background()
	m := dialogue.NewMachine(NewDialogueDispatcher(f.chatbot, "reader"))

	out, err := m.SelectMode(ctx, models.ModeSaved)
	require.NoError(t, err)
	assert.Equal(t, "One Piece", out[len(out)-1].Recommendations[0].Title)

	out = m.Send(ctx, "more please")
	assert.Equal(t, "You have reached your daily chatbot limit of 1 messages. Come back tomorrow!", out[len(out)-1].Content)

	oldSession := m.SessionID()
	m.Reset(ctx)
	history, _ := f.sessions.History(ctx, sessionKey("reader", oldSession))
	assert.Empty(t, history)
}
