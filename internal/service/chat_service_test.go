package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oho-chat-gateway/internal/dto"
	"oho-chat-gateway/internal/pkg/logger"
	"oho-chat-gateway/pkg/chat"
	"oho-chat-gateway/pkg/chat/ratelimit"
	"oho-chat-gateway/pkg/flow"
	"oho-chat-gateway/pkg/flow/extract"
	"oho-chat-gateway/pkg/flow/tweaks"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }
func (nopLogger) GetLogs(string, int, int) ([]logger.LogEntry, error) {
	return nil, nil
}

type mockEngine struct {
	lastInput flow.RunInput
	result    any
	err       error
	calls     int
}

func (m *mockEngine) Run(_ context.Context, in flow.RunInput) (any, error) {
	m.calls++
	m.lastInput = in
	return m.result, m.err
}

func structuredResult(t *testing.T, text, sessionID string) any {
	t.Helper()
	raw := fmt.Sprintf(`[{"outputs": [{"results": {"message": {"data": {"text": %q, "session_id": %q}}}}]}]`, text, sessionID)
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func newTestService(engine flow.Runner, memo *chat.MemoCache, configErr error) (IChatService, chat.Store) {
	store := chat.NewMemoryStore(time.Minute)
	overlay := &tweaks.Overlay{
		InputNode:         "ChatInput-a",
		OutputNode:        "ChatOutput-b",
		MemoryNode:        "Memory-c",
		PromptNode:        "Prompt-d",
		UserSender:        "User",
		UserSenderName:    "User",
		MachineSender:     "Machine",
		MachineSenderName: "AI",
	}
	base := tweaks.Map{
		"ChatInput-a":  {},
		"ChatOutput-b": {},
		"Memory-c":     {},
		"Prompt-d":     {},
		"OpenAIModel-e": {
			"model_name": "gpt-4o-mini",
		},
	}
	svc := NewChatService(
		engine,
		overlay,
		base,
		extract.New(""),
		store,
		ratelimit.New(0, 0), // disabled in tests
		memo,
		nil,
		"TEST_TOPIC",
		nopLogger{},
		6,
		configErr,
	)
	return svc, store
}

func TestChatEndToEnd(t *testing.T) {
	engine := &mockEngine{result: structuredResult(t, "We're open 9-5", "abc")}
	svc, store := newTestService(engine, nil, nil)

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message:   "What are your hours?",
		SessionID: "abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "We're open 9-5", res.Response)
	assert.Equal(t, "abc", res.SessionID)

	// The invocation carried the session overlay but an empty memory on
	// the first turn.
	assert.Equal(t, "abc", engine.lastInput.SessionID)
	assert.True(t, engine.lastInput.FallbackToEnv)
	assert.Equal(t, "abc", engine.lastInput.Tweaks["ChatInput-a"]["session_id"])
	assert.Equal(t, "", engine.lastInput.Tweaks["Prompt-d"]["memory"])
	assert.Equal(t, "gpt-4o-mini", engine.lastInput.Tweaks["OpenAIModel-e"]["model_name"])

	// Transcript gained both turns.
	session, found, err := store.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, session.Turns, 2)
	assert.Equal(t, chat.RoleUser, session.Turns[0].Role)
	assert.Equal(t, "What are your hours?", session.Turns[0].Text)
	assert.Equal(t, chat.RoleAssistant, session.Turns[1].Role)
	assert.Equal(t, "We're open 9-5", session.Turns[1].Text)
}

func TestChatSecondTurnCarriesMemory(t *testing.T) {
	engine := &mockEngine{result: structuredResult(t, "reply one", "s")}
	svc, _ := newTestService(engine, nil, nil)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "first", SessionID: "s"})
	require.NoError(t, err)

	engine.result = structuredResult(t, "reply two", "s")
	_, err = svc.Chat(context.Background(), &dto.ChatRequest{Message: "second", SessionID: "s"})
	require.NoError(t, err)

	assert.Equal(t, "User: first\nAssistant: reply one", engine.lastInput.Tweaks["Prompt-d"]["memory"])
	// The engine memory blob from turn one is echoed back on turn two.
	assert.NotNil(t, engine.lastInput.Tweaks["Memory-c"]["state"])
}

func TestChatAssignsSessionID(t *testing.T) {
	engine := &mockEngine{result: structuredResult(t, "hello", "")}
	svc, _ := newTestService(engine, nil, nil)

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, res.SessionID, engine.lastInput.SessionID)
}

func TestChatEngineFailure(t *testing.T) {
	engine := &mockEngine{err: errors.New("connection refused")}
	svc, store := newTestService(engine, nil, nil)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi", SessionID: "s"})
	require.Error(t, err)

	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusInternalServerError, fe.Code)

	// The session stays usable for the next turn.
	engine.err = nil
	engine.result = structuredResult(t, "recovered", "s")
	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "again", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Response)

	session, found, _ := store.Get(context.Background(), "s")
	require.True(t, found)
	assert.Len(t, session.Turns, 2)
}

func TestChatRefusedWhileMisconfigured(t *testing.T) {
	engine := &mockEngine{}
	svc, _ := newTestService(engine, nil, errors.New("missing required credentials: OPENAI_API_KEY"))

	require.Error(t, svc.Ready())

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi"})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusServiceUnavailable, fe.Code)
	assert.Zero(t, engine.calls, "engine must not be invoked while misconfigured")
}

func TestChatMemoHitSkipsEngine(t *testing.T) {
	engine := &mockEngine{result: structuredResult(t, "fresh", "s")}
	memo := chat.NewMemoCache(time.Minute, 16)
	svc, store := newTestService(engine, memo, nil)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi", SessionID: "s"})
	require.NoError(t, err)
	require.Equal(t, 1, engine.calls)

	// Clear so the rendered history matches the first turn again.
	require.NoError(t, svc.ClearSession(context.Background(), "s"))

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Response)
	assert.Equal(t, 1, engine.calls, "memoized turn must not invoke the engine")

	session, found, _ := store.Get(context.Background(), "s")
	require.True(t, found)
	assert.Len(t, session.Turns, 2, "memo hit still appends the turns")
}

func TestClearSessionResetsState(t *testing.T) {
	engine := &mockEngine{result: structuredResult(t, "reply", "s")}
	svc, store := newTestService(engine, nil, nil)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi", SessionID: "s"})
	require.NoError(t, err)

	require.NoError(t, svc.ClearSession(context.Background(), "s"))

	session, found, _ := store.Get(context.Background(), "s")
	require.True(t, found)
	assert.Empty(t, session.Turns)
	assert.Nil(t, session.EngineState)

	// Next turn's overlay carries an empty memory string.
	engine.result = structuredResult(t, "next", "s")
	_, err = svc.Chat(context.Background(), &dto.ChatRequest{Message: "fresh start", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, "", engine.lastInput.Tweaks["Prompt-d"]["memory"])
}

func TestHistoryAndDebug(t *testing.T) {
	engine := &mockEngine{result: structuredResult(t, "reply", "s")}
	svc, _ := newTestService(engine, nil, nil)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Message: "hi", SessionID: "s"})
	require.NoError(t, err)

	hist, err := svc.History(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, hist.Turns, 2)
	assert.Equal(t, "user", hist.Turns[0].Role)

	dbg, err := svc.Debug(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "User: hi\nAssistant: reply", dbg.Memory)
	assert.NotNil(t, dbg.LastTweaks)
	assert.NotNil(t, dbg.LastRaw)
	assert.Equal(t, 2, dbg.TurnCount)

	_, err = svc.History(context.Background(), "missing")
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}
