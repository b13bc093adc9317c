package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"oho-chat-gateway/internal/dto"
	"oho-chat-gateway/internal/pkg/logger"
	"oho-chat-gateway/pkg/chat"
	"oho-chat-gateway/pkg/chat/ratelimit"
	"oho-chat-gateway/pkg/flow"
	"oho-chat-gateway/pkg/flow/extract"
	"oho-chat-gateway/pkg/flow/tweaks"
)

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	History(ctx context.Context, sessionID string) (*dto.SessionHistoryResponse, error)
	ClearSession(ctx context.Context, sessionID string) error
	Debug(ctx context.Context, sessionID string) (*dto.SessionDebugResponse, error)
	Ready() error
}

type chatService struct {
	engine       flow.Runner
	overlay      *tweaks.Overlay
	baseTweaks   tweaks.Map
	extractor    *extract.Extractor
	store        chat.Store
	limiter      *ratelimit.Limiter
	memo         *chat.MemoCache
	pubSub       *gochannel.GoChannel
	topic        string
	logger       logger.ILogger
	memoryWindow int
	// configErr blocks every turn until the operator fixes the missing
	// credentials; it is decided once at startup, never re-checked mid-call.
	configErr error
}

func NewChatService(
	engine flow.Runner,
	overlay *tweaks.Overlay,
	baseTweaks tweaks.Map,
	extractor *extract.Extractor,
	store chat.Store,
	limiter *ratelimit.Limiter,
	memo *chat.MemoCache,
	pubSub *gochannel.GoChannel,
	topic string,
	sysLogger logger.ILogger,
	memoryWindow int,
	configErr error,
) IChatService {
	return &chatService{
		engine:       engine,
		overlay:      overlay,
		baseTweaks:   baseTweaks,
		extractor:    extractor,
		store:        store,
		limiter:      limiter,
		memo:         memo,
		pubSub:       pubSub,
		topic:        topic,
		logger:       sysLogger,
		memoryWindow: memoryWindow,
		configErr:    configErr,
	}
}

// Ready reports whether the gateway may accept turns.
func (s *chatService) Ready() error {
	return s.configErr
}

// Chat processes one turn: soft rate gate, memory render, tweaks overlay,
// engine invocation, extraction, transcript update. One turn per session
// is in flight at a time (the callers serialize); turns across sessions
// share nothing but the read-only base map and flow definition.
func (s *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if s.configErr != nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, s.configErr.Error())
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	session, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Chat", "Session store read failed, starting fresh", map[string]interface{}{
			"session_id": sessionID, "error": err.Error(),
		})
		found = false
	}
	if !found {
		session = chat.NewSession(sessionID)
	}

	memory := chat.RenderMemory(session.Turns, s.memoryWindow)

	var memoKey string
	if s.memo != nil {
		memoKey = s.memo.Key(req.Message, memory, sessionID)
		if reply, hit := s.memo.Get(memoKey); hit {
			s.logger.Debug("Chat", "Memo cache hit", map[string]interface{}{"session_id": sessionID})
			return s.completeTurn(ctx, session, req.Message, reply)
		}
	}

	turnTweaks := s.overlay.Apply(s.baseTweaks, tweaks.TurnParams{
		SessionID:   sessionID,
		Memory:      memory,
		EngineState: session.EngineState,
	})
	session.LastTweaks = turnTweaks

	raw, err := s.engine.Run(ctx, flow.RunInput{
		Input:         req.Message,
		SessionID:     sessionID,
		FallbackToEnv: true,
		Tweaks:        turnTweaks,
	})
	if err != nil {
		// Invocation failures are caught at this single boundary and
		// surfaced on this turn only; the session stays usable.
		s.logger.Error("Chat", "Flow engine invocation failed", map[string]interface{}{
			"session_id": sessionID, "error": err.Error(),
		})
		if saveErr := s.store.Save(ctx, session); saveErr != nil {
			s.logger.Warn("Chat", "Session save failed", map[string]interface{}{"error": saveErr.Error()})
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError,
			fmt.Sprintf("pipeline invocation failed: %v", err))
	}

	reply := s.extractor.Extract(raw)
	session.LastRaw = raw
	if reply.Payload != nil {
		session.EngineState = reply.Payload
	}

	if s.memo != nil {
		s.memo.Set(memoKey, reply)
	}

	return s.completeTurn(ctx, session, req.Message, reply)
}

func (s *chatService) completeTurn(ctx context.Context, session *chat.Session, userText string, reply extract.Reply) (*dto.ChatResponse, error) {
	session.Append(chat.RoleUser, userText)
	session.Append(chat.RoleAssistant, reply.Text)

	if err := s.store.Save(ctx, session); err != nil {
		s.logger.Warn("Chat", "Session save failed", map[string]interface{}{
			"session_id": session.ID, "error": err.Error(),
		})
	}

	s.publishTurn(dto.TurnCompletedEvent{
		SessionID:  session.ID,
		UserText:   userText,
		ReplyText:  reply.Text,
		Tier:       reply.Tier.String(),
		OccurredAt: time.Now(),
	})

	s.logger.Info("Chat", "Turn completed", map[string]interface{}{
		"session_id": session.ID,
		"tier":       reply.Tier.String(),
		"turns":      len(session.Turns),
	})

	return &dto.ChatResponse{
		Response:  reply.Text,
		SessionID: session.ID,
	}, nil
}

func (s *chatService) publishTurn(event dto.TurnCompletedEvent) {
	if s.pubSub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.pubSub.Publish(s.topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Warn("Chat", "Turn event publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *chatService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	session := chat.NewSession(uuid.NewString())
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{SessionID: session.ID}, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) (*dto.SessionHistoryResponse, error) {
	session, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return &dto.SessionHistoryResponse{
		SessionID: session.ID,
		Turns:     dto.TurnsToDTO(session.Turns),
	}, nil
}

// ClearSession empties the transcript and the engine memory blob but keeps
// the session id alive, so the next turn's overlay carries an empty memory
// string.
func (s *chatService) ClearSession(ctx context.Context, sessionID string) error {
	session, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	session.Clear()
	return s.store.Save(ctx, session)
}

func (s *chatService) Debug(ctx context.Context, sessionID string) (*dto.SessionDebugResponse, error) {
	session, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return &dto.SessionDebugResponse{
		SessionID:   session.ID,
		Memory:      chat.RenderMemory(session.Turns, s.memoryWindow),
		EngineState: session.EngineState,
		LastTweaks:  session.LastTweaks,
		LastRaw:     session.LastRaw,
		TurnCount:   len(session.Turns),
	}, nil
}
