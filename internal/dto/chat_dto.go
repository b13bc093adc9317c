package dto

import (
	"time"

	"oho-chat-gateway/pkg/chat"
	"oho-chat-gateway/pkg/flow/tweaks"
)

type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type TurnDTO struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionHistoryResponse struct {
	SessionID string    `json:"session_id"`
	Turns     []TurnDTO `json:"turns"`
}

// SessionDebugResponse backs the opt-in debug panel: current tweaks and
// the last raw engine response, verbatim.
type SessionDebugResponse struct {
	SessionID   string     `json:"session_id"`
	Memory      string     `json:"memory"`
	EngineState any        `json:"engine_state,omitempty"`
	LastTweaks  tweaks.Map `json:"last_tweaks,omitempty"`
	LastRaw     any        `json:"last_raw,omitempty"`
	TurnCount   int        `json:"turn_count"`
}

func TurnsToDTO(turns []chat.Turn) []TurnDTO {
	out := make([]TurnDTO, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnDTO{
			Role:      string(t.Role),
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

// TurnCompletedEvent is published on the in-process bus after every
// successful turn; the archiver and the websocket feed consume it.
type TurnCompletedEvent struct {
	SessionID  string    `json:"session_id"`
	UserText   string    `json:"user_text"`
	ReplyText  string    `json:"reply_text"`
	Tier       string    `json:"tier"`
	OccurredAt time.Time `json:"occurred_at"`
}
