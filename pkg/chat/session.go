package chat

import (
	"time"

	"oho-chat-gateway/pkg/flow/tweaks"
)

// Session is one continuous conversation. The transcript is append-only;
// EngineState is whatever opaque memory blob the engine last returned and
// is replayed on the next call. The two are tracked separately and are not
// guaranteed to be consistent with each other.
type Session struct {
	ID          string     `json:"id"`
	Turns       []Turn     `json:"turns"`
	EngineState any        `json:"engine_state,omitempty"`
	LastTweaks  tweaks.Map `json:"last_tweaks,omitempty"`
	LastRaw     any        `json:"last_raw,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append records one turn. The only other transcript mutation is Clear.
func (s *Session) Append(role Role, text string) {
	s.Turns = append(s.Turns, Turn{
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// Clear resets the transcript and the engine memory blob. The session id
// survives so the next turn's overlay carries an empty memory string under
// the same identity.
func (s *Session) Clear() {
	s.Turns = nil
	s.EngineState = nil
	s.LastTweaks = nil
	s.LastRaw = nil
	s.UpdatedAt = time.Now()
}
