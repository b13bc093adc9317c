// Package chat owns per-session conversation state: the append-only
// transcript, the windowed memory rendering fed into the flow tweaks, and
// the session stores that hold them between turns.
package chat

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label is the role name used when rendering memory for the flow engine.
func (r Role) Label() string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// Turn is one half of an exchange. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RenderMemory joins the retained turns as "{Role}: {text}" lines in
// original order. A window > 0 keeps only the most recent turns; zero or
// negative means no truncation. No history renders to an empty string.
func RenderMemory(turns []Turn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.Role.Label())
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}
