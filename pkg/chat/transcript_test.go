package chat

import (
	"fmt"
	"strings"
	"testing"
)

func TestRenderMemoryWindowing(t *testing.T) {
	var turns []Turn
	for i := 1; i <= 5; i++ {
		turns = append(turns, Turn{Role: RoleUser, Text: fmt.Sprintf("q%d", i)})
		turns = append(turns, Turn{Role: RoleAssistant, Text: fmt.Sprintf("a%d", i)})
	}

	got := RenderMemory(turns, 6)

	want := strings.Join([]string{
		"User: q3",
		"Assistant: a3",
		"User: q4",
		"Assistant: a4",
		"User: q5",
		"Assistant: a5",
	}, "\n")
	if got != want {
		t.Errorf("RenderMemory = %q, want %q", got, want)
	}
}

func TestRenderMemory(t *testing.T) {
	tests := []struct {
		name   string
		turns  []Turn
		window int
		want   string
	}{
		{
			name:   "empty history",
			turns:  nil,
			window: 6,
			want:   "",
		},
		{
			name:   "fewer turns than window",
			turns:  []Turn{{Role: RoleUser, Text: "hi"}},
			window: 6,
			want:   "User: hi",
		},
		{
			name: "zero window keeps everything",
			turns: []Turn{
				{Role: RoleUser, Text: "one"},
				{Role: RoleAssistant, Text: "two"},
				{Role: RoleUser, Text: "three"},
			},
			window: 0,
			want:   "User: one\nAssistant: two\nUser: three",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderMemory(tt.turns, tt.window); got != tt.want {
				t.Errorf("RenderMemory = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionAppendAndClear(t *testing.T) {
	s := NewSession("s1")
	s.Append(RoleUser, "What are your hours?")
	s.Append(RoleAssistant, "We're open 9-5")
	s.EngineState = map[string]any{"text": "We're open 9-5"}

	if len(s.Turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(s.Turns))
	}
	if s.Turns[0].Role != RoleUser || s.Turns[1].Role != RoleAssistant {
		t.Errorf("roles = %v, %v", s.Turns[0].Role, s.Turns[1].Role)
	}

	s.Clear()

	if len(s.Turns) != 0 {
		t.Errorf("turns after clear = %d, want 0", len(s.Turns))
	}
	if s.EngineState != nil {
		t.Error("engine state survived clear")
	}
	if s.ID != "s1" {
		t.Error("session id must survive clear")
	}
	if got := RenderMemory(s.Turns, 6); got != "" {
		t.Errorf("memory after clear = %q, want empty", got)
	}
}
