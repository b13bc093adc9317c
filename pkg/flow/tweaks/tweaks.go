// Package tweaks builds the per-invocation configuration overrides sent to
// the flow engine: a map from flow-node identifier to a property bag.
// Unknown node keys are silently ignored by the engine; missing keys mean
// the engine's own defaults apply.
package tweaks

// Map is a per-invocation tweaks map. It is rebuilt every turn; a base map
// instance is never mutated in place and never shared across sessions.
type Map map[string]map[string]any

// Clone deep-copies the map one bag level down. Bag values are treated as
// scalars and copied by reference.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for node, bag := range m {
		copied := make(map[string]any, len(bag))
		for k, v := range bag {
			copied[k] = v
		}
		out[node] = copied
	}
	return out
}

// Overlay knows which nodes of the flow carry session identity, memory and
// the prompt template. Node identifiers are resolved once at startup from
// the flow definition; empty identifiers mean the flow has no such node
// and the corresponding overlay step is skipped.
type Overlay struct {
	InputNode  string
	OutputNode string
	MemoryNode string
	PromptNode string

	UserSender        string
	UserSenderName    string
	MachineSender     string
	MachineSenderName string
}

// TurnParams is the dynamic per-turn state injected into the base map.
type TurnParams struct {
	SessionID string
	Memory    string // rendered transcript window, may be empty
	// EngineState is the opaque memory blob the engine returned on the
	// previous call, echoed back when present. It is distinct from the
	// rendered transcript and the two are not guaranteed consistent.
	EngineState any
}

// Apply returns a new map: the base with session identity on the input and
// output nodes, the rendered memory on the memory node, and the prompt
// template's memory field. Every base entry not targeted here passes
// through unchanged; no key is ever removed. Apply never fails.
func (o *Overlay) Apply(base Map, p TurnParams) Map {
	out := base.Clone()

	if o.InputNode != "" {
		bag := ensure(out, o.InputNode)
		bag["session_id"] = p.SessionID
		bag["sender"] = o.UserSender
		bag["sender_name"] = o.UserSenderName
	}
	if o.OutputNode != "" {
		bag := ensure(out, o.OutputNode)
		bag["session_id"] = p.SessionID
		bag["sender"] = o.MachineSender
		bag["sender_name"] = o.MachineSenderName
	}
	if o.MemoryNode != "" {
		bag := ensure(out, o.MemoryNode)
		bag["session_id"] = p.SessionID
		bag["memory"] = p.Memory
		if p.EngineState != nil {
			bag["state"] = p.EngineState
		}
	}
	if o.PromptNode != "" {
		bag := ensure(out, o.PromptNode)
		bag["memory"] = p.Memory
	}

	return out
}

func ensure(m Map, node string) map[string]any {
	if bag, ok := m[node]; ok {
		return bag
	}
	bag := make(map[string]any)
	m[node] = bag
	return bag
}
