// Package extract normalizes the flow engine's raw return value into a
// clean reply. The engine's response shape has drifted across its own
// versions, so decoding runs as an ordered chain of tiers with decreasing
// confidence: strict structural access first, string pattern matching as a
// last resort. Extraction never fails outward; the terminal tier always
// yields a non-empty reply.
package extract

import (
	"fmt"
	"regexp"
)

// Tier identifies which fallback strategy produced a reply.
type Tier int

const (
	TierStructured Tier = iota + 1 // run-outputs list, results["message"]
	TierDirect                     // top-level text/message mapping
	TierQuoted                     // text='...' substring pattern
	TierScript                     // Thai-script span in the stringified value
	TierFallback                   // nothing matched, fixed apology
)

func (t Tier) String() string {
	switch t {
	case TierStructured:
		return "structured"
	case TierDirect:
		return "direct"
	case TierQuoted:
		return "quoted"
	case TierScript:
		return "script"
	default:
		return "fallback"
	}
}

// Reply is the normalized extraction result. Text is never empty.
type Reply struct {
	Text       string `json:"text"`
	SessionID  string `json:"session_id"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name"`
	Tier       Tier   `json:"-"`
	// Payload is the message mapping the structured tier decoded, kept as
	// the session's engine-memory blob. Nil for the looser tiers.
	Payload map[string]any `json:"-"`
}

// DefaultFallbackReply matches the deployed bot's locale.
const DefaultFallbackReply = "ขออภัยค่ะ ไม่สามารถประมวลผลข้อความได้ในขณะนี้"

var (
	quotedTextPattern = regexp.MustCompile(`text='([^']*)'`)
	quotedKeyPattern  = regexp.MustCompile(`'text':\s*'([^']*)'`)
	thaiSpanPattern   = regexp.MustCompile(`[\x{0E01}-\x{0E59}]+[^"']*[\x{0E01}-\x{0E59}]+`)
)

type decoder func(raw any) (Reply, bool)

// Extractor decodes raw engine results with a first-success-wins chain.
// Tier order matters: a looser tier could mis-extract text that a stricter
// tier correctly reports as absent.
type Extractor struct {
	fallback string
	chain    []decoder
}

// New creates an extractor. An empty fallbackReply selects the default.
func New(fallbackReply string) *Extractor {
	if fallbackReply == "" {
		fallbackReply = DefaultFallbackReply
	}
	e := &Extractor{fallback: fallbackReply}
	e.chain = []decoder{
		decodeStructured,
		decodeDirect,
		decodeQuoted,
		decodeScript,
	}
	return e
}

// Extract converts any engine result into a Reply. It never panics and
// never returns an empty Text; unrecognized shapes degrade tier by tier
// down to the fixed apology.
func (e *Extractor) Extract(raw any) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = Reply{Text: e.fallback, Tier: TierFallback}
		}
	}()

	for _, decode := range e.chain {
		if rep, ok := decode(raw); ok && rep.Text != "" {
			return rep
		}
	}
	return Reply{Text: e.fallback, Tier: TierFallback}
}

// decodeStructured walks the run-outputs shape: first run → outputs →
// first output → results → "message". The message value is a mapping with
// a nested "data" mapping, a bare mapping, or a scalar coerced to text.
func decodeStructured(raw any) (Reply, bool) {
	runs, ok := runSequence(raw)
	if !ok || len(runs) == 0 {
		return Reply{}, false
	}
	run, ok := asMap(runs[0])
	if !ok {
		return Reply{}, false
	}
	outputs, ok := asList(run["outputs"])
	if !ok || len(outputs) == 0 {
		return Reply{}, false
	}
	output, ok := asMap(outputs[0])
	if !ok {
		return Reply{}, false
	}
	results, ok := asMap(output["results"])
	if !ok {
		return Reply{}, false
	}
	message, ok := results["message"]
	if !ok {
		return Reply{}, false
	}

	var payload map[string]any
	if m, isMap := asMap(message); isMap {
		if data, hasData := asMap(m["data"]); hasData {
			payload = data
		} else {
			payload = m
		}
	} else {
		payload = map[string]any{"text": stringOf(message)}
	}

	return Reply{
		Text:       stringField(payload, "text"),
		SessionID:  stringField(payload, "session_id"),
		Sender:     stringField(payload, "sender"),
		SenderName: stringField(payload, "sender_name"),
		Tier:       TierStructured,
		Payload:    payload,
	}, true
}

// runSequence accepts the run-outputs list directly, or unwrapped from a
// top-level "outputs" key (the engine's HTTP API wraps it that way while
// in-process execution returns the bare list).
func runSequence(raw any) ([]any, bool) {
	if runs, ok := asList(raw); ok {
		return runs, true
	}
	if m, ok := asMap(raw); ok {
		if runs, ok := asList(m["outputs"]); ok {
			return runs, true
		}
	}
	return nil, false
}

func decodeDirect(raw any) (Reply, bool) {
	m, ok := asMap(raw)
	if !ok {
		return Reply{}, false
	}
	if v, found := m["text"]; found {
		return Reply{Text: stringOf(v), Tier: TierDirect}, true
	}
	if v, found := m["message"]; found {
		return Reply{Text: stringOf(v), Tier: TierDirect}, true
	}
	return Reply{}, false
}

// decodeQuoted scans the stringified value for a text='...' capture.
// Partially stringified engine objects usually still carry this substring
// when structured access fails.
func decodeQuoted(raw any) (Reply, bool) {
	s := stringify(raw)
	if match := quotedTextPattern.FindStringSubmatch(s); match != nil {
		return Reply{Text: match[1], Tier: TierQuoted}, true
	}
	if match := quotedKeyPattern.FindStringSubmatch(s); match != nil {
		return Reply{Text: match[1], Tier: TierQuoted}, true
	}
	return Reply{}, false
}

// decodeScript pulls a Thai-script span out of the stringified value. A
// failed structured parse of a localized reply still tends to contain the
// actual answer somewhere in its string form.
func decodeScript(raw any) (Reply, bool) {
	s := stringify(raw)
	if match := thaiSpanPattern.FindString(s); match != "" {
		return Reply{Text: match, Tier: TierScript}, true
	}
	return Reply{}, false
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, isStr := v.(string); isStr {
			return s
		}
	}
	return ""
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func stringify(raw any) string {
	if raw == nil {
		return ""
	}
	return stringOf(raw)
}
