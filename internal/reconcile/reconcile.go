// Package reconcile converts the upstream service's text payloads into true
// incremental deltas.
//
// The backend is inconsistent about delivery: some events carry a genuine
// delta, others resend the full cumulative answer so far, and some wrap the
// answer in a single-key {"result": "..."} envelope. The Accumulator makes
// the client correct under all three without backend-specific configuration.
package reconcile

import (
	"encoding/json"
	"strings"
)

// Accumulator tracks the complete text surfaced to the user so far within
// one exchange. Its content never shrinks during the exchange; a new user
// message gets a fresh Accumulator.
//
// The zero value is ready to use. Accumulator is not safe for concurrent
// use; each exchange owns its own instance.
type Accumulator struct {
	content strings.Builder
}

// Apply reconciles one raw text payload against the accumulated content and
// returns the true delta to surface. ok is false when the payload is a pure
// duplicate of already-delivered text and nothing should be emitted.
//
// The algorithm, in order:
//  1. Unwrap the single-key {"result": "..."} envelope if the payload
//     matches it exactly.
//  2. Text already contained in the accumulated content is a duplicate.
//  3. Text that extends the accumulated content contributes only its suffix.
//  4. Otherwise (typically the first non-empty event) the text replaces the
//     accumulated content wholesale and is emitted in full.
//
// The substring test in step 2 is a deliberate approximation: genuinely new
// text that happens to repeat an earlier phrase verbatim is dropped. In
// practice cumulative resends dominate and the trade-off holds up.
func (a *Accumulator) Apply(raw string) (delta string, ok bool) {
	text := unwrapEnvelope(raw)
	if text == "" {
		return "", false
	}

	current := a.content.String()

	if strings.Contains(current, text) {
		return "", false
	}

	if strings.HasPrefix(text, current) {
		suffix := text[len(current):]
		a.content.WriteString(suffix)
		return suffix, true
	}

	a.content.Reset()
	a.content.WriteString(text)
	return text, true
}

// Content returns the accumulated text for the exchange so far.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Len returns the length in bytes of the accumulated text.
func (a *Accumulator) Len() int {
	return a.content.Len()
}

// envelope is the single-key wrapper some backends put around the true text.
type envelope struct {
	Result string `json:"result"`
}

// unwrapEnvelope returns the inner string when raw is exactly the
// {"result": "<text>"} shape, and raw unchanged otherwise. The match is
// strict: any extra key, a non-string result, or trailing data means the
// payload is ordinary text that merely looks JSON-ish.
func unwrapEnvelope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}

	var keys map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(&keys); err != nil {
		return raw
	}
	if dec.More() || len(keys) != 1 {
		return raw
	}

	rawResult, found := keys["result"]
	if !found {
		return raw
	}

	var inner string
	if err := json.Unmarshal(rawResult, &inner); err != nil {
		return raw
	}
	return inner
}
