// Package event decodes one stream record's payload into the turns the
// model produced, and extracts the freshest text payload out of them.
//
// A record payload encodes an ordered array of turns; each turn carries an
// ordered list of parts (text, function call, function response). The wire
// shape is the genai content schema, so the decoder consumes
// google.golang.org/genai types directly.
package event

import (
	"encoding/json"
	"errors"

	"google.golang.org/genai"

	"github.com/magpie-ai/magpie/internal/log"
	"github.com/magpie-ai/magpie/internal/stream"
)

// ErrStreamEnd reports that the payload was the completion sentinel rather
// than a turn list. Callers treat it as successful end-of-stream, not a
// failure.
var ErrStreamEnd = errors.New("stream end sentinel")

// Turn is one model-generated step: an ordered list of parts.
type Turn = genai.Content

// Decode parses one record payload into an ordered turn list.
//
// The sentinel is checked before any parsing and short-circuits to
// ErrStreamEnd. Structurally invalid payloads are logged and decoded as an
// empty turn list: the stream must keep flowing past isolated malformed
// records, so decode failures are never fatal.
func Decode(payload []byte, logger log.Logger) ([]*Turn, error) {
	if string(payload) == stream.Sentinel {
		return nil, ErrStreamEnd
	}

	var turns []*Turn
	if err := json.Unmarshal(payload, &turns); err != nil {
		logger.Warn("discarding malformed event record",
			"error", err,
			"payload_len", len(payload))
		return nil, nil
	}
	return turns, nil
}

// ExtractText returns the single freshest text payload in a turn list.
//
// Turns are scanned last-to-first (the most recent turn wins); within a turn,
// parts are scanned in order. Function calls never carry display text and are
// skipped. A function response counts only when its response.result value is
// itself a string (some backends route the real answer through that channel)
// and is used only as a fallback when no literal text part exists anywhere.
//
// An empty result is a valid outcome, not an error: bookkeeping-only turns
// carry no text at all.
func ExtractText(turns []*Turn) string {
	var fallback string
	haveFallback := false

	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn == nil {
			continue
		}
		for _, part := range turn.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				return part.Text
			}
			if part.FunctionCall != nil {
				continue
			}
			if !haveFallback {
				if result, ok := functionResult(part.FunctionResponse); ok {
					fallback = result
					haveFallback = true
				}
			}
		}
	}

	return fallback
}

// functionResult pulls a string result out of a function response part.
func functionResult(fr *genai.FunctionResponse) (string, bool) {
	if fr == nil || fr.Response == nil {
		return "", false
	}
	result, ok := fr.Response["result"].(string)
	return result, ok
}
