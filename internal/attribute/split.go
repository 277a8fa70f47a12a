package attribute

import "strings"

// Splitter cuts a finished exchange's text into ordered per-agent segments.
//
// Strategies run in fixed priority order; the first with an opinion wins.
// When none has one the whole text is attributed to the coordinator, so
// Split never returns zero segments and never a segment with empty text
// (given non-empty input).
type Splitter struct {
	attributors []Attributor
	fallback    string
}

// NewSplitter creates a Splitter with the default strategy chain: explicit
// hand-off phrases first, domain-keyword scoring second, coordinator
// fallback last.
func NewSplitter() *Splitter {
	return &Splitter{
		attributors: []Attributor{PatternAttributor{}, KeywordAttributor{}},
		fallback:    Coordinator,
	}
}

// NewSplitterWith creates a Splitter over a custom strategy chain. The
// fallback agent receives the whole text when no strategy claims it.
func NewSplitterWith(fallback string, attributors ...Attributor) *Splitter {
	return &Splitter{attributors: attributors, fallback: fallback}
}

// Split attributes text to agents. Results are deterministic for identical
// input. Empty or blank text yields no segments; callers never surface
// empty messages.
func (s *Splitter) Split(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for _, a := range s.attributors {
		if segments, ok := a.Attribute(text); ok {
			return segments
		}
	}
	return []Segment{{AgentID: s.fallback, Text: text}}
}
