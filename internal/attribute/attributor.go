package attribute

import (
	"regexp"
	"strings"
)

// Attributor assigns agent identities to a finished exchange's text. ok is
// false when the strategy has no opinion and the next one should be tried.
//
// Implementations must be deterministic: identical input always yields
// identical segments. Free-text classification is inherently brittle, so the
// interface keeps strategies swappable without touching the assembler.
type Attributor interface {
	Attribute(text string) (segments []Segment, ok bool)
}

// handoff binds one hand-off phrase pattern to the agent receiving
// responsibility. Each pattern covers the coordinator's full announcement
// sentence, so the split lands after the announcement rather than mid-phrase.
type handoff struct {
	pattern *regexp.Regexp
	agentID string
}

// handoffs are tested in priority order; the first match wins.
var handoffs = []handoff{
	{
		pattern: regexp.MustCompile(`(?is)\b(?:transfer|connect|hand)(?:ring|ing)?\s+you\s+(?:over\s+)?to\s+(?:our|the)\s+engineering\s+process\s+procedure\s+agent[^.!?\n]*[.!?]?`),
		agentID: Engineering,
	},
	{
		pattern: regexp.MustCompile(`(?is)\b(?:transfer|connect|hand)(?:ring|ing)?\s+you\s+(?:over\s+)?to\s+(?:our|the)\s+data\s+scien(?:ce|tist)\s+agent[^.!?\n]*[.!?]?`),
		agentID: DataScientist,
	},
	{
		pattern: regexp.MustCompile(`(?is)\b(?:transfer|connect|hand)(?:ring|ing)?\s+you\s+(?:over\s+)?to\s+(?:our|the)\s+general\s+chat\s+agent[^.!?\n]*[.!?]?`),
		agentID: GeneralChat,
	},
}

// PatternAttributor detects explicit hand-off announcements. On a match it
// splits at the end of the matched span: everything up to and including the
// announcement belongs to the coordinator, everything after to the target
// agent.
type PatternAttributor struct{}

// Attribute implements Attributor.
func (PatternAttributor) Attribute(text string) ([]Segment, bool) {
	for _, h := range handoffs {
		loc := h.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}

		head := strings.TrimSpace(text[:loc[1]])
		tail := strings.TrimSpace(text[loc[1]:])

		if tail == "" {
			// Announcement with no follow-up text: the whole exchange is
			// still the coordinator speaking.
			return []Segment{{AgentID: Coordinator, Text: head}}, true
		}
		return []Segment{
			{AgentID: Coordinator, Text: head},
			{AgentID: h.agentID, Text: tail},
		}, true
	}
	return nil, false
}

// domainKeywords score the fallback classification. Order fixes tie-breaking
// so classification stays deterministic.
var domainKeywords = []struct {
	agentID  string
	keywords []string
}{
	{
		agentID: DataScientist,
		keywords: []string{
			"sql", "query", "queries", "database", "table", "warehouse",
			"databricks", "cluster", "dataset", "schema", "dashboard",
			"statistics", "statistical", "analysis", "metric",
		},
	},
	{
		agentID: Engineering,
		keywords: []string{
			"aircraft", "aviation", "maintenance", "mro", "procedure",
			"repair", "brake", "engine", "component", "inspection",
			"compliance", "regulatory", "airworthiness", "overhaul",
		},
	},
	{
		agentID: GeneralChat,
		keywords: []string{
			"advice", "motivation", "story", "poem", "joke", "recommend",
			"opinion", "conversation",
		},
	},
}

// KeywordAttributor classifies the whole text by domain-keyword hit count
// and attributes it to the highest nonzero scorer. All-zero scores mean no
// opinion, which the splitter resolves to the coordinator.
type KeywordAttributor struct{}

// Attribute implements Attributor.
func (KeywordAttributor) Attribute(text string) ([]Segment, bool) {
	words := tokenize(text)
	if len(words) == 0 {
		return nil, false
	}

	bestID := ""
	bestScore := 0
	for _, d := range domainKeywords {
		score := 0
		for _, kw := range d.keywords {
			score += words[kw]
		}
		if score > bestScore {
			bestID = d.agentID
			bestScore = score
		}
	}

	if bestScore == 0 {
		return nil, false
	}
	return []Segment{{AgentID: bestID, Text: text}}, true
}

// tokenize lower-cases text and counts its words. Splitting is on any
// non-letter/digit rune so punctuation does not hide keyword hits.
func tokenize(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	}) {
		counts[w]++
	}
	return counts
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
