package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vkarpenko/shoptalk/internal/config"
)

// Matcher scans buyer text for trigger phrases that always force a human
// hand-off before the message reaches the assistant (self-pickup, courier
// phrasing and the like).
type Matcher struct {
	enabled  bool
	reply    string
	phrases  []string
	patterns []*regexp.Regexp
}

// NewMatcher compiles the configured trigger phrases. A phrase matches as a
// whole phrase, case-insensitively, with internal whitespace standing for
// one or more whitespace or hyphen characters.
func NewMatcher(cfg config.EscalationConfig) (*Matcher, error) {
	m := &Matcher{
		enabled: cfg.Enabled,
		reply:   cfg.Reply,
	}
	for _, phrase := range cfg.Phrases {
		parts := strings.Fields(strings.ToLower(phrase))
		if len(parts) == 0 {
			continue
		}
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		expr := `(?i)(^|[^\p{L}\p{N}])` + strings.Join(parts, `[\s-]+`) + `([^\p{L}\p{N}]|$)`
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("chat: escalation phrase %q: %w", phrase, err)
		}
		m.phrases = append(m.phrases, phrase)
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Enabled reports whether keyword escalation is active.
func (m *Matcher) Enabled() bool { return m.enabled }

// Reply is the fixed text sent to the buyer when a phrase fires.
func (m *Matcher) Reply() string { return m.reply }

// Match returns the trigger phrases found in text, or nil. The text is
// normalized (lower-cased, whitespace collapsed) before matching.
func (m *Matcher) Match(text string) []string {
	if !m.enabled {
		return nil
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	var hits []string
	for i, re := range m.patterns {
		if re.MatchString(normalized) {
			hits = append(hits, m.phrases[i])
		}
	}
	return hits
}
