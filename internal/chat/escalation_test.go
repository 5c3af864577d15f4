package chat

import (
	"testing"

	"github.com/vkarpenko/shoptalk/internal/config"
)

func newTestMatcher(t *testing.T, phrases ...string) *Matcher {
	t.Helper()
	m, err := NewMatcher(config.EscalationConfig{
		Enabled: true,
		Phrases: phrases,
		Reply:   "Соединяю с оператором",
	})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	return m
}

func TestMatcherWholePhrase(t *testing.T) {
	m := newTestMatcher(t, "заберу сам", "самовывоз")

	cases := []struct {
		text string
		want int
	}{
		{"Заберу сам завтра", 1},
		{"заберу   сам", 1},
		{"Заберу-сам", 1},
		{"Можно самовывоз?", 1},
		{"заберу самостоятельно", 0}, // "сам" must be a whole word
		{"посамовывозу", 0},
		{"хочу доставку", 0},
		{"ЗАБЕРУ САМ, самовывоз", 2},
	}
	for _, tc := range cases {
		if got := m.Match(tc.text); len(got) != tc.want {
			t.Errorf("Match(%q) = %v, want %d hits", tc.text, got, tc.want)
		}
	}
}

func TestMatcherDisabled(t *testing.T) {
	m, err := NewMatcher(config.EscalationConfig{Enabled: false, Phrases: []string{"заберу сам"}})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if got := m.Match("заберу сам"); got != nil {
		t.Errorf("disabled matcher returned %v", got)
	}
}

func TestMatcherNormalizesWhitespace(t *testing.T) {
	m := newTestMatcher(t, "доставка курьером")
	if got := m.Match("доставка\n\tкурьером пожалуйста"); len(got) != 1 {
		t.Errorf("Match = %v, want 1 hit", got)
	}
}

func TestMatcherReply(t *testing.T) {
	m := newTestMatcher(t, "заберу сам")
	if m.Reply() != "Соединяю с оператором" {
		t.Errorf("Reply = %q", m.Reply())
	}
	if !m.Enabled() {
		t.Error("Enabled = false, want true")
	}
}
