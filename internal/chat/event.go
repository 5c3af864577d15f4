// Package chat implements the message-batching and hand-off pipeline: the
// per-conversation debounce queue, bot/human takeover detection, keyword
// escalation, and the orchestrator that wires them to the marketplace,
// assistant and notification services.
package chat

// ContentKind tags the closed set of inbound message content variants.
type ContentKind int

const (
	// ContentText is a plain text message.
	ContentText ContentKind = iota
	// ContentVoice is a voice message reference; the bot answers with a
	// fixed "please resend as text" apology.
	ContentVoice
)

// Content is the inbound message body, decided once at the webhook boundary.
type Content struct {
	Kind     ContentKind
	Text     string // ContentText
	VoiceRef string // ContentVoice
}

// Event is one inbound webhook delivery, already validated and normalized.
type Event struct {
	ChatID string
	// AuthorID is who wrote the message: the buyer, the business account
	// (bot echo or human operator), or the marketplace system sentinel.
	AuthorID string
	// BusinessAccountID is the seller account that received the webhook; it
	// keys tenant resolution.
	BusinessAccountID string
	ItemID            int64
	Content           Content
}
