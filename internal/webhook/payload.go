// Package webhook exposes the HTTP surface: the marketplace webhook
// endpoint and the client management API.
package webhook

import (
	"fmt"
	"strconv"

	"github.com/vkarpenko/shoptalk/internal/chat"
)

// Request is the marketplace webhook envelope.
type Request struct {
	ID        string  `json:"id"`
	Version   string  `json:"version"`
	Timestamp int64   `json:"timestamp"`
	Payload   Payload `json:"payload"`
}

// Payload wraps the typed event value.
type Payload struct {
	Type  string `json:"type"`
	Value Value  `json:"value"`
}

// Value is the message body of a "message" payload.
type Value struct {
	ID     string `json:"id"`
	ChatID string `json:"chat_id"`
	// UserID is the seller account the webhook subscription belongs to.
	UserID int64 `json:"user_id"`
	// AuthorID is who wrote the message. Zero is the marketplace system
	// sentinel.
	AuthorID    int64   `json:"author_id"`
	Created     int64   `json:"created"`
	Type        string  `json:"type"`
	ChatType    string  `json:"chat_type"`
	Content     Content `json:"content"`
	ItemID      int64   `json:"item_id"`
	PublishedAt string  `json:"published_at"`
}

// Content carries the message content variants.
type Content struct {
	Text  string `json:"text"`
	Voice *Voice `json:"voice"`
}

// Voice is a voice message reference.
type Voice struct {
	VoiceID string `json:"voice_id"`
}

// ErrUnsupported reports a payload the pipeline does not process. Such
// deliveries are acknowledged and dropped.
type ErrUnsupported struct {
	Kind string
}

func (e ErrUnsupported) Error() string {
	return fmt.Sprintf("webhook: unsupported payload %q", e.Kind)
}

// ToEvent validates the request and converts it to a pipeline event.
func (r *Request) ToEvent() (chat.Event, error) {
	if r.Payload.Type != "message" {
		return chat.Event{}, ErrUnsupported{Kind: r.Payload.Type}
	}
	v := r.Payload.Value
	if v.ChatID == "" {
		return chat.Event{}, fmt.Errorf("webhook: missing chat_id")
	}
	if v.UserID == 0 {
		return chat.Event{}, fmt.Errorf("webhook: missing user_id")
	}

	event := chat.Event{
		ChatID:            v.ChatID,
		AuthorID:          strconv.FormatInt(v.AuthorID, 10),
		BusinessAccountID: strconv.FormatInt(v.UserID, 10),
		ItemID:            v.ItemID,
	}

	switch v.Type {
	case "text":
		if v.Content.Text == "" {
			return chat.Event{}, fmt.Errorf("webhook: empty text message in chat %s", v.ChatID)
		}
		event.Content = chat.Content{Kind: chat.ContentText, Text: v.Content.Text}
	case "voice":
		ref := ""
		if v.Content.Voice != nil {
			ref = v.Content.Voice.VoiceID
		}
		event.Content = chat.Content{Kind: chat.ContentVoice, VoiceRef: ref}
	default:
		return chat.Event{}, ErrUnsupported{Kind: "message/" + v.Type}
	}
	return event, nil
}
