package chat

import (
	"errors"
	"fmt"

	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/gorm"
)

// Disposition tells the orchestrator what to do with an inbound event.
type Disposition int

const (
	// Ignore drops the event after any side effects have been applied.
	Ignore Disposition = iota
	// Accept forwards the event into the debounce queue.
	Accept
)

// Origin classifies who produced an inbound event.
type Origin int

const (
	// OriginSystem is the marketplace's reserved system identity.
	OriginSystem Origin = iota
	// OriginBusinessEcho is the bot's own message redelivered by the webhook.
	OriginBusinessEcho
	// OriginBusinessHuman is a human operator typing into the business account.
	OriginBusinessHuman
	// OriginBuyer is the marketplace end-user.
	OriginBuyer
)

// Verdict is the detector's decision for one event.
type Verdict struct {
	Origin      Origin
	Disposition Disposition
	// TakeOver is set when a human operator was detected; the orchestrator
	// disables the bot and alerts the operator channel.
	TakeOver bool
}

// Detector classifies inbound events by origin. Echo detection compares the
// message text against the latest assistant reply recorded for the chat;
// a human operator who repeats the bot's last wording verbatim is therefore
// misclassified as an echo. This is a known limitation of the text-equality
// heuristic; the webhook transport offers no delivery id to key on.
type Detector struct {
	db *gorm.DB
}

// NewDetector creates a Detector.
func NewDetector(db *gorm.DB) *Detector {
	return &Detector{db: db}
}

// Classify decides the event's origin and disposition. The echo comparison
// always runs: a batch flushed just before the operating window closes can
// have its reply redelivered after it, so the bot's own text must never
// count as a takeover. Must run under the chat lock (the read of the chat
// row and the ledger is part of the per-chat critical section).
func (d *Detector) Classify(event Event, conv *models.Chat, systemAuthorID string) (Verdict, error) {
	if event.AuthorID == systemAuthorID {
		return Verdict{Origin: OriginSystem, Disposition: Ignore}, nil
	}

	if event.AuthorID == conv.BusinessAccountID {
		last, err := d.lastAssistantText(event.ChatID)
		if err != nil {
			return Verdict{}, err
		}
		if event.Content.Kind == ContentText && event.Content.Text == last && last != "" {
			return Verdict{Origin: OriginBusinessEcho, Disposition: Ignore}, nil
		}
		return Verdict{Origin: OriginBusinessHuman, Disposition: Ignore, TakeOver: true}, nil
	}

	if !conv.BotEnabled {
		return Verdict{Origin: OriginBuyer, Disposition: Ignore}, nil
	}
	return Verdict{Origin: OriginBuyer, Disposition: Accept}, nil
}

// lastAssistantText returns the body of the chat's most recent assistant
// ledger entry, or "" when the bot has not spoken yet.
func (d *Detector) lastAssistantText(chatID string) (string, error) {
	var msg models.Message
	err := d.db.Where("chat_id = ? AND from_assistant = ?", chatID, true).
		Order("id DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("chat: load last assistant message for %s: %w", chatID, err)
	}
	return msg.Body, nil
}
