package models

import "time"

// Chat is one marketplace conversation. BotEnabled flips to false the first
// time a human operator is detected in the conversation and never flips back
// on its own; re-enabling is an administrative action via the client API.
type Chat struct {
	ChatID   string `gorm:"primaryKey;size:64"`
	ClientID uint   `gorm:"index"`

	BuyerID           string `gorm:"size:32"`
	BusinessAccountID string `gorm:"size:32"`

	// Notification sub-channel created once for this conversation: a Telegram
	// forum topic id, a Slack thread ts, or a Discord thread id depending on
	// the configured notifier.
	ThreadID string `gorm:"size:64"`

	ChatURL    string `gorm:"size:256"`
	BotEnabled bool   `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
