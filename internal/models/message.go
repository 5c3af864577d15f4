package models

import "time"

// Message is one ledger entry: a combined buyer message or an assistant
// reply. The latest FromAssistant row per chat is the reference text for
// webhook echo detection.
type Message struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	ChatID        string `gorm:"size:64;index"`
	AuthorID      string `gorm:"size:32"`
	FromAssistant bool   `gorm:"default:false"`
	Body          string `gorm:"type:text"`
	CreatedAt     time.Time
}
