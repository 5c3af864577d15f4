package models

import "time"

// Escalation records a forced hand-off to a human operator, either from the
// keyword matcher or from the assistant's escalation tool.
type Escalation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ChatID    string `gorm:"size:64;index"`
	ClientID  uint   `gorm:"index"`
	BuyerName string `gorm:"size:128"`
	ChatURL   string `gorm:"size:256"`
	Reason    string `gorm:"type:text"`
	// "keyword" or "assistant".
	Source    string `gorm:"size:16"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
