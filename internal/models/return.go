package models

import "time"

// Return is created when the assistant's initiate_return tool fires.
type Return struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ChatID    string `gorm:"size:64;index"`
	ClientID  uint   `gorm:"index"`
	BuyerName string `gorm:"size:128"`
	OrderDate string `gorm:"size:64"`
	Reason    string `gorm:"type:text"`
	GoodURL   string `gorm:"size:256"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
