package models

import "time"

// Order is created when the assistant's create_order tool fires.
type Order struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ChatID    string `gorm:"size:64;index"`
	ClientID  uint   `gorm:"index"`
	BuyerName string `gorm:"size:128"`
	GoodName  string `gorm:"size:256"`
	GoodURL   string `gorm:"size:256"`
	Color     string `gorm:"size:64"`
	Size      string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
