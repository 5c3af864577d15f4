package models

import "time"

// Client is a tenant: one marketplace seller account with its own Avito,
// OpenAI, Telegram and Google Sheets credentials. Credentials are stored
// as-is; encrypting them at rest is handled outside this service.
type Client struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:128;not null"`

	// Avito API credentials. AvitoAccountID is the numeric account id that
	// appears as user_id in webhook deliveries and keys tenant resolution.
	AvitoAccountID    string `gorm:"size:32;not null;uniqueIndex"`
	AvitoClientID     string `gorm:"size:128;not null"`
	AvitoClientSecret string `gorm:"size:128;not null"`

	// Author id the marketplace uses for system notices in this account's
	// chats. Events from this author are ignored outright.
	SystemAuthorID string `gorm:"size:32;default:0"`

	// OpenAI configuration.
	OpenAIAPIKey string `gorm:"size:256"`
	OpenAIModel  string `gorm:"size:64"`

	// Telegram notification channel.
	TelegramBotToken string `gorm:"size:128"`
	TelegramChatID   string `gorm:"size:32"`
	TelegramThreadID int

	// Google Sheets warehouse.
	GoogleAPIKey        string `gorm:"size:128"`
	GoogleSpreadsheetID string `gorm:"size:128"`
	GoogleRange         string `gorm:"size:32"`
	WarehouseSheetName  string `gorm:"size:64"`

	Active    bool `gorm:"default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
