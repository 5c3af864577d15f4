package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/vkarpenko/shoptalk/internal/assistant"
	"github.com/vkarpenko/shoptalk/internal/avito"
	"github.com/vkarpenko/shoptalk/internal/catalog"
	"github.com/vkarpenko/shoptalk/internal/models"
	"github.com/vkarpenko/shoptalk/internal/notify"
	"github.com/vkarpenko/shoptalk/internal/notify/telegram"
	"gorm.io/gorm"
)

// Marketplace is the outbound marketplace surface the orchestrator uses.
type Marketplace interface {
	SendMessage(ctx context.Context, accountID, chatID, text string) error
	AdURL(ctx context.Context, accountID string, itemID int64) (string, error)
	BuyerInfo(ctx context.Context, accountID, chatID, businessAccountID string) (name, profileURL string, err error)
}

// Generator produces a reply for a combined buyer message.
type Generator interface {
	Reply(ctx context.Context, req assistant.Request) (string, error)
}

// StockFetcher retrieves the stock document for a listing.
type StockFetcher interface {
	FetchStock(ctx context.Context, src catalog.Source, adURL string) (*catalog.Stock, error)
}

// Tenant bundles one client's collaborators.
type Tenant struct {
	Client      *models.Client
	Marketplace Marketplace
	Notifier    notify.Notifier
	Generator   Generator
	StockSource catalog.Source
}

// TenantSource resolves a webhook's business account id to its tenant.
type TenantSource interface {
	Resolve(ctx context.Context, businessAccountID string) (*Tenant, error)
}

// Tenants is the production TenantSource: it loads client rows and builds
// (and caches) the per-tenant Avito, Telegram and OpenAI clients.
type Tenants struct {
	db *gorm.DB

	mu    sync.Mutex
	cache map[string]*Tenant
}

// NewTenants creates a Tenants resolver.
func NewTenants(db *gorm.DB) *Tenants {
	return &Tenants{db: db, cache: make(map[string]*Tenant)}
}

// Resolve returns the tenant for a business account id, building its
// collaborators on first use.
func (t *Tenants) Resolve(ctx context.Context, businessAccountID string) (*Tenant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tenant, ok := t.cache[businessAccountID]; ok {
		return tenant, nil
	}

	var client models.Client
	err := t.db.Where("avito_account_id = ? AND active = ?", businessAccountID, true).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chat: no active client for account %s", businessAccountID)
	}
	if err != nil {
		return nil, fmt.Errorf("chat: load client for account %s: %w", businessAccountID, err)
	}

	tenant, err := t.build(&client)
	if err != nil {
		return nil, err
	}
	t.cache[businessAccountID] = tenant
	return tenant, nil
}

// Invalidate drops a cached tenant so credential updates take effect.
func (t *Tenants) Invalidate(businessAccountID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cache, businessAccountID)
}

// build assembles a Tenant's collaborators from its client row. Missing
// optional credentials degrade gracefully: no Telegram config means a no-op
// notifier, no OpenAI key means no generator (flushes fail, logged).
func (t *Tenants) build(client *models.Client) (*Tenant, error) {
	market, err := avito.New(avito.Opts{
		ClientID:     client.AvitoClientID,
		ClientSecret: client.AvitoClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: avito client for %s: %w", client.Name, err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if client.TelegramBotToken != "" && client.TelegramChatID != "" {
		tg, err := telegram.New(telegram.Opts{
			Token:           client.TelegramBotToken,
			ChatID:          client.TelegramChatID,
			DefaultThreadID: client.TelegramThreadID,
		})
		if err != nil {
			return nil, fmt.Errorf("chat: telegram notifier for %s: %w", client.Name, err)
		}
		notifier = tg
	} else {
		log.Printf("chat: client %s has no telegram config, notifications disabled", client.Name)
	}

	var generator Generator
	if client.OpenAIAPIKey != "" {
		gen, err := assistant.New(assistant.Opts{
			APIKey:   client.OpenAIAPIKey,
			Model:    client.OpenAIModel,
			DB:       t.db,
			Notifier: notifier,
		})
		if err != nil {
			return nil, fmt.Errorf("chat: assistant for %s: %w", client.Name, err)
		}
		generator = gen
	} else {
		log.Printf("chat: client %s has no openai key, reply generation disabled", client.Name)
	}

	return &Tenant{
		Client:      client,
		Marketplace: market,
		Notifier:    notifier,
		Generator:   generator,
		StockSource: catalog.Source{
			APIKey:        client.GoogleAPIKey,
			SpreadsheetID: client.GoogleSpreadsheetID,
			SheetName:     client.WarehouseSheetName,
			Range:         client.GoogleRange,
		},
	}, nil
}
