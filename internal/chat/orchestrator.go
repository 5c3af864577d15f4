package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vkarpenko/shoptalk/internal/assistant"
	"github.com/vkarpenko/shoptalk/internal/catalog"
	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/gorm"
)

// chatURLPrefix builds the seller-facing conversation URL.
const chatURLPrefix = "https://www.avito.ru/profile/messenger/channel/"

// Operator-facing alert and buyer-facing service texts.
const (
	operatorJoinedAlert = "❗️К чату подключился оператор"
	voiceApologyReply   = "К сожалению, я пока не умею слушать голосовые сообщения. Продублируйте, пожалуйста, текстом."
)

// Outcome is the terminal result of one flush.
type Outcome string

const (
	// OutcomeReplied is the normal path: a reply was generated and sent.
	OutcomeReplied Outcome = "replied"
	// OutcomeNoStock means the listing was absent from the warehouse sheet;
	// the batch is dropped silently.
	OutcomeNoStock Outcome = "no_stock_context"
	// OutcomeEmojiOnly means the combined text had no non-emoji content.
	OutcomeEmojiOnly Outcome = "emoji_only"
	// OutcomeFailed covers downstream errors and timeouts; no reply is sent.
	OutcomeFailed Outcome = "generation_failed"
)

// Orchestrator sequences the per-event pipeline: tenant resolution, chat
// bootstrap, hand-off detection, operating-hours policy, keyword
// escalation, debounce queueing, and the flush pipeline that produces the
// reply. All processing happens on the worker pool; the webhook handler
// returns immediately.
type Orchestrator struct {
	db       *gorm.DB
	registry *Registry
	detector *Detector
	matcher  *Matcher
	hours    *Hours
	pool     *Pool
	tenants  TenantSource
	stock    StockFetcher

	replyTimeout time.Duration
	now          func() time.Time
}

// OrchestratorOpts holds parameters for creating an Orchestrator.
type OrchestratorOpts struct {
	DB      *gorm.DB
	Tenants TenantSource
	Stock   StockFetcher
	Matcher *Matcher
	Hours   *Hours

	QuietWindow  time.Duration
	ReplyTimeout time.Duration
	Workers      int
	QueueSize    int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts OrchestratorOpts) (*Orchestrator, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("chat: orchestrator: db is required")
	}
	if opts.Tenants == nil {
		return nil, fmt.Errorf("chat: orchestrator: tenant source is required")
	}
	if opts.Stock == nil {
		return nil, fmt.Errorf("chat: orchestrator: stock fetcher is required")
	}
	if opts.Matcher == nil {
		return nil, fmt.Errorf("chat: orchestrator: matcher is required")
	}
	if opts.Hours == nil {
		return nil, fmt.Errorf("chat: orchestrator: hours is required")
	}
	if opts.QuietWindow <= 0 {
		opts.QuietWindow = 15 * time.Second
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 90 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	o := &Orchestrator{
		db:           opts.DB,
		detector:     NewDetector(opts.DB),
		matcher:      opts.Matcher,
		hours:        opts.Hours,
		pool:         NewPool(opts.Workers, opts.QueueSize),
		tenants:      opts.Tenants,
		stock:        opts.Stock,
		replyTimeout: opts.ReplyTimeout,
		now:          now,
	}
	o.registry = NewRegistry(opts.QuietWindow, func(chatID, combined string, meta FlushMeta) {
		o.flushBatch(chatID, combined, meta)
	})
	return o, nil
}

// Start launches the worker pool. Workers stop when ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.pool.Start(ctx)
}

// Wait blocks until the worker pool has drained after Start's context was
// cancelled.
func (o *Orchestrator) Wait() {
	o.pool.Wait()
}

// Registry exposes the debounce registry, for tests and diagnostics.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// HandleEvent schedules background processing for one inbound event and
// returns immediately. The webhook response never waits on processing.
func (o *Orchestrator) HandleEvent(event Event) {
	o.pool.Submit("event chat="+event.ChatID, func(ctx context.Context) {
		o.registry.Do(event.ChatID, func() {
			o.process(ctx, event)
		})
	})
}

// process runs the per-event pipeline. It holds the chat lock, so all
// read-modify-write of the conversation row and the pending batch for this
// chat id is serialized in webhook arrival order.
func (o *Orchestrator) process(ctx context.Context, event Event) {
	tenant, err := o.tenants.Resolve(ctx, event.BusinessAccountID)
	if err != nil {
		log.Printf("chat: resolve tenant for chat %s: %v", event.ChatID, err)
		return
	}

	conv, err := o.ensureChat(ctx, tenant, event)
	if err != nil {
		log.Printf("chat: ensure chat %s: %v", event.ChatID, err)
		return
	}

	verdict, err := o.detector.Classify(event, conv, tenant.Client.SystemAuthorID)
	if err != nil {
		log.Printf("chat: classify event for chat %s: %v", event.ChatID, err)
		return
	}

	switch verdict.Origin {
	case OriginSystem:
		return
	case OriginBusinessEcho:
		log.Printf("chat: webhook echo of own message in chat %s", event.ChatID)
		return
	case OriginBusinessHuman:
		if conv.BotEnabled {
			o.takeOver(ctx, tenant, conv, operatorJoinedAlert)
		}
		return
	}

	// Buyer-authored from here on. Outside the operating window nothing is
	// queued and nothing is answered; the chat waits for the morning shift.
	if o.hours.Enabled() && !o.hours.BotActive(o.now()) {
		log.Printf("chat: outside bot hours, buyer message in chat %s not queued", event.ChatID)
		return
	}

	// Keyword escalation runs before the bot-enabled check: a trigger
	// phrase always alerts the operator.
	if event.Content.Kind == ContentText {
		if hits := o.matcher.Match(event.Content.Text); len(hits) > 0 {
			o.escalate(ctx, tenant, conv, event, hits)
			return
		}
	}

	if !conv.BotEnabled {
		log.Printf("chat: bot disabled for chat %s, ignoring buyer message", event.ChatID)
		return
	}

	if event.Content.Kind == ContentVoice {
		if err := tenant.Marketplace.SendMessage(ctx, event.BusinessAccountID, event.ChatID, voiceApologyReply); err != nil {
			log.Printf("chat: voice apology for chat %s: %v", event.ChatID, err)
		}
		return
	}

	meta := o.buildMeta(ctx, tenant, conv, event)
	o.registry.Enqueue(event.ChatID, event.Content.Text, meta)
}

// ensureChat loads the conversation row, bootstrapping it on first contact:
// the row and the notification thread are created on the very first event
// for an unseen chat id, whatever its disposition turns out to be.
func (o *Orchestrator) ensureChat(ctx context.Context, tenant *Tenant, event Event) (*models.Chat, error) {
	var conv models.Chat
	err := o.db.Where("chat_id = ?", event.ChatID).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chat: load chat %s: %w", event.ChatID, err)
	}

	log.Printf("chat: first contact in chat %s for client %s", event.ChatID, tenant.Client.Name)
	chatURL := chatURLPrefix + event.ChatID

	adURL, err := tenant.Marketplace.AdURL(ctx, event.BusinessAccountID, event.ItemID)
	if err != nil {
		log.Printf("chat: ad lookup for chat %s: %v", event.ChatID, err)
	}
	buyerName, buyerURL, err := tenant.Marketplace.BuyerInfo(ctx, event.BusinessAccountID, event.ChatID, event.BusinessAccountID)
	if err != nil {
		log.Printf("chat: buyer lookup for chat %s: %v", event.ChatID, err)
	}
	if buyerName == "" {
		buyerName = "Покупатель"
	}

	threadID, err := tenant.Notifier.CreateThread(ctx, fmt.Sprintf("%s, %d", buyerName, event.ItemID))
	if err != nil {
		log.Printf("chat: create notification thread for chat %s: %v", event.ChatID, err)
	}

	buyerID := ""
	if event.AuthorID != event.BusinessAccountID && event.AuthorID != tenant.Client.SystemAuthorID {
		buyerID = event.AuthorID
	}

	conv = models.Chat{
		ChatID:            event.ChatID,
		ClientID:          tenant.Client.ID,
		BuyerID:           buyerID,
		BusinessAccountID: event.BusinessAccountID,
		ThreadID:          threadID,
		ChatURL:           chatURL,
		BotEnabled:        true,
	}
	if err := o.db.Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("chat: create chat %s: %w", event.ChatID, err)
	}

	alert := fmt.Sprintf("Создан новый чат\nКлиент: %s\nСсылка на клиента: %s\nОбъявление: %s\nСсылка на чат: %s\n",
		buyerName, buyerURL, adURL, chatURL)
	if err := tenant.Notifier.Send(ctx, threadID, alert); err != nil {
		log.Printf("chat: new chat alert for %s: %v", event.ChatID, err)
	}
	return &conv, nil
}

// takeOver disables the bot for the conversation and alerts the operator
// channel. Any pending batch is dropped: the human owns the chat now.
func (o *Orchestrator) takeOver(ctx context.Context, tenant *Tenant, conv *models.Chat, alert string) {
	if err := o.db.Model(&models.Chat{}).Where("chat_id = ?", conv.ChatID).
		Update("bot_enabled", false).Error; err != nil {
		log.Printf("chat: disable bot for chat %s: %v", conv.ChatID, err)
		return
	}
	conv.BotEnabled = false
	o.registry.CancelPending(conv.ChatID)

	if err := tenant.Notifier.Send(ctx, conv.ThreadID, alert); err != nil {
		log.Printf("chat: takeover alert for chat %s: %v", conv.ChatID, err)
	}
	log.Printf("chat: operator took over chat %s", conv.ChatID)
}

// escalate handles a keyword trigger: disable the bot, record the
// escalation, alert the operator, and send the buyer the fixed hand-off
// reply. The message never reaches the debounce queue.
func (o *Orchestrator) escalate(ctx context.Context, tenant *Tenant, conv *models.Chat, event Event, phrases []string) {
	if conv.BotEnabled {
		if err := o.db.Model(&models.Chat{}).Where("chat_id = ?", conv.ChatID).
			Update("bot_enabled", false).Error; err != nil {
			log.Printf("chat: disable bot for chat %s: %v", conv.ChatID, err)
		}
		conv.BotEnabled = false
	}
	o.registry.CancelPending(conv.ChatID)

	reason := "триггерная фраза: " + strings.Join(phrases, ", ")
	rec := models.Escalation{
		ChatID:    conv.ChatID,
		ClientID:  tenant.Client.ID,
		BuyerName: event.AuthorID,
		ChatURL:   conv.ChatURL,
		Reason:    reason,
		Source:    "keyword",
	}
	if err := o.db.Create(&rec).Error; err != nil {
		log.Printf("chat: record escalation for chat %s: %v", conv.ChatID, err)
	}

	alert := fmt.Sprintf("❗️Требуется внимание менеджера\n\nПокупатель: %s\nПричина: %s\nСообщение: %s\nСсылка на чат: %s",
		event.AuthorID, reason, event.Content.Text, conv.ChatURL)
	if err := tenant.Notifier.Send(ctx, conv.ThreadID, alert); err != nil {
		log.Printf("chat: escalation alert for chat %s: %v", conv.ChatID, err)
	}

	if err := tenant.Marketplace.SendMessage(ctx, event.BusinessAccountID, conv.ChatID, o.matcher.Reply()); err != nil {
		log.Printf("chat: escalation reply for chat %s: %v", conv.ChatID, err)
	}
	log.Printf("chat: keyword escalation in chat %s (%s)", conv.ChatID, strings.Join(phrases, ", "))
}

// buildMeta captures the flush context for the newest message of a burst.
// The ad and buyer lookups run per event, so the flush sees fresh values.
func (o *Orchestrator) buildMeta(ctx context.Context, tenant *Tenant, conv *models.Chat, event Event) FlushMeta {
	adURL, err := tenant.Marketplace.AdURL(ctx, event.BusinessAccountID, event.ItemID)
	if err != nil {
		log.Printf("chat: ad lookup for chat %s: %v", event.ChatID, err)
	}
	buyerName, _, err := tenant.Marketplace.BuyerInfo(ctx, event.BusinessAccountID, event.ChatID, event.BusinessAccountID)
	if err != nil {
		log.Printf("chat: buyer lookup for chat %s: %v", event.ChatID, err)
	}
	if buyerName == "" {
		buyerName = "Покупатель"
	}
	return FlushMeta{
		BusinessAccountID: event.BusinessAccountID,
		BuyerID:           event.AuthorID,
		ClientID:          tenant.Client.ID,
		BuyerName:         buyerName,
		AdURL:             adURL,
		ChatURL:           conv.ChatURL,
		ThreadID:          conv.ThreadID,
	}
}

// flushBatch runs the reply pipeline for one drained batch. It is invoked
// from the registry's timer goroutine, outside the chat lock, and is bounded
// by the reply timeout so a stuck downstream call cannot hold resources
// forever.
func (o *Orchestrator) flushBatch(chatID, combined string, meta FlushMeta) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), o.replyTimeout)
	defer cancel()

	tenant, err := o.tenants.Resolve(ctx, meta.BusinessAccountID)
	if err != nil {
		log.Printf("chat: flush chat %s: resolve tenant: %v", chatID, err)
		return OutcomeFailed
	}

	if emojiOnly(combined) {
		log.Printf("chat: flush chat %s: emoji-only batch dropped", chatID)
		return OutcomeEmojiOnly
	}

	stock, err := o.stock.FetchStock(ctx, tenant.StockSource, meta.AdURL)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Printf("chat: flush chat %s: no stock data for %s, dropped", chatID, meta.AdURL)
		return OutcomeNoStock
	}
	if err != nil {
		log.Printf("chat: flush chat %s: stock fetch: %v", chatID, err)
		o.notifyFailure(ctx, tenant, meta, "склад недоступен")
		return OutcomeFailed
	}

	o.recordMessage(chatID, meta.BuyerID, false, combined)

	if tenant.Generator == nil {
		log.Printf("chat: flush chat %s: no generator configured", chatID)
		return OutcomeFailed
	}
	reply, err := tenant.Generator.Reply(ctx, assistant.Request{
		ChatID:       chatID,
		ClientID:     tenant.Client.ID,
		BuyerName:    meta.BuyerName,
		AdURL:        meta.AdURL,
		ChatURL:      meta.ChatURL,
		ThreadID:     meta.ThreadID,
		CombinedText: combined,
		StockContext: stock.ContextJSON(),
		GoodName:     stock.Name,
	})
	if err != nil {
		log.Printf("chat: flush chat %s: %v", chatID, err)
		o.notifyFailure(ctx, tenant, meta, "не удалось сгенерировать ответ")
		return OutcomeFailed
	}

	o.recordMessage(chatID, meta.BusinessAccountID, true, reply)

	if err := tenant.Marketplace.SendMessage(ctx, meta.BusinessAccountID, chatID, reply); err != nil {
		log.Printf("chat: flush chat %s: send reply: %v", chatID, err)
	}

	mirror := fmt.Sprintf("💁‍♂️ %s: %s\n🤖 Бот: %s\n_____\n\n", meta.BuyerName, combined, reply)
	if err := tenant.Notifier.Send(ctx, meta.ThreadID, mirror); err != nil {
		log.Printf("chat: flush chat %s: mirror alert: %v", chatID, err)
	}
	return OutcomeReplied
}

// notifyFailure surfaces a failed flush to the operator channel, best effort.
func (o *Orchestrator) notifyFailure(ctx context.Context, tenant *Tenant, meta FlushMeta, reason string) {
	text := fmt.Sprintf("⚠️ Бот не смог ответить (%s)\nСсылка на чат: %s", reason, meta.ChatURL)
	if err := tenant.Notifier.Send(ctx, meta.ThreadID, text); err != nil {
		log.Printf("chat: failure alert for chat %s: %v", meta.ChatURL, err)
	}
}

// recordMessage appends a ledger entry, best effort.
func (o *Orchestrator) recordMessage(chatID, authorID string, fromAssistant bool, body string) {
	msg := models.Message{
		ChatID:        chatID,
		AuthorID:      authorID,
		FromAssistant: fromAssistant,
		Body:          body,
	}
	if err := o.db.Create(&msg).Error; err != nil {
		log.Printf("chat: record message for chat %s: %v", chatID, err)
	}
}
