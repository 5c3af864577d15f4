// Package digest builds and delivers the daily per-client activity report.
package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vkarpenko/shoptalk/internal/chat"
	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/gorm"
)

// Report holds computed metrics for one client over a 24-hour period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	NewChats           int
	BuyerMessages      int
	AssistantReplies   int
	KeywordEscalations int
	ToolEscalations    int
	Orders             int
	Returns            int
}

// Empty reports whether the period had no activity at all. Empty reports
// are not delivered.
func (r *Report) Empty() bool {
	return r.NewChats == 0 && r.BuyerMessages == 0 && r.AssistantReplies == 0 &&
		r.KeywordEscalations == 0 && r.ToolEscalations == 0 &&
		r.Orders == 0 && r.Returns == 0
}

// Build queries the last 24 hours of activity for one client.
func Build(db *gorm.DB, clientID uint, now time.Time) (*Report, error) {
	since := now.Add(-24 * time.Hour)
	report := &Report{PeriodStart: since, PeriodEnd: now}

	chatIDs := db.Model(&models.Chat{}).Select("chat_id").Where("client_id = ?", clientID)

	count := func(metric string, q *gorm.DB) (int, error) {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return 0, fmt.Errorf("digest: count %s: %w", metric, err)
		}
		return int(n), nil
	}

	var err error
	report.NewChats, err = count("chats", db.Model(&models.Chat{}).
		Where("client_id = ? AND created_at >= ? AND created_at < ?", clientID, since, now))
	if err != nil {
		return nil, err
	}

	report.BuyerMessages, err = count("buyer messages", db.Model(&models.Message{}).
		Where("chat_id IN (?) AND from_assistant = ? AND created_at >= ? AND created_at < ?",
			chatIDs, false, since, now))
	if err != nil {
		return nil, err
	}

	report.AssistantReplies, err = count("assistant replies", db.Model(&models.Message{}).
		Where("chat_id IN (?) AND from_assistant = ? AND created_at >= ? AND created_at < ?",
			chatIDs, true, since, now))
	if err != nil {
		return nil, err
	}

	report.KeywordEscalations, err = count("keyword escalations", db.Model(&models.Escalation{}).
		Where("client_id = ? AND source = ? AND created_at >= ? AND created_at < ?",
			clientID, "keyword", since, now))
	if err != nil {
		return nil, err
	}

	report.ToolEscalations, err = count("tool escalations", db.Model(&models.Escalation{}).
		Where("client_id = ? AND source = ? AND created_at >= ? AND created_at < ?",
			clientID, "assistant", since, now))
	if err != nil {
		return nil, err
	}

	report.Orders, err = count("orders", db.Model(&models.Order{}).
		Where("client_id = ? AND created_at >= ? AND created_at < ?", clientID, since, now))
	if err != nil {
		return nil, err
	}

	report.Returns, err = count("returns", db.Model(&models.Return{}).
		Where("client_id = ? AND created_at >= ? AND created_at < ?", clientID, since, now))
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Format renders the report as the operator-channel message.
func Format(clientName string, r *Report) string {
	var lines []string
	lines = append(lines, "📊 Отчёт за сутки: "+clientName)
	lines = append(lines, fmt.Sprintf("Период: %s – %s",
		r.PeriodStart.Format("02.01 15:04"), r.PeriodEnd.Format("02.01 15:04")))
	lines = append(lines, fmt.Sprintf("Новых чатов: %d", r.NewChats))
	lines = append(lines, fmt.Sprintf("Сообщений от покупателей: %d", r.BuyerMessages))
	lines = append(lines, fmt.Sprintf("Ответов бота: %d", r.AssistantReplies))
	if r.KeywordEscalations > 0 || r.ToolEscalations > 0 {
		lines = append(lines, fmt.Sprintf("Эскалаций: %d (по фразам: %d, от бота: %d)",
			r.KeywordEscalations+r.ToolEscalations, r.KeywordEscalations, r.ToolEscalations))
	}
	if r.Orders > 0 {
		lines = append(lines, fmt.Sprintf("Заказов: %d", r.Orders))
	}
	if r.Returns > 0 {
		lines = append(lines, fmt.Sprintf("Возвратов: %d", r.Returns))
	}
	return strings.Join(lines, "\n")
}

// Scheduler runs the digest on a cron schedule and sends each active
// client's report through its own notification channel.
type Scheduler struct {
	db      *gorm.DB
	tenants chat.TenantSource
	cron    *cron.Cron
	now     func() time.Time
}

// NewScheduler creates a Scheduler. The schedule is a standard 5-field cron
// expression.
func NewScheduler(db *gorm.DB, tenants chat.TenantSource, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		db:      db,
		tenants: tenants,
		cron:    cron.New(),
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("digest: schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Run builds and delivers the digest for every active client. Reports with
// no activity are suppressed.
func (s *Scheduler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var clients []models.Client
	if err := s.db.Where("active = ?", true).Find(&clients).Error; err != nil {
		log.Printf("digest: load clients: %v", err)
		return
	}

	now := s.now()
	for i := range clients {
		client := &clients[i]
		report, err := Build(s.db, client.ID, now)
		if err != nil {
			log.Printf("digest: client %s: %v", client.Name, err)
			continue
		}
		if report.Empty() {
			continue
		}

		tenant, err := s.tenants.Resolve(ctx, client.AvitoAccountID)
		if err != nil {
			log.Printf("digest: client %s: %v", client.Name, err)
			continue
		}
		if err := tenant.Notifier.Send(ctx, "", Format(client.Name, report)); err != nil {
			log.Printf("digest: send for client %s: %v", client.Name, err)
		}
	}
}
