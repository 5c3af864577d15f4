package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openAssistantTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Message{},
		&models.Order{},
		&models.Return{},
		&models.Escalation{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// recordingNotifier captures alerts for tool tests.
type recordingNotifier struct {
	threads []string
	texts   []string
}

func (r *recordingNotifier) CreateThread(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (r *recordingNotifier) Send(ctx context.Context, threadID, text string) error {
	r.threads = append(r.threads, threadID)
	r.texts = append(r.texts, text)
	return nil
}

func testGenerator(t *testing.T) (*Generator, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := openAssistantTestDB(t)
	notifier := &recordingNotifier{}
	return &Generator{db: db, notifier: notifier, model: DefaultModel}, db, notifier
}

func testRequest() Request {
	return Request{
		ChatID:    "c1",
		ClientID:  1,
		BuyerName: "Иван",
		AdURL:     "https://avito.ru/item/42",
		ChatURL:   "https://avito.ru/profile/messenger/channel/c1",
		ThreadID:  "thread-1",
		GoodName:  "Куртка",
	}
}

func decodeToolOutput(t *testing.T, raw string) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("tool output %q is not JSON: %v", raw, err)
	}
	return out
}

func TestDispatchEscalation(t *testing.T) {
	g, db, notifier := testGenerator(t)

	out := g.dispatchTool(context.Background(), testRequest(), "escalation", `{"reason":"клиент требует менеджера"}`)
	if decodeToolOutput(t, out)["status"] != "success" {
		t.Errorf("output = %s", out)
	}

	var rec models.Escalation
	if err := db.First(&rec).Error; err != nil {
		t.Fatalf("load escalation: %v", err)
	}
	if rec.Source != "assistant" || rec.Reason != "клиент требует менеджера" {
		t.Errorf("escalation = %+v", rec)
	}

	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "внимание менеджера") {
		t.Errorf("alerts = %v", notifier.texts)
	}
	if notifier.threads[0] != "thread-1" {
		t.Errorf("escalation alert went to thread %q", notifier.threads[0])
	}
}

func TestDispatchCreateOrder(t *testing.T) {
	g, db, notifier := testGenerator(t)

	out := g.dispatchTool(context.Background(), testRequest(), "create_order", `{"size":"M","color":"чёрный"}`)
	if decodeToolOutput(t, out)["status"] != "success" {
		t.Errorf("output = %s", out)
	}

	var rec models.Order
	if err := db.First(&rec).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if rec.Size != "M" || rec.Color != "чёрный" || rec.GoodName != "Куртка" {
		t.Errorf("order = %+v", rec)
	}
	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "Новый заказ") {
		t.Errorf("alerts = %v", notifier.texts)
	}
}

func TestDispatchInitiateReturn(t *testing.T) {
	g, db, _ := testGenerator(t)

	out := g.dispatchTool(context.Background(), testRequest(), "initiate_return", `{"date_of_order":"01.02.2026","reason":"не подошёл размер"}`)
	if decodeToolOutput(t, out)["status"] != "success" {
		t.Errorf("output = %s", out)
	}

	var rec models.Return
	if err := db.First(&rec).Error; err != nil {
		t.Fatalf("load return: %v", err)
	}
	if rec.OrderDate != "01.02.2026" || rec.Reason != "не подошёл размер" {
		t.Errorf("return = %+v", rec)
	}
}

func TestDispatchBadArguments(t *testing.T) {
	g, _, _ := testGenerator(t)

	out := g.dispatchTool(context.Background(), testRequest(), "escalation", `not json`)
	if decodeToolOutput(t, out)["status"] != "error" {
		t.Errorf("output = %s", out)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	g, db, _ := testGenerator(t)

	out := g.dispatchTool(context.Background(), testRequest(), "launch_rocket", `{}`)
	if decodeToolOutput(t, out)["status"] != "error" {
		t.Errorf("output = %s", out)
	}

	var count int64
	db.Model(&models.Escalation{}).Count(&count)
	if count != 0 {
		t.Error("unknown tool created records")
	}
}

func TestHistoryReplaysOldestFirst(t *testing.T) {
	g, db, _ := testGenerator(t)

	db.Create(&models.Message{ChatID: "c1", AuthorID: "555", FromAssistant: false, Body: "первое"})
	db.Create(&models.Message{ChatID: "c1", AuthorID: "100", FromAssistant: true, Body: "второе"})
	db.Create(&models.Message{ChatID: "other", AuthorID: "555", FromAssistant: false, Body: "чужое"})

	turns := g.history("c1")
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].OfUser == nil || turns[1].OfAssistant == nil {
		t.Errorf("turn order wrong: %+v", turns)
	}
}
