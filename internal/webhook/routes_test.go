package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vkarpenko/shoptalk/internal/catalog"
	"github.com/vkarpenko/shoptalk/internal/chat"
	"github.com/vkarpenko/shoptalk/internal/config"
	"github.com/vkarpenko/shoptalk/internal/db"
	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubTenants struct{}

func (stubTenants) Resolve(ctx context.Context, businessAccountID string) (*chat.Tenant, error) {
	return nil, fmt.Errorf("no tenants in this test")
}

type stubStock struct{}

func (stubStock) FetchStock(ctx context.Context, src catalog.Source, adURL string) (*catalog.Stock, error) {
	return nil, catalog.ErrNotFound
}

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	matcher, err := chat.NewMatcher(config.EscalationConfig{Enabled: true, Phrases: []string{"заберу сам"}})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	hours, err := chat.NewHours(config.BotHoursConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new hours: %v", err)
	}
	orch, err := chat.NewOrchestrator(chat.OrchestratorOpts{
		DB:          gormDB,
		Tenants:     stubTenants{},
		Stock:       stubStock{},
		Matcher:     matcher,
		Hours:       hours,
		QuietWindow: time.Hour,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	router := gin.New()
	registerRoutes(router, gormDB, orch, chat.NewTenants(gormDB))
	return router, gormDB
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestChatEndpointAcknowledgesEverything(t *testing.T) {
	router, _ := testRouter(t)

	// Valid delivery.
	w := doRequest(router, http.MethodPost, "/chat", json.RawMessage(sampleDelivery))
	if w.Code != http.StatusOK {
		t.Errorf("valid delivery: status = %d, want 200", w.Code)
	}

	// Malformed JSON must still be acknowledged: the marketplace retries
	// non-200 responses forever.
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("malformed delivery: status = %d, want 200", w.Code)
	}

	// Unsupported payload type.
	w = doRequest(router, http.MethodPost, "/chat", map[string]interface{}{
		"payload": map[string]interface{}{"type": "chat_read"},
	})
	if w.Code != http.StatusOK {
		t.Errorf("unsupported payload: status = %d, want 200", w.Code)
	}
}

func TestClientCreateAndList(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(router, http.MethodPost, "/api/clients", map[string]interface{}{
		"name":                "shop",
		"avito_account_id":    "100",
		"avito_client_id":     "cid",
		"avito_client_secret": "secret",
		"openai_model":        "gpt-4o-mini",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body.String())
	}

	var created clientView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == 0 || created.Name != "shop" || !created.Active {
		t.Errorf("created = %+v", created)
	}

	w = doRequest(router, http.MethodGet, "/api/clients", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}
	var list []clientView
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].AvitoAccountID != "100" {
		t.Errorf("list = %+v", list)
	}
}

func TestClientCreateValidation(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(router, http.MethodPost, "/api/clients", map[string]interface{}{
		"name": "shop",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestClientResponsesNeverEchoSecrets(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(router, http.MethodPost, "/api/clients", map[string]interface{}{
		"name":                "shop",
		"avito_account_id":    "100",
		"avito_client_id":     "cid",
		"avito_client_secret": "super-secret",
		"openai_api_key":      "sk-test",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("super-secret")) || bytes.Contains(w.Body.Bytes(), []byte("sk-test")) {
		t.Errorf("response leaks secrets: %s", w.Body.String())
	}
}

func TestClientUpdateKeepsEmptyFields(t *testing.T) {
	router, gormDB := testRouter(t)

	client := models.Client{Name: "shop", AvitoAccountID: "100", AvitoClientID: "cid", AvitoClientSecret: "secret", Active: true}
	gormDB.Create(&client)

	w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/clients/%d", client.ID), map[string]interface{}{
		"openai_model": "gpt-4o",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", w.Code, w.Body.String())
	}

	var reloaded models.Client
	gormDB.First(&reloaded, client.ID)
	if reloaded.OpenAIModel != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", reloaded.OpenAIModel)
	}
	if reloaded.AvitoClientSecret != "secret" {
		t.Errorf("secret was clobbered: %q", reloaded.AvitoClientSecret)
	}
}

func TestClientEnableDisable(t *testing.T) {
	router, gormDB := testRouter(t)

	client := models.Client{Name: "shop", AvitoAccountID: "100", AvitoClientID: "cid", AvitoClientSecret: "secret", Active: true}
	gormDB.Create(&client)

	w := doRequest(router, http.MethodPost, fmt.Sprintf("/api/clients/%d/disable", client.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("disable: status = %d", w.Code)
	}
	var reloaded models.Client
	gormDB.First(&reloaded, client.ID)
	if reloaded.Active {
		t.Error("client still active after disable")
	}

	w = doRequest(router, http.MethodPost, fmt.Sprintf("/api/clients/%d/enable", client.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("enable: status = %d", w.Code)
	}
	gormDB.First(&reloaded, client.ID)
	if !reloaded.Active {
		t.Error("client still inactive after enable")
	}
}

func TestClientDelete(t *testing.T) {
	router, gormDB := testRouter(t)

	client := models.Client{Name: "shop", AvitoAccountID: "100", AvitoClientID: "cid", AvitoClientSecret: "secret", Active: true}
	gormDB.Create(&client)

	w := doRequest(router, http.MethodDelete, fmt.Sprintf("/api/clients/%d", client.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}

	var count int64
	gormDB.Model(&models.Client{}).Count(&count)
	if count != 0 {
		t.Errorf("clients remaining = %d, want 0", count)
	}
}

func TestClientNotFound(t *testing.T) {
	router, _ := testRouter(t)

	if w := doRequest(router, http.MethodGet, "/api/clients/999", nil); w.Code != http.StatusNotFound {
		t.Errorf("get: status = %d, want 404", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/clients/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", w.Code)
	}
}
