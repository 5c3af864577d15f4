package webhook

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vkarpenko/shoptalk/internal/chat"
	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/gorm"
)

// clientPayload is the client API request body. All credential fields are
// optional on update; empty fields keep their stored value.
type clientPayload struct {
	Name              string `json:"name"`
	AvitoAccountID    string `json:"avito_account_id"`
	AvitoClientID     string `json:"avito_client_id"`
	AvitoClientSecret string `json:"avito_client_secret"`
	SystemAuthorID    string `json:"system_author_id"`

	OpenAIAPIKey string `json:"openai_api_key"`
	OpenAIModel  string `json:"openai_model"`

	TelegramBotToken string `json:"telegram_bot_token"`
	TelegramChatID   string `json:"telegram_chat_id"`
	TelegramThreadID int    `json:"telegram_thread_id"`

	GoogleAPIKey        string `json:"google_api_key"`
	GoogleSpreadsheetID string `json:"google_spreadsheet_id"`
	GoogleRange         string `json:"google_range"`
	WarehouseSheetName  string `json:"warehouse_sheet_name"`
}

// clientView is the client API response shape. Secrets are never echoed.
type clientView struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	AvitoAccountID string `json:"avito_account_id"`
	OpenAIModel    string `json:"openai_model"`
	Active         bool   `json:"active"`
}

func viewOf(c *models.Client) clientView {
	return clientView{
		ID:             c.ID,
		Name:           c.Name,
		AvitoAccountID: c.AvitoAccountID,
		OpenAIModel:    c.OpenAIModel,
		Active:         c.Active,
	}
}

func handleClientList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var clients []models.Client
		if err := db.Order("id").Find(&clients).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list clients failed"})
			return
		}
		views := make([]clientView, 0, len(clients))
		for i := range clients {
			views = append(views, viewOf(&clients[i]))
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleClientCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req clientPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Name == "" || req.AvitoAccountID == "" || req.AvitoClientID == "" || req.AvitoClientSecret == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, avito_account_id, avito_client_id and avito_client_secret are required"})
			return
		}

		client := models.Client{
			Name:                req.Name,
			AvitoAccountID:      req.AvitoAccountID,
			AvitoClientID:       req.AvitoClientID,
			AvitoClientSecret:   req.AvitoClientSecret,
			SystemAuthorID:      req.SystemAuthorID,
			OpenAIAPIKey:        req.OpenAIAPIKey,
			OpenAIModel:         req.OpenAIModel,
			TelegramBotToken:    req.TelegramBotToken,
			TelegramChatID:      req.TelegramChatID,
			TelegramThreadID:    req.TelegramThreadID,
			GoogleAPIKey:        req.GoogleAPIKey,
			GoogleSpreadsheetID: req.GoogleSpreadsheetID,
			GoogleRange:         req.GoogleRange,
			WarehouseSheetName:  req.WarehouseSheetName,
			Active:              true,
		}
		if client.SystemAuthorID == "" {
			client.SystemAuthorID = "0"
		}
		if err := db.Create(&client).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "create client failed"})
			return
		}
		c.JSON(http.StatusCreated, viewOf(&client))
	}
}

func handleClientGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := loadClient(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewOf(client))
	}
}

func handleClientUpdate(db *gorm.DB, tenants *chat.Tenants) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := loadClient(c, db)
		if !ok {
			return
		}
		var req clientPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		applyUpdate(client, &req)
		if err := db.Save(client).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update client failed"})
			return
		}
		if tenants != nil {
			tenants.Invalidate(client.AvitoAccountID)
		}
		c.JSON(http.StatusOK, viewOf(client))
	}
}

func handleClientDelete(db *gorm.DB, tenants *chat.Tenants) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := loadClient(c, db)
		if !ok {
			return
		}
		if err := db.Delete(client).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete client failed"})
			return
		}
		if tenants != nil {
			tenants.Invalidate(client.AvitoAccountID)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleClientSetActive(db *gorm.DB, tenants *chat.Tenants, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := loadClient(c, db)
		if !ok {
			return
		}
		if err := db.Model(client).Update("active", active).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update client failed"})
			return
		}
		client.Active = active
		if tenants != nil {
			tenants.Invalidate(client.AvitoAccountID)
		}
		c.JSON(http.StatusOK, viewOf(client))
	}
}

// applyUpdate copies the non-empty fields of req onto the client row.
func applyUpdate(client *models.Client, req *clientPayload) {
	if req.Name != "" {
		client.Name = req.Name
	}
	if req.AvitoClientID != "" {
		client.AvitoClientID = req.AvitoClientID
	}
	if req.AvitoClientSecret != "" {
		client.AvitoClientSecret = req.AvitoClientSecret
	}
	if req.SystemAuthorID != "" {
		client.SystemAuthorID = req.SystemAuthorID
	}
	if req.OpenAIAPIKey != "" {
		client.OpenAIAPIKey = req.OpenAIAPIKey
	}
	if req.OpenAIModel != "" {
		client.OpenAIModel = req.OpenAIModel
	}
	if req.TelegramBotToken != "" {
		client.TelegramBotToken = req.TelegramBotToken
	}
	if req.TelegramChatID != "" {
		client.TelegramChatID = req.TelegramChatID
	}
	if req.TelegramThreadID != 0 {
		client.TelegramThreadID = req.TelegramThreadID
	}
	if req.GoogleAPIKey != "" {
		client.GoogleAPIKey = req.GoogleAPIKey
	}
	if req.GoogleSpreadsheetID != "" {
		client.GoogleSpreadsheetID = req.GoogleSpreadsheetID
	}
	if req.GoogleRange != "" {
		client.GoogleRange = req.GoogleRange
	}
	if req.WarehouseSheetName != "" {
		client.WarehouseSheetName = req.WarehouseSheetName
	}
}

// loadClient resolves the :id path parameter to a client row, writing the
// error response itself when it fails.
func loadClient(c *gin.Context, db *gorm.DB) (*models.Client, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return nil, false
	}
	var client models.Client
	if err := db.First(&client, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "load client failed"})
		}
		return nil, false
	}
	return &client, true
}
