package webhook

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vkarpenko/shoptalk/internal/chat"
	"gorm.io/gorm"
)

// registerRoutes sets up the webhook and client API routes.
func registerRoutes(router *gin.Engine, db *gorm.DB, orch *chat.Orchestrator, tenants *chat.Tenants) {
	router.GET("/health", handleHealth())
	router.POST("/chat", handleChat(orch))

	api := router.Group("/api")
	api.GET("/clients", handleClientList(db))
	api.POST("/clients", handleClientCreate(db))
	api.GET("/clients/:id", handleClientGet(db))
	api.PUT("/clients/:id", handleClientUpdate(db, tenants))
	api.DELETE("/clients/:id", handleClientDelete(db, tenants))
	api.POST("/clients/:id/enable", handleClientSetActive(db, tenants, true))
	api.POST("/clients/:id/disable", handleClientSetActive(db, tenants, false))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// handleChat receives marketplace deliveries. The response is always an
// immediate 200 acknowledgement; the marketplace retries anything else, and
// a malformed delivery would be retried forever.
func handleChat(orch *chat.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Printf("webhook: malformed delivery: %v", err)
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}

		event, err := req.ToEvent()
		if err != nil {
			var unsupported ErrUnsupported
			if !errors.As(err, &unsupported) {
				log.Printf("webhook: invalid delivery %s: %v", req.ID, err)
			}
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}

		orch.HandleEvent(event)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
