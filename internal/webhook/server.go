package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vkarpenko/shoptalk/internal/chat"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	DB           *gorm.DB
	Orchestrator *chat.Orchestrator
	Tenants      *chat.Tenants
	Port         int
	Out          io.Writer
}

// Start launches the webhook HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("webhook: db is required")
	}
	if opts.Orchestrator == nil {
		return fmt.Errorf("webhook: orchestrator is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8000
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.DB, opts.Orchestrator, opts.Tenants)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Webhook server listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
