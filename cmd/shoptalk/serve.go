package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vkarpenko/shoptalk/internal/catalog"
	"github.com/vkarpenko/shoptalk/internal/chat"
	"github.com/vkarpenko/shoptalk/internal/config"
	"github.com/vkarpenko/shoptalk/internal/db"
	"github.com/vkarpenko/shoptalk/internal/digest"
	"github.com/vkarpenko/shoptalk/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long:  "Starts the webhook server, the message-batching workers and the daily digest scheduler.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	matcher, err := chat.NewMatcher(cfg.Escalation)
	if err != nil {
		return err
	}
	hours, err := chat.NewHours(cfg.BotHours)
	if err != nil {
		return err
	}

	tenants := chat.NewTenants(gormDB)
	orch, err := chat.NewOrchestrator(chat.OrchestratorOpts{
		DB:           gormDB,
		Tenants:      tenants,
		Stock:        catalog.New(catalog.Opts{}),
		Matcher:      matcher,
		Hours:        hours,
		QuietWindow:  cfg.Dialog.QuietWindow(),
		ReplyTimeout: cfg.Dialog.ReplyTimeout(),
		Workers:      cfg.Dialog.Workers,
		QueueSize:    cfg.Dialog.QueueSize,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch.Start(ctx)

	if cfg.Digest.Enabled {
		sched, err := digest.NewScheduler(gormDB, tenants, cfg.Digest.Schedule)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		fmt.Fprintf(out, "Daily digest scheduled at %q\n", cfg.Digest.Schedule)
	}

	err = webhook.Start(ctx, webhook.StartOpts{
		DB:           gormDB,
		Orchestrator: orch,
		Tenants:      tenants,
		Port:         cfg.Server.Port,
		Out:          out,
	})

	// Let in-flight jobs finish before exiting.
	orch.Wait()
	return err
}
