package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vkarpenko/shoptalk/internal/config"
	"github.com/vkarpenko/shoptalk/internal/db"
	"github.com/vkarpenko/shoptalk/internal/models"
	"golang.org/x/term"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Tenant management commands",
	}

	cmd.AddCommand(newClientAddCmd())
	cmd.AddCommand(newClientListCmd())
	cmd.AddCommand(newClientSetActiveCmd("enable", true))
	cmd.AddCommand(newClientSetActiveCmd("disable", false))
	return cmd
}

func newClientAddCmd() *cobra.Command {
	var (
		configPath string
		client     models.Client
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new tenant",
		Long:  "Registers a seller account. Secrets are prompted for interactively so they stay out of shell history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientAdd(cmd, configPath, client)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&client.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&client.AvitoAccountID, "avito-account", "", "Avito account id (required)")
	cmd.Flags().StringVar(&client.AvitoClientID, "avito-client-id", "", "Avito API client id (required)")
	cmd.Flags().StringVar(&client.SystemAuthorID, "system-author", "0", "author id of marketplace system notices")
	cmd.Flags().StringVar(&client.OpenAIModel, "openai-model", "", "OpenAI model name")
	cmd.Flags().StringVar(&client.TelegramChatID, "telegram-chat", "", "Telegram supergroup id")
	cmd.Flags().IntVar(&client.TelegramThreadID, "telegram-thread", 0, "default Telegram topic id")
	cmd.Flags().StringVar(&client.GoogleSpreadsheetID, "spreadsheet", "", "Google Sheets spreadsheet id")
	cmd.Flags().StringVar(&client.WarehouseSheetName, "sheet", "", "warehouse sheet name")
	cmd.Flags().StringVar(&client.GoogleRange, "range", "A1:Z500", "warehouse sheet range")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("avito-account")
	_ = cmd.MarkFlagRequired("avito-client-id")
	return cmd
}

func runClientAdd(cmd *cobra.Command, configPath string, client models.Client) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	client.AvitoClientSecret, err = promptSecret(cmd, "Avito client secret")
	if err != nil {
		return err
	}
	if client.AvitoClientSecret == "" {
		return fmt.Errorf("avito client secret is required")
	}
	client.OpenAIAPIKey, err = promptSecret(cmd, "OpenAI API key (empty to skip)")
	if err != nil {
		return err
	}
	client.TelegramBotToken, err = promptSecret(cmd, "Telegram bot token (empty to skip)")
	if err != nil {
		return err
	}
	client.GoogleAPIKey, err = promptSecret(cmd, "Google API key (empty to skip)")
	if err != nil {
		return err
	}

	client.Active = true
	if err := gormDB.Create(&client).Error; err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	fmt.Fprintf(out, "Client %q registered (id %d, account %s)\n", client.Name, client.ID, client.AvitoAccountID)
	return nil
}

// promptSecret reads a secret without echo when stdin is a terminal, and
// falls back to a plain line read otherwise (pipes in scripts and tests).
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(data), nil
	}

	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", nil
	}
	return line, nil
}

func newClientListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runClientList(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	var clients []models.Client
	if err := gormDB.Order("id").Find(&clients).Error; err != nil {
		return fmt.Errorf("list clients: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACCOUNT\tMODEL\tACTIVE")
	for _, c := range clients {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.AvitoAccountID, c.OpenAIModel, c.Active)
	}
	return w.Flush()
}

func newClientSetActiveCmd(use string, active bool) *cobra.Command {
	var configPath string

	short := "Disable a tenant"
	if active {
		short = "Enable a tenant"
	}
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientSetActive(cmd, configPath, args[0], active)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runClientSetActive(cmd *cobra.Command, configPath, rawID string, active bool) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid client id %q", rawID)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	res := gormDB.Model(&models.Client{}).Where("id = ?", uint(id)).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("update client %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("client %d not found", id)
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Client %d %s\n", id, state)
	return nil
}
