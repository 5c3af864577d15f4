package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.DB.Driver)
	}
	if cfg.Dialog.QuietWindow() != 15*time.Second {
		t.Errorf("quiet window = %v, want 15s", cfg.Dialog.QuietWindow())
	}
	if cfg.Dialog.ReplyTimeout() != 90*time.Second {
		t.Errorf("reply timeout = %v, want 90s", cfg.Dialog.ReplyTimeout())
	}
	if len(cfg.Escalation.Phrases) == 0 {
		t.Error("expected default escalation phrases")
	}
	if cfg.BotHours.Timezone != "Europe/Moscow" {
		t.Errorf("timezone = %q, want Europe/Moscow", cfg.BotHours.Timezone)
	}
	if cfg.Digest.Schedule != "0 9 * * *" {
		t.Errorf("digest schedule = %q", cfg.Digest.Schedule)
	}
}

func TestParseOverrides(t *testing.T) {
	yaml := `
server:
  port: 9090
db:
  driver: mysql
  host: db.example.com
dialog:
  quiet_window_seconds: 8
escalation:
  enabled: true
  phrases: ["заберу сам"]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.DB.Driver != "mysql" || cfg.DB.Host != "db.example.com" {
		t.Errorf("db = %+v", cfg.DB)
	}
	if cfg.Dialog.QuietWindowSeconds != 8 {
		t.Errorf("quiet window = %d, want 8", cfg.Dialog.QuietWindowSeconds)
	}
	if len(cfg.Escalation.Phrases) != 1 || cfg.Escalation.Phrases[0] != "заберу сам" {
		t.Errorf("phrases = %v", cfg.Escalation.Phrases)
	}
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv("SHOPTALK_PORT", "7001")
	t.Setenv("SHOPTALK_DB_PASSWORD", "hunter2")

	cfg, err := Parse([]byte("server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want env override 7001", cfg.Server.Port)
	}
	if cfg.DB.Password != "hunter2" {
		t.Errorf("password = %q, want env override", cfg.DB.Password)
	}
}

func TestParseRejectsBadDriver(t *testing.T) {
	_, err := Parse([]byte("db:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected validation error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "db.driver") {
		t.Errorf("error %q does not mention db.driver", err)
	}
}

func TestParseRejectsBadHours(t *testing.T) {
	yaml := `
bot_hours:
  enabled: true
  start: "25:00"
`
	if _, err := Parse([]byte(yaml)); err == nil {
		t.Fatal("expected validation error for bad bot_hours.start")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
