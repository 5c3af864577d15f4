package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "db:\n  driver: sqlite\n  path: " + filepath.Join(dir, "test.db") + "\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "shoptalk") {
		t.Errorf("output = %q", out)
	}
}

func TestDBMigrateCommand(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "db", "migrate", "--config", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Migrated 6 tables") {
		t.Errorf("output = %q", out)
	}
}

func TestClientListEmpty(t *testing.T) {
	cfg := writeTestConfig(t)

	if _, err := runCommand(t, "db", "migrate", "--config", cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err := runCommand(t, "client", "list", "--config", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, "NAME") {
		t.Errorf("output = %q", out)
	}
}

func TestClientEnableUnknownID(t *testing.T) {
	cfg := writeTestConfig(t)

	if _, err := runCommand(t, "db", "migrate", "--config", cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := runCommand(t, "client", "enable", "42", "--config", cfg); err == nil {
		t.Fatal("expected error for unknown client id")
	}
}

func TestServeRequiresConfig(t *testing.T) {
	if _, err := runCommand(t, "serve", "--config", "missing.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
