package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv makes sure variables from the developer's shell do not leak into a test
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TELEGRAM_TOKEN", "CHAT_ID", "DATA_FILE", "EXCEL_FILE", "POLL_INTERVAL",
		"RETRY_INTERVAL", "METRICS_ADDR", "DATABASE_URL", "RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Pages) != 2 {
		t.Errorf("got %d pages, want 2", len(cfg.Pages))
	}
	if cfg.Schedule.Interval != 3*time.Hour || cfg.Schedule.RetryInterval != time.Hour {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Storage.DataFile != "data.json" || cfg.Storage.ExcelFile != "noutbuki.xlsx" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram must be disabled without credentials")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TELEGRAM_TOKEN")
	os.Unsetenv("CHAT_ID")

	envPath := filepath.Join(t.TempDir(), ".env")
	content := "TELEGRAM_TOKEN=123:abc\nCHAT_ID=-100500\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_TOKEN")
		os.Unsetenv("CHAT_ID")
	})

	cfg, err := Load("", envPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.ChatID != "-100500" {
		t.Errorf("telegram = %+v", cfg.Telegram)
	}
	if !cfg.TelegramEnabled() {
		t.Error("telegram must be enabled when both credentials are set")
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "30m")

	yamlPath := filepath.Join(t.TempDir(), "kufarwatch.yaml")
	content := `
storage:
  data_file: /var/lib/kufarwatch/data.json
schedule:
  interval: 6h
  retry_interval: 15m
metrics:
  addr: ":9100"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(yamlPath, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataFile != "/var/lib/kufarwatch/data.json" {
		t.Errorf("data file = %q", cfg.Storage.DataFile)
	}
	if cfg.Storage.ExcelFile != DefaultExcelFile {
		t.Errorf("excel file default lost: %q", cfg.Storage.ExcelFile)
	}
	if cfg.Schedule.Interval != 30*time.Minute {
		t.Errorf("interval = %s, environment must win over the file", cfg.Schedule.Interval)
	}
	if cfg.Schedule.RetryInterval != 15*time.Minute {
		t.Errorf("retry interval = %s", cfg.Schedule.RetryInterval)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadBadDurationKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRY_INTERVAL", "soon")

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.RetryInterval != DefaultRetryInterval {
		t.Errorf("retry interval = %s", cfg.Schedule.RetryInterval)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)

	yamlPath := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(yamlPath, []byte("schedule: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(yamlPath, ""); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadRejectsEmptyPages(t *testing.T) {
	clearEnv(t)

	yamlPath := filepath.Join(t.TempDir(), "nopages.yaml")
	if err := os.WriteFile(yamlPath, []byte("pages: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(yamlPath, filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected a validation error")
	}
}
