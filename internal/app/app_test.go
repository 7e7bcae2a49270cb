package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/itcaat/kufarwatch/internal/config"
	"github.com/itcaat/kufarwatch/internal/store"
)

const searchPage = `<html><body>
<div class="styles_cards__bBppJ">
  <section>
    <a data-testid="kufar-ad" href="https://www.kufar.by/item/42?searchId=x">
      <h3 class="styles_title__F3uIe">MacBook Air M2</h3>
      <p class="styles_price__aVxZc">2 100 р.</p>
      <p class="styles_region__qCRbf">Минск, Центральный</p>
      <span class="styles_secondary__MzdEb">12.03.2024 18:30</span>
    </a>
  </section>
</div>
</body></html>`

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestRunOnceWithoutIntegrations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Pages = []string{srv.URL + "/l/noutbuki"}
	cfg.Storage.DataFile = filepath.Join(dir, "data.json")
	cfg.Storage.ExcelFile = filepath.Join(dir, "noutbuki.xlsx")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.dbPool != nil || a.publisher != nil || a.metricsServer != nil {
		t.Fatal("optional integrations must stay off without their settings")
	}

	if err := a.Run(context.Background(), true); err != nil {
		t.Fatalf("Run: %v", err)
	}

	saved := store.NewSnapshotStore(cfg.Storage.DataFile).Load()
	if len(saved) != 1 {
		t.Fatalf("snapshot has %d listings, want 1", len(saved))
	}
	if saved[0].Link != "https://www.kufar.by/item/42" || saved[0].Region != "Центральный" {
		t.Errorf("unexpected listing %+v", saved[0])
	}
	if _, err := os.Stat(cfg.Storage.ExcelFile); err != nil {
		t.Errorf("workbook not written: %v", err)
	}
}

func TestRunOnceReportsEmptyPass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Pages = []string{srv.URL}
	cfg.Storage.DataFile = filepath.Join(dir, "data.json")
	cfg.Storage.ExcelFile = filepath.Join(dir, "noutbuki.xlsx")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(context.Background(), true); err == nil {
		t.Fatal("expected an error when no listings were collected")
	}
	if _, err := os.Stat(cfg.Storage.DataFile); !os.IsNotExist(err) {
		t.Errorf("snapshot must not be written, stat err = %v", err)
	}
}

func TestNewWithTelegramMakesNoNetworkCall(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.ChatID = "@kufar_macbooks"

	if _, err := New(context.Background(), cfg); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestNewRejectsMalformedChatID(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.ChatID = "kufar_macbooks"

	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for a chat id that is neither numeric nor @channel")
	}
}
