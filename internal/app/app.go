// Package app wires the configuration into a running bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/itcaat/kufarwatch/internal/archive"
	"github.com/itcaat/kufarwatch/internal/config"
	"github.com/itcaat/kufarwatch/internal/events"
	"github.com/itcaat/kufarwatch/internal/export"
	"github.com/itcaat/kufarwatch/internal/metrics"
	"github.com/itcaat/kufarwatch/internal/notify"
	"github.com/itcaat/kufarwatch/internal/parser"
	"github.com/itcaat/kufarwatch/internal/scheduler"
	"github.com/itcaat/kufarwatch/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 10 * time.Second

// App owns every long-lived resource of the bot
type App struct {
	config    *config.Config
	scheduler *scheduler.Scheduler

	metricsServer *metrics.Server
	dbPool        *pgxpool.Pool
	publisher     *events.Publisher
}

// New builds the application from cfg.
// Malformed Telegram settings are an error. Postgres and RabbitMQ that fail to start are logged and left out.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	a := &App{config: cfg}
	m := metrics.New()

	if cfg.Metrics.Addr != "" {
		a.metricsServer = metrics.NewServer(cfg.Metrics.Addr, m)
	}

	var sender notify.Sender
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram settings: %w", err)
		}
		sender = tg
	} else {
		log.Println("App: Warning: TELEGRAM_TOKEN or CHAT_ID is not set, notifications will not be sent")
	}

	var sinks []scheduler.ChangeSink

	if cfg.Archive.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		pool, err := archive.NewClient(connectCtx, cfg.Archive.DatabaseURL)
		if err == nil {
			changeArchive := archive.NewChangeArchive(pool)
			if err = changeArchive.EnsureSchema(connectCtx); err == nil {
				a.dbPool = pool
				sinks = append(sinks, changeArchive)
				log.Println("App: Postgres change archive enabled")
			} else {
				pool.Close()
			}
		}
		cancel()
		if err != nil {
			log.Printf("App: Postgres archive disabled: %v", err)
		}
	}

	if cfg.Events.URL != "" {
		publisher, err := events.Dial(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			log.Printf("App: RabbitMQ events disabled: %v", err)
		} else {
			a.publisher = publisher
			sinks = append(sinks, publisher)
			log.Println("App: RabbitMQ change events enabled")
		}
	}

	a.scheduler = scheduler.New(scheduler.Options{
		Pages:         cfg.Pages,
		BaseURL:       cfg.BaseURL,
		Interval:      cfg.Schedule.Interval,
		RetryInterval: cfg.Schedule.RetryInterval,
		Fetcher:       parser.NewFetcher(parser.FetcherOptions{}),
		Exporter:      export.NewExcelExporter(cfg.Storage.ExcelFile),
		Store:         store.NewSnapshotStore(cfg.Storage.DataFile),
		Notifier:      notify.NewDispatcher(sender, m),
		Sinks:         sinks,
		Metrics:       m,
	})

	return a, nil
}

// Run polls until ctx is cancelled. With once set it performs a single cycle.
func (a *App) Run(ctx context.Context, once bool) error {
	defer a.close()

	if a.metricsServer != nil {
		a.metricsServer.Start()
	}

	log.Printf("App: Watching %d pages, snapshot %s, workbook %s\n",
		len(a.config.Pages), a.config.Storage.DataFile, a.config.Storage.ExcelFile)

	if once {
		res, err := a.scheduler.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("cycle failed: %w", err)
		}
		log.Printf("App: Single cycle finished: %+v\n", res)
		return nil
	}

	return a.scheduler.Run(ctx)
}

func (a *App) close() {
	log.Println("App: Shutting down...")

	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("App: Error stopping metrics server: %v\n", err)
		}
		cancel()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Printf("App: Error closing event publisher: %v\n", err)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	log.Println("App: Stopped.")
}
