// Package archive keeps a Postgres log of every detected listing change.
package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/itcaat/kufarwatch/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	KindNew     = "new"
	KindUpdated = "updated"
)

const schema = `
CREATE TABLE IF NOT EXISTS listing_changes (
    id           BIGSERIAL PRIMARY KEY,
    kind         TEXT        NOT NULL,
    link         TEXT        NOT NULL,
    title        TEXT        NOT NULL,
    price        INTEGER,
    region       TEXT        NOT NULL,
    published_at TIMESTAMPTZ,
    detected_at  TIMESTAMPTZ NOT NULL,
    UNIQUE (link, kind, detected_at)
);
CREATE INDEX IF NOT EXISTS idx_listing_changes_link ON listing_changes(link);
`

const insertChange = `
INSERT INTO listing_changes (kind, link, title, price, region, published_at, detected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (link, kind, detected_at) DO NOTHING
`

// execer is the part of *pgxpool.Pool the archive needs
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewClient opens and checks a connection pool
func NewClient(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// ChangeArchive appends detected changes to listing_changes
type ChangeArchive struct {
	db  execer
	now func() time.Time
}

// NewChangeArchive creates an archive over db
func NewChangeArchive(db execer) *ChangeArchive {
	return &ChangeArchive{db: db, now: time.Now}
}

// EnsureSchema creates the table if it does not exist yet
func (a *ChangeArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating listing_changes: %w", err)
	}
	return nil
}

// Name identifies the sink in logs
func (a *ChangeArchive) Name() string {
	return "postgres archive"
}

// Publish stores every change with the same detection time
func (a *ChangeArchive) Publish(ctx context.Context, changes models.Changes) error {
	detectedAt := a.now()
	stored := 0

	write := func(kind string, items []models.Listing) error {
		for _, l := range items {
			if _, err := a.db.Exec(ctx, insertChange,
				kind, l.Link, l.Title, l.Price, l.Region, l.PublishedAt, detectedAt,
			); err != nil {
				return fmt.Errorf("error archiving %s change for %s: %w", kind, l.Link, err)
			}
			stored++
		}
		return nil
	}

	if err := write(KindNew, changes.New); err != nil {
		return err
	}
	if err := write(KindUpdated, changes.Updated); err != nil {
		return err
	}

	log.Printf("Archive: Stored %d changes\n", stored)
	return nil
}
