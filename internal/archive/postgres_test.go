package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/itcaat/kufarwatch/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPublish(t *testing.T) {
	db := &fakeDB{}
	a := NewChangeArchive(db)
	detected := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return detected }

	changes := models.Changes{
		New:     []models.Listing{{Title: "Air", Region: "Брест", Link: "https://www.kufar.by/item/1"}},
		Updated: []models.Listing{{Title: "Pro", Price: models.IntPtr(3000), Region: "Гомель", Link: "https://www.kufar.by/item/2"}},
	}

	if err := a.Publish(context.Background(), changes); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(db.calls) != 2 {
		t.Fatalf("got %d inserts, want 2", len(db.calls))
	}
	if db.calls[0].args[0] != KindNew || db.calls[1].args[0] != KindUpdated {
		t.Errorf("kinds = %v, %v", db.calls[0].args[0], db.calls[1].args[0])
	}
	if db.calls[1].args[1] != "https://www.kufar.by/item/2" {
		t.Errorf("link = %v", db.calls[1].args[1])
	}
	if db.calls[0].args[6] != detected || db.calls[1].args[6] != detected {
		t.Error("all rows of one cycle must share the detection time")
	}
	if !strings.Contains(db.calls[0].sql, "ON CONFLICT") {
		t.Error("insert must be idempotent")
	}
}

func TestPublishError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	a := NewChangeArchive(db)

	err := a.Publish(context.Background(), models.Changes{New: []models.Listing{{Link: "https://www.kufar.by/item/1"}}})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewChangeArchive(db).EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS listing_changes") {
		t.Fatalf("unexpected schema statement: %+v", db.calls)
	}
}
