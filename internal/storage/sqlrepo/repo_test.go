package sqlrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"homesquare/internal/domain"
	"homesquare/internal/storage/sqlrepo"
)

func pfloat(f float64) *float64 { return &f }

func newRepo(t *testing.T) *sqlrepo.Repo {
	t.Helper()
	ctx := context.Background()
	db, err := sqlrepo.Open(ctx, "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlrepo.New(db, "sqlite")
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// idempotent
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema again: %v", err)
	}
	return repo
}

func TestRepo_InsertListDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := domain.SavedListing{
		URL: "https://www.redfin.com/a", Address: "1 Main St",
		Price: pfloat(500000), EstimatedPrice: pfloat(480000),
		Confidence: 0.95, Label: "dud", SavedAt: base,
	}
	newer := domain.SavedListing{
		URL: "https://www.zillow.com/b", Address: "2 Oak Ave",
		Confidence: 0, Label: "unknown", SavedAt: base.Add(90 * time.Second),
	}

	id1, err := repo.Insert(ctx, older)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id2, err := repo.Insert(ctx, newer)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id1 <= 0 || id2 <= id1 {
		t.Fatalf("unexpected ids %d, %d", id1, id2)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != id2 || got[1].ID != id1 {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0].Price != nil || got[0].EstimatedPrice != nil {
		t.Fatalf("missing prices should round-trip as nil: %+v", got[0])
	}
	if got[1].Price == nil || *got[1].Price != 500000 || got[1].Confidence != 0.95 {
		t.Fatalf("unexpected row: %+v", got[1])
	}
	if !got[1].SavedAt.Equal(base) {
		t.Fatalf("saved_at: %s", got[1].SavedAt)
	}

	if err := repo.Delete(ctx, id1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, id1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	got, _ = repo.List(ctx)
	if len(got) != 1 || got[0].ID != id2 {
		t.Fatalf("after delete: %+v", got)
	}
}

func TestRepo_EmptyListIsNotNil(t *testing.T) {
	got, err := newRepo(t).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := sqlrepo.Open(context.Background(), "postgres", "x"); err == nil {
		t.Fatalf("expected error")
	}
}
