package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoSearchRanksNameAboveBody(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	body := "the budget is attached"
	docs := []Document{
		{ID: "a", UserID: "u", OriginalName: "notes.txt", RawText: &body, CreatedAt: base},
		{ID: "b", UserID: "u", OriginalName: "budget.xlsx.txt", RawText: strPtr("numbers"), CreatedAt: base.Add(time.Hour)},
		{ID: "c", UserID: "u", OriginalName: "other.txt", RawText: strPtr("nothing here"), CreatedAt: base},
		{ID: "d", UserID: "someone-else", OriginalName: "budget.txt", RawText: &body, CreatedAt: base},
	}
	for _, d := range docs {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, total, err := repo.Search(ctx, "u", "Budget", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("expected 2 hits, got total=%d len=%d", total, len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected order %s, %s", got[0].ID, got[1].ID)
	}

	page, total, err := repo.Search(ctx, "u", "budget", 1, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("unexpected second page %v total=%d", page, total)
	}
}

func TestMemoryRepoScopesByOwner(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Create(ctx, Document{ID: "x", UserID: "owner"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.GetByID(ctx, "intruder", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, Document{ID: "x", UserID: "intruder"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if _, err := repo.Delete(ctx, "intruder", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "owner", "x"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Create(ctx, Document{ID: "x", UserID: "u", MaskedFields: []string{"email"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	doc, _ := repo.GetByID(ctx, "u", "x")
	doc.MaskedFields[0] = "changed"

	again, _ := repo.GetByID(ctx, "u", "x")
	if again.MaskedFields[0] != "email" {
		t.Fatalf("stored document mutated through returned copy")
	}
}
