package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func sampleBundle(id int, category api.Category) *api.TitleBundle {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return &api.TitleBundle{
		Title: api.Title{ID: id, Name: "Meditations", Category: category, Author: "Marcus Aurelius", CreatedAt: now},
		TopRecap: &api.Recap{
			ID: id*100 + 1, Text: "Be good, expect nothing.", Score: 12, Upvotes: 14, Downvotes: 2,
			User: &api.User{Email: "a@b.c", Username: "stoic"}, CreatedAt: now,
		},
		OtherRecaps: []api.Recap{
			{ID: id*100 + 2, Text: "Old emperor journals.", Score: 3, Upvotes: 3, CreatedAt: now},
		},
	}
}

func TestTitleCacheRepository(t *testing.T) {
	t.Run("Save And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTitleCacheRepository(db)
		if err := repo.Save(sampleBundle(1, api.CategoryBook)); err != nil {
			t.Fatalf("failed to save bundle: %v", err)
		}

		got, err := repo.Get(1)
		if err != nil {
			t.Fatalf("failed to get bundle: %v", err)
		}
		if got.Title.Name != "Meditations" || got.Title.Author != "Marcus Aurelius" {
			t.Errorf("title fields lost in round trip: %+v", got.Title)
		}
		if got.TopRecap == nil || got.TopRecap.ID != 101 {
			t.Errorf("expected top recap 101, got %+v", got.TopRecap)
		}
		if len(got.OtherRecaps) != 1 || got.OtherRecaps[0].ID != 102 {
			t.Errorf("expected one other recap, got %+v", got.OtherRecaps)
		}
		if got.TopRecap.User == nil || got.TopRecap.User.Username != "stoic" {
			t.Errorf("expected recap author preserved, got %+v", got.TopRecap.User)
		}
	})

	t.Run("Save Replaces Recaps", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTitleCacheRepository(db)
		repo.Save(sampleBundle(1, api.CategoryBook))

		updated := sampleBundle(1, api.CategoryBook)
		updated.OtherRecaps = nil
		updated.TopRecap.Score = 20
		if err := repo.Save(updated); err != nil {
			t.Fatalf("failed to re-save bundle: %v", err)
		}

		got, err := repo.Get(1)
		if err != nil {
			t.Fatalf("failed to get bundle: %v", err)
		}
		if got.TopRecap.Score != 20 {
			t.Errorf("expected updated score, got %d", got.TopRecap.Score)
		}
		if len(got.OtherRecaps) != 0 {
			t.Errorf("expected stale recaps dropped, got %d", len(got.OtherRecaps))
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTitleCacheRepository(db)
		if _, err := repo.Get(404); err == nil {
			t.Error("expected an error for a missing title")
		}
	})

	t.Run("List And IDs Filter By Category", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTitleCacheRepository(db)
		repo.Save(sampleBundle(1, api.CategoryBook))
		repo.Save(sampleBundle(2, api.CategoryMovie))
		repo.Save(sampleBundle(3, api.CategoryBook))

		all, err := repo.List("")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 titles, got %d", len(all))
		}

		books, err := repo.IDs(api.CategoryBook)
		if err != nil {
			t.Fatalf("failed to list ids: %v", err)
		}
		if len(books) != 2 {
			t.Errorf("expected 2 book ids, got %v", books)
		}
		for _, id := range books {
			if id != 1 && id != 3 {
				t.Errorf("unexpected id %d in book listing", id)
			}
		}
	})

	t.Run("Count And Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTitleCacheRepository(db)
		repo.Save(sampleBundle(1, api.CategoryBook))
		repo.Save(sampleBundle(2, api.CategoryMovie))

		count, err := repo.Count()
		if err != nil || count != 2 {
			t.Fatalf("expected count 2, got %d (%v)", count, err)
		}

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if count, _ = repo.Count(); count != 0 {
			t.Errorf("expected empty cache, got %d", count)
		}
	})
}
