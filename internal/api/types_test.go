package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTypes(t *testing.T) {
	t.Run("Bundle Normalize", func(t *testing.T) {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		bundle := &TitleBundle{
			Title:    Title{ID: 1, Name: "Meditations", Category: CategoryBook},
			TopRecap: &Recap{ID: 10, Score: 9},
			OtherRecaps: []Recap{
				{ID: 11, Score: 2, Upvotes: 3},
				{ID: 12, Score: 5},
				{ID: 13, Score: 2, Upvotes: 7},
				{ID: 14, Score: 2, Upvotes: 7, CreatedAt: base},
			},
		}

		bundle.Normalize()

		wantOrder := []int{12, 14, 13, 11}
		for i, want := range wantOrder {
			if got := bundle.OtherRecaps[i].ID; got != want {
				t.Errorf("position %d: expected recap %d, got %d", i, want, got)
			}
		}

		recaps := bundle.Recaps()
		if len(recaps) != 5 || recaps[0].ID != 10 {
			t.Errorf("expected top recap first of 5, got %+v", recaps)
		}
	})

	t.Run("Recaps With No Top", func(t *testing.T) {
		bundle := &TitleBundle{Title: Title{ID: 1}}
		if got := bundle.Recaps(); len(got) != 0 {
			t.Errorf("expected no recaps, got %d", len(got))
		}
	})

	t.Run("AuthSession Shapes", func(t *testing.T) {
		t.Run("Top-Level Tokens", func(t *testing.T) {
			payload := `{"access": "a1", "refresh": "r1", "user": {"email": "a@b.c"}}`
			var session AuthSession
			if err := json.Unmarshal([]byte(payload), &session); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.Tokens.Access != "a1" || session.Tokens.Refresh != "r1" {
				t.Errorf("expected top-level tokens, got %+v", session.Tokens)
			}
			if session.User.Email != "a@b.c" {
				t.Errorf("expected user, got %+v", session.User)
			}
		})

		t.Run("Nested Tokens", func(t *testing.T) {
			payload := `{"tokens": {"access": "a2", "refresh": "r2"}, "user": {"email": "a@b.c"}}`
			var session AuthSession
			if err := json.Unmarshal([]byte(payload), &session); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.Tokens.Access != "a2" || session.Tokens.Refresh != "r2" {
				t.Errorf("expected nested tokens, got %+v", session.Tokens)
			}
		})
	})

	t.Run("ValidCategory", func(t *testing.T) {
		for _, c := range Categories {
			if !ValidCategory(string(c)) {
				t.Errorf("expected %q to be valid", c)
			}
		}
		if !ValidCategory("") {
			t.Error(`expected "" (all categories) to be valid`)
		}
		for _, s := range []string{"Book", "music"} {
			if ValidCategory(s) {
				t.Errorf("expected %q to be invalid", s)
			}
		}
	})
}
