// package repositories provides the local persistence layer: a SQLite cache
// of browsed titles and their recaps for offline viewing.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/brettbeeson/notsolong/internal/api"
)

// TitleCacheRepository stores title bundles fetched from the backend.
//
// The cache is advisory: reads fall back to the network when an id is
// missing, and Save replaces a title's recaps wholesale so the cache never
// holds a stale mix.
type TitleCacheRepository struct {
	db *sql.DB
}

// NewTitleCacheRepository creates a repository over the given database.
func NewTitleCacheRepository(db *sql.DB) *TitleCacheRepository {
	return &TitleCacheRepository{db: db}
}

// Save upserts the bundle's title and replaces its cached recaps.
func (r *TitleCacheRepository) Save(bundle *api.TitleBundle) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	title := bundle.Title
	_, err = tx.Exec(`
		INSERT INTO cached_titles (id, name, category, author, created_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			author = excluded.author,
			cached_at = excluded.cached_at
	`, title.ID, title.Name, string(title.Category), title.Author, title.CreatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert title: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM cached_recaps WHERE title_id = ?", title.ID); err != nil {
		return fmt.Errorf("failed to clear cached recaps: %w", err)
	}

	insert := func(recap *api.Recap, isTop bool) error {
		var email, name string
		if recap.User != nil {
			email = recap.User.Email
			name = recap.User.Username
		}
		_, err := tx.Exec(`
			INSERT INTO cached_recaps (id, title_id, user_email, user_name, text, score, upvotes, downvotes, is_top, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, recap.ID, title.ID, email, name, recap.Text, recap.Score, recap.Upvotes, recap.Downvotes, isTop, recap.CreatedAt, recap.UpdatedAt)
		return err
	}

	if bundle.TopRecap != nil {
		if err := insert(bundle.TopRecap, true); err != nil {
			return fmt.Errorf("failed to insert top recap: %w", err)
		}
	}
	for i := range bundle.OtherRecaps {
		if err := insert(&bundle.OtherRecaps[i], false); err != nil {
			return fmt.Errorf("failed to insert recap: %w", err)
		}
	}

	return tx.Commit()
}

// Get retrieves a cached bundle by title id.
func (r *TitleCacheRepository) Get(id int) (*api.TitleBundle, error) {
	var bundle api.TitleBundle
	var category string

	err := r.db.QueryRow(`
		SELECT id, name, category, COALESCE(author, ''), created_at
		FROM cached_titles WHERE id = ?
	`, id).Scan(&bundle.Title.ID, &bundle.Title.Name, &category, &bundle.Title.Author, &bundle.Title.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("title not cached: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query title: %w", err)
	}
	bundle.Title.Category = api.Category(category)

	rows, err := r.db.Query(`
		SELECT id, COALESCE(user_email, ''), COALESCE(user_name, ''), text, score, upvotes, downvotes, is_top, created_at, updated_at
		FROM cached_recaps WHERE title_id = ?
		ORDER BY is_top DESC, score DESC, upvotes DESC, created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query recaps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recap api.Recap
		var email, name string
		var isTop bool
		if err := rows.Scan(&recap.ID, &email, &name, &recap.Text, &recap.Score, &recap.Upvotes, &recap.Downvotes, &isTop, &recap.CreatedAt, &recap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recap: %w", err)
		}
		if email != "" || name != "" {
			recap.User = &api.User{Email: email, Username: name}
		}
		if isTop && bundle.TopRecap == nil {
			top := recap
			bundle.TopRecap = &top
		} else {
			bundle.OtherRecaps = append(bundle.OtherRecaps, recap)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recaps: %w", err)
	}

	return &bundle, nil
}

// List returns cached titles, optionally filtered by category, most recently
// cached first.
func (r *TitleCacheRepository) List(category api.Category) ([]api.Title, error) {
	query := "SELECT id, name, category, COALESCE(author, ''), created_at FROM cached_titles"
	args := []any{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, string(category))
	}
	query += " ORDER BY cached_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer rows.Close()

	var titles []api.Title
	for rows.Next() {
		var title api.Title
		var cat string
		if err := rows.Scan(&title.ID, &title.Name, &cat, &title.Author, &title.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		title.Category = api.Category(cat)
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}

	return titles, nil
}

// IDs returns the ids of all cached titles, optionally filtered by category.
func (r *TitleCacheRepository) IDs(category api.Category) ([]int, error) {
	titles, err := r.List(category)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(titles))
	for i, t := range titles {
		ids[i] = t.ID
	}
	return ids, nil
}

// Count returns the number of cached titles.
func (r *TitleCacheRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM cached_titles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count titles: %w", err)
	}
	return count, nil
}

// Clear removes all cached titles and recaps.
func (r *TitleCacheRepository) Clear() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cached_recaps"); err != nil {
		return fmt.Errorf("failed to clear recaps: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM cached_titles"); err != nil {
		return fmt.Errorf("failed to clear titles: %w", err)
	}

	return tx.Commit()
}
