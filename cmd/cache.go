package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/brettbeeson/notsolong/internal/formatter"
	"github.com/brettbeeson/notsolong/internal/repositories"
	"github.com/brettbeeson/notsolong/internal/tasks"
)

// CacheWarm bulk-fetches random titles into the local cache for offline
// reading. Progress is streamed to the terminal as fetches complete.
func (r *Runner) CacheWarm(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)
	warmer := tasks.NewCacheWarmer(r.client, repo, r.logger)

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.writePlain("  [%d/%d] %s\n", update.Current, update.Total, update.Message)
		}
	}()

	result, err := warmer.Warm(ctx, prog, tasks.WarmOpts{
		Category:  category,
		Count:     int(cmd.Int("count")),
		RateLimit: cmd.Float("rate"),
	})
	close(prog)
	<-done

	if err != nil {
		return fmt.Errorf("cache warm failed: %w", err)
	}

	r.writePlainHeader("Cache Warm Complete")
	r.writePlain("Fetched: %d/%d\n", result.Fetched, result.Requested)
	if result.Failed > 0 {
		r.writePlain("Failed: %d\n", result.Failed)
	}
	if result.EmptyCategory {
		r.writePlain("The category has no titles at all.\n")
	} else if result.Exhausted {
		r.writePlain("Ran out of unseen titles before reaching the target.\n")
	}
	return nil
}

// CacheList prints the cached titles.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	titles, err := repo.List(category)
	if err != nil {
		return err
	}
	if len(titles) == 0 {
		r.writePlainln("Cache is empty. Fill it with `nsl cache warm`.")
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(titles, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Cached Titles (%d)", len(titles)))
	for _, title := range titles {
		line := fmt.Sprintf("%d\t[%s]\t%s", title.ID, title.Category, title.Name)
		if title.Author != "" {
			line += " — " + title.Author
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// CacheShow prints one cached bundle without touching the network.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	id, err := titleIDArg(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	bundle, err := repo.Get(id)
	if err != nil {
		return err
	}
	return r.renderBundle(bundle, renderFlags(cmd))
}

// CacheClear empties the local cache.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	count, err := repo.Count()
	if err != nil {
		return err
	}
	if err := repo.Clear(); err != nil {
		return err
	}

	r.writePlainln("✓ Cleared %d cached titles", count)
	return nil
}

// CacheExport writes cached titles to CSV for spreadsheet import.
func (r *Runner) CacheExport(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	titles, err := repo.List(category)
	if err != nil {
		return err
	}

	data, err := formatter.TitlesToCSV(titles)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
