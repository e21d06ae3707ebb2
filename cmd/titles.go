package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/formatter"
	"github.com/brettbeeson/notsolong/internal/repositories"
	"github.com/brettbeeson/notsolong/internal/shared"
)

// TitlesNext fetches the next unseen title and records it in the local cache.
//
// The most recently cached titles act as the seen-window: they are excluded
// from the random pick, so repeated invocations walk through unseen titles
// the same way the TUI feed does.
func (r *Runner) TitlesNext(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	seen, err := repo.IDs(category)
	if err != nil {
		return err
	}
	window := r.config.Session.ExcludeWindow
	if window > 0 && len(seen) > window {
		seen = seen[:window]
	}

	bundle, err := r.client.RandomTitle(ctx, category, seen)
	if err != nil {
		if errors.Is(err, shared.ErrNoTitles) {
			return fmt.Errorf("%w: add one with `nsl titles add`", shared.ErrNoTitles)
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "fetch failed"))
	}
	if bundle == nil {
		r.writePlainln("You have seen everything here. `nsl titles restart` starts over.")
		return nil
	}

	if err := repo.Save(bundle); err != nil {
		r.logger.Warn("failed to cache title", "error", err)
	}

	return r.renderBundle(bundle, renderFlags(cmd))
}

// TitlesBack shows the previously seen title from the local cache.
func (r *Runner) TitlesBack(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	seen, err := repo.IDs(category)
	if err != nil {
		return err
	}
	if len(seen) < 2 {
		r.writePlainln("Nothing to go back to yet.")
		return nil
	}

	bundle, err := repo.Get(seen[1])
	if err != nil {
		return err
	}
	return r.renderBundle(bundle, renderFlags(cmd))
}

// TitlesRandom fetches a random title without touching the seen-window.
func (r *Runner) TitlesRandom(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	bundle, err := r.client.RandomTitle(ctx, category, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "fetch failed"))
	}
	return r.renderBundle(bundle, renderFlags(cmd))
}

// TitlesCount reports how many titles exist, the numbers the web category
// picker shows next to each filter. With --category it prints one count;
// without, a per-category breakdown plus the total.
func (r *Runner) TitlesCount(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	if category != "" {
		count, err := r.client.TitleCount(ctx, category)
		if err != nil {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "count failed"))
		}
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"category": category, "count": count}, cmd.Bool("pretty"))
		}
		return r.writePlain("%s: %d\n", category, count)
	}

	total, err := r.client.TitleCount(ctx, "")
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "count failed"))
	}
	counts := make(map[api.Category]int, len(api.Categories))
	for _, c := range api.Categories {
		n, err := r.client.TitleCount(ctx, c)
		if err != nil {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "count failed"))
		}
		counts[c] = n
	}

	if cmd.Bool("json") {
		out := map[string]any{"total": total}
		for c, n := range counts {
			out[string(c)] = n
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Titles")
	for _, c := range api.Categories {
		r.writePlain("%-8s %d\n", c, counts[c])
	}
	return r.writePlain("%-8s %d\n", "total", total)
}

// TitlesShow fetches one title with all its recaps, falling back to the
// local cache when the backend is unreachable.
func (r *Runner) TitlesShow(ctx context.Context, cmd *cli.Command) error {
	id, err := titleIDArg(cmd)
	if err != nil {
		return err
	}

	bundle, err := r.client.TitleSummary(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrTitleNotFound) {
			return err
		}

		r.logger.Warn("backend unreachable, trying local cache", "error", err)
		db, dbErr := r.openDatabase()
		if dbErr != nil {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "fetch failed"))
		}
		repo := repositories.NewTitleCacheRepository(db)
		if bundle, dbErr = repo.Get(id); dbErr != nil {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, api.ErrorMessage(err, "fetch failed"))
		}
		r.writePlain("(served from local cache)\n")
	}

	return r.renderBundle(bundle, renderFlags(cmd))
}

// TitlesAdd creates a new title. Requires a signed-in session.
func (r *Runner) TitlesAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		return fmt.Errorf("%w: --name is required", shared.ErrMissingArgument)
	}
	categoryStr := cmd.String("category")
	if !api.ValidCategory(categoryStr) {
		return fmt.Errorf("%w: category must be one of %v", shared.ErrInvalidFlag, api.Categories)
	}

	title, err := r.client.CreateTitle(ctx, api.TitleInput{
		Name:     name,
		Category: api.Category(categoryStr),
		Author:   cmd.String("author"),
	})
	if err != nil {
		return fmt.Errorf("failed to create title: %s", api.ErrorMessage(err, "create failed"))
	}

	r.writePlainln("✓ Title created: %s (id %d)", title.Name, title.ID)
	r.writePlain("Add the first recap: nsl recaps add --title %d --text \"...\"\n", title.ID)
	return nil
}

// TitlesRestart clears the seen-window so the feed starts over.
func (r *Runner) TitlesRestart(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	repo := repositories.NewTitleCacheRepository(db)

	if err := repo.Clear(); err != nil {
		return err
	}

	r.writePlainln("✓ Feed restarted. `nsl titles next` picks from everything again.")
	return nil
}

// renderOpts selects the output format for a bundle.
type renderOpts struct {
	json     bool
	pretty   bool
	markdown bool
}

func renderFlags(cmd *cli.Command) renderOpts {
	return renderOpts{
		json:     cmd.Bool("json"),
		pretty:   cmd.Bool("pretty"),
		markdown: cmd.Bool("markdown"),
	}
}

func (r *Runner) renderBundle(bundle *api.TitleBundle, opts renderOpts) error {
	if bundle == nil {
		r.writePlainln("Nothing to show.")
		return nil
	}

	if opts.json {
		return r.writeJSON(bundle, opts.pretty)
	}
	if opts.markdown {
		return r.writePlain("%s", formatter.BundleToMarkdown(bundle))
	}
	return r.writePlain("%s", formatter.BundleToText(bundle))
}

func categoryFlag(cmd *cli.Command) (api.Category, error) {
	categoryStr := cmd.String("category")
	if categoryStr == "" {
		return "", nil
	}
	if !api.ValidCategory(categoryStr) {
		return "", fmt.Errorf("%w: category must be one of %v", shared.ErrInvalidFlag, api.Categories)
	}
	return api.Category(categoryStr), nil
}

func titleIDArg(cmd *cli.Command) (int, error) {
	raw := cmd.StringArg("id")
	if raw == "" {
		return 0, fmt.Errorf("%w: title id", shared.ErrMissingArgument)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: title id must be a number", shared.ErrInvalidArgument)
	}
	return id, nil
}
