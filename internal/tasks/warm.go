package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/repositories"
	"github.com/brettbeeson/notsolong/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// WarmOpts configures a cache warming run.
type WarmOpts struct {
	Category  api.Category
	Count     int     // Titles to fetch (default 25)
	RateLimit float64 // Requests per second (default 2)
}

// WarmResult summarizes a cache warming run.
type WarmResult struct {
	Requested     int
	Fetched       int
	Failed        int
	Exhausted     bool // ran out of unseen titles before reaching Count
	EmptyCategory bool // the category has no titles at all
}

// CacheWarmer walks the random-title feed and stores each bundle in the
// local cache for offline viewing.
type CacheWarmer struct {
	client *api.Client
	repo   *repositories.TitleCacheRepository
	logger *log.Logger
}

// NewCacheWarmer creates a warmer over the given client and cache.
func NewCacheWarmer(client *api.Client, repo *repositories.TitleCacheRepository, logger *log.Logger) *CacheWarmer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CacheWarmer{client: client, repo: repo, logger: logger}
}

// Warm fetches up to opts.Count random titles, excluding everything fetched
// so far, and caches each bundle. Requests are rate limited to stay polite
// to the backend. Fetches are serial: each request's exclusion list depends
// on the previous results.
//
// Progress is reported through prog when non-nil. Transient fetch failures
// are logged and counted; three in a row abort the run.
func (w *CacheWarmer) Warm(ctx context.Context, prog chan<- ProgressUpdate, opts WarmOpts) (*WarmResult, error) {
	if opts.Count <= 0 {
		opts.Count = 25
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	// Seed the exclusion list with what is already cached so a re-run
	// extends the cache instead of refetching it.
	exclude, err := w.repo.IDs(opts.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached ids: %w", err)
	}

	result := &WarmResult{Requested: opts.Count}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	consecutiveFailures := 0

	for i := 0; i < opts.Count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		bundle, err := w.client.RandomTitle(ctx, opts.Category, exclude)
		if err != nil {
			if errors.Is(err, shared.ErrNoTitles) {
				result.EmptyCategory = true
				result.Exhausted = true
				break
			}
			result.Failed++
			consecutiveFailures++
			w.logger.Warn("failed to fetch random title", "error", err)
			if consecutiveFailures >= 3 {
				return result, fmt.Errorf("%w: aborting after %d consecutive failures", shared.ErrAPIRequest, consecutiveFailures)
			}
			continue
		}
		consecutiveFailures = 0

		if bundle == nil {
			result.Exhausted = true
			break
		}

		if err := w.repo.Save(bundle); err != nil {
			result.Failed++
			w.logger.Warn("failed to cache title", "id", bundle.Title.ID, "error", err)
			continue
		}

		exclude = append(exclude, bundle.Title.ID)
		result.Fetched++

		w.sendProgress(prog, ProgressUpdate{
			Stage:   "warming",
			Current: result.Fetched,
			Total:   opts.Count,
			Message: bundle.Title.Name,
		})
	}

	return result, nil
}

func (w *CacheWarmer) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
		// Dropping progress beats blocking the run.
	}
}
