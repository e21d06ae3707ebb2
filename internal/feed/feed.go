package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/shared"
	"github.com/charmbracelet/log"
)

const (
	// DefaultExcludeWindow is how many recent history ids are excluded from
	// a random fetch.
	DefaultExcludeWindow = 20

	// DefaultCooldown is how long after a navigation completes before the
	// next trigger is accepted, absorbing residual double-taps and
	// overlapping gesture events.
	DefaultCooldown = 350 * time.Millisecond
)

// Fetcher is the title-fetching collaborator, implemented by [api.Client].
type Fetcher interface {
	RandomTitle(ctx context.Context, category api.Category, exclude []int) (*api.TitleBundle, error)
	TitleSummary(ctx context.Context, id int) (*api.TitleBundle, error)
}

// Options configures a Controller.
type Options struct {
	Category      api.Category
	ExcludeWindow int
	Cooldown      time.Duration
}

// Controller orchestrates "show a title" requests: replay from history,
// fetch a specific id, or fetch a new random title excluding recent history.
//
// One navigation fetch is in flight at a time; repeated triggers during a
// fetch or its cooldown return [shared.ErrNavigationBusy]. Every navigation
// carries a generation token so a response superseded by a category change
// can never overwrite newer state.
//
// Navigation methods return the bundle now displayed; a nil bundle with a
// nil error means nothing changed, either because forward history is
// exhausted or because the navigation was superseded mid-flight.
type Controller struct {
	fetcher       Fetcher
	logger        *log.Logger
	excludeWindow int
	cooldown      time.Duration

	mu               sync.Mutex
	history          *History
	category         api.Category
	bundle           *api.TitleBundle
	forwardExhausted bool
	emptyCategory    *api.Category
	votes            map[int]int
	generation       uint64
	inFlight         bool
	busyUntil        time.Time
}

// NewController creates a Controller with an empty history.
func NewController(fetcher Fetcher, logger *log.Logger, opts Options) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.ExcludeWindow <= 0 {
		opts.ExcludeWindow = DefaultExcludeWindow
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}

	return &Controller{
		fetcher:       fetcher,
		logger:        logger,
		excludeWindow: opts.ExcludeWindow,
		cooldown:      opts.Cooldown,
		history:       NewHistory(),
		category:      opts.Category,
		votes:         map[int]int{},
	}
}

// Category returns the active category filter ("" means all).
func (c *Controller) Category() api.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category
}

// Current returns the bundle being displayed, nil when nothing has loaded.
func (c *Controller) Current() *api.TitleBundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bundle
}

// CanGoBack reports whether history has an entry before the cursor.
func (c *Controller) CanGoBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.CanGoBack()
}

// CanGoForward reports whether history has an entry after the cursor.
func (c *Controller) CanGoForward() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.CanGoForward()
}

// ForwardExhausted reports whether the last random fetch found no unseen
// titles. It clears whenever a title loads or the category changes.
func (c *Controller) ForwardExhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forwardExhausted
}

// EmptyCategory returns the category found to have zero titles, or nil.
// Distinguished from mere exhaustion by the exclusion set having been empty.
func (c *Controller) EmptyCategory() *api.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emptyCategory
}

// HistoryItems returns a copy of the visited-id sequence and the cursor.
func (c *Controller) HistoryItems() ([]int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Items(), c.history.Index()
}

// beginNav acquires the navigation lock, returning the generation token for
// this navigation. Fails while a fetch is in flight or cooling down.
func (c *Controller) beginNav() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight || time.Now().Before(c.busyUntil) {
		return 0, shared.ErrNavigationBusy
	}
	c.inFlight = true
	c.generation++
	return c.generation, nil
}

func (c *Controller) endNav() {
	c.mu.Lock()
	c.inFlight = false
	c.busyUntil = time.Now().Add(c.cooldown)
	c.mu.Unlock()
}

// Next advances the feed: replay forward history when it exists, otherwise
// fetch a new random title excluding recent history.
func (c *Controller) Next(ctx context.Context) (*api.TitleBundle, error) {
	gen, err := c.beginNav()
	if err != nil {
		return nil, err
	}
	defer c.endNav()

	c.mu.Lock()
	if !c.history.CanGoForward() && c.forwardExhausted {
		c.mu.Unlock()
		// Exhausted and nothing ahead: stay put rather than spam requests.
		return nil, nil
	}

	if c.history.CanGoForward() {
		target := c.history.Index() + 1
		id, _ := c.history.At(target)
		c.mu.Unlock()
		return c.replay(ctx, gen, id, target)
	}
	c.mu.Unlock()

	return c.loadRandom(ctx, gen, false)
}

// Back retreats the feed one history entry. No-op at the start of history.
func (c *Controller) Back(ctx context.Context) (*api.TitleBundle, error) {
	gen, err := c.beginNav()
	if err != nil {
		return nil, err
	}
	defer c.endNav()

	c.mu.Lock()
	if !c.history.CanGoBack() {
		c.mu.Unlock()
		return nil, nil
	}
	target := c.history.Index() - 1
	id, _ := c.history.At(target)
	c.mu.Unlock()

	return c.replay(ctx, gen, id, target)
}

// replay fetches a specific remembered title and moves the cursor to it.
// A deleted title silently restarts the feed instead of surfacing an error.
func (c *Controller) replay(ctx context.Context, gen uint64, id, target int) (*api.TitleBundle, error) {
	bundle, err := c.fetcher.TitleSummary(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrTitleNotFound) {
			c.logger.Info("cached title gone, restarting feed", "id", id)
			return c.restartFeed(ctx, gen)
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// Superseded mid-flight; discard so the stale title is never shown.
		return nil, nil
	}
	c.history.MoveTo(target)
	c.applyBundle(bundle)
	c.forwardExhausted = false

	return bundle, nil
}

// SetCategory switches the category filter, resetting history and both
// exhaustion flags. It does not fetch; the caller triggers the next load.
func (c *Controller) SetCategory(category api.Category) {
	c.mu.Lock()
	c.category = category
	c.history.Reset()
	c.forwardExhausted = false
	c.emptyCategory = nil
	c.generation++ // late responses from the old category are dropped
	c.mu.Unlock()
}

// Restart clears history and fetches a fresh random title, seeding history
// with the result.
func (c *Controller) Restart(ctx context.Context) (*api.TitleBundle, error) {
	gen, err := c.beginNav()
	if err != nil {
		return nil, err
	}
	defer c.endNav()

	return c.restartFeed(ctx, gen)
}

func (c *Controller) restartFeed(ctx context.Context, gen uint64) (*api.TitleBundle, error) {
	c.mu.Lock()
	if gen == c.generation {
		c.history.Reset()
	}
	c.mu.Unlock()

	return c.loadRandom(ctx, gen, true)
}

// loadRandom fetches a random title excluding recent history. shouldReset
// seeds history with the result instead of appending.
func (c *Controller) loadRandom(ctx context.Context, gen uint64, shouldReset bool) (*api.TitleBundle, error) {
	c.mu.Lock()
	category := c.category
	exclude := c.history.Recent(c.excludeWindow)
	c.mu.Unlock()

	bundle, err := c.fetcher.RandomTitle(ctx, category, exclude)
	if err != nil {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			// The error belongs to a superseded navigation.
			return nil, nil
		}
		if errors.Is(err, shared.ErrNoTitles) {
			// Nothing was excluded and still nothing came back: the whole
			// category is empty, not just recent history.
			c.bundle = nil
			c.history.Reset()
			c.forwardExhausted = true
			empty := category
			c.emptyCategory = &empty
		}
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// Superseded mid-flight; discard so the stale title is never shown.
		return nil, nil
	}

	if bundle == nil {
		// Only recently seen titles remain.
		c.forwardExhausted = true
		return nil, nil
	}

	c.applyBundle(bundle)
	c.forwardExhausted = false
	c.emptyCategory = nil
	if shouldReset {
		c.history.ResetTo(bundle.Title.ID)
	} else {
		c.history.Record(bundle.Title.ID)
	}

	return bundle, nil
}

// applyBundle installs a fetched bundle and drops local vote overlays now
// that the server's values are current. Callers hold c.mu.
func (c *Controller) applyBundle(bundle *api.TitleBundle) {
	c.bundle = bundle
	c.votes = map[int]int{}
}

// Reload re-fetches the current bundle in place, e.g. after a vote or a new
// recap. History and the cursor are untouched.
func (c *Controller) Reload(ctx context.Context) (*api.TitleBundle, error) {
	c.mu.Lock()
	if c.bundle == nil {
		c.mu.Unlock()
		return nil, nil
	}
	id := c.bundle.Title.ID
	gen := c.generation
	c.mu.Unlock()

	bundle, err := c.fetcher.TitleSummary(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil, nil
	}
	c.applyBundle(bundle)

	return bundle, nil
}

// SetLocalVote records an optimistic vote overlay for a recap, shown until
// the next server bundle replaces it.
func (c *Controller) SetLocalVote(recapID, value int) {
	c.mu.Lock()
	c.votes[recapID] = value
	c.mu.Unlock()
}

// DisplayVote returns the vote to display for a recap: the local overlay
// when present, otherwise the server-reported value.
func (c *Controller) DisplayVote(recap *api.Recap) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.votes[recap.ID]; ok {
		return v
	}
	if recap.CurrentUserVote != nil {
		return *recap.CurrentUserVote
	}
	return 0
}
