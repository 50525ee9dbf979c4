// Package monitor drives the scraper run: log in, poll the listing, reconcile
// it against the item store, dispatch orders and cool down until stopped.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"CampaignScraper/internal/database"
	"CampaignScraper/internal/metrics"
	"CampaignScraper/internal/models"
	"CampaignScraper/internal/notify"
	"CampaignScraper/internal/scraper"
	"CampaignScraper/utils"

	"golang.org/x/sync/errgroup"
)

// State is the phase of the current run.
type State string

const (
	StateIdle        State = "idle"
	StateLoggingIn   State = "logging-in"
	StatePolling     State = "polling"
	StateReconciling State = "reconciling"
	StateCoolingDown State = "cooling-down"
	StateStopped     State = "stopped"
)

// Orderer runs the order workflow for one product.
type Orderer interface {
	Order(ctx context.Context, product models.ProductSnapshot, sess scraper.Session, settings models.ScraperSettings) models.OrderOutcome
}

// LoginFunc signs the session in with the run's credentials.
type LoginFunc func(ctx context.Context, sess scraper.Session, settings models.ScraperSettings) error

// Options wires the controller to its collaborators.
type Options struct {
	Launcher   scraper.Launcher
	Listing    scraper.ListingAdapter
	Store      database.ItemStore
	Login      LoginFunc
	NewSink    func(models.ScraperSettings) notify.Sink
	NewOrderer func(notify.Sink) Orderer
	Metrics    *metrics.Metrics

	ListingURL string
	// ShortInterval is the cooldown after a cycle that saw something in stock.
	ShortInterval time.Duration
	// Workers bounds concurrent order workflows per cycle. Zero means unbounded.
	Workers int
}

// Controller owns at most one run at a time.
type Controller struct {
	opts Options

	mu         sync.Mutex
	state      State
	run        *run
	onFinished func()
}

type run struct {
	cancel   context.CancelFunc
	done     chan struct{}
	sink     notify.Sink
	stopping bool
}

// New creates an idle controller.
func New(opts Options) *Controller {
	if opts.ShortInterval <= 0 {
		opts.ShortInterval = 25 * time.Second
	}
	return &Controller{opts: opts, state: StateIdle}
}

// OnFinished registers fn to be called each time a run has fully wound down.
func (c *Controller) OnFinished(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFinished = fn
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a run is active or still winding down.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil
}

// Done returns a channel closed when the current run ends. Without an active
// run the channel is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.run.done
}

// Start begins a run with settings in the background. It is a no-op returning
// false while another run is active. The run ends when Stop is called or ctx
// is cancelled; its outcome is only reported through notifications.
func (c *Controller) Start(ctx context.Context, settings models.ScraperSettings) bool {
	c.mu.Lock()
	if c.run != nil {
		c.mu.Unlock()
		log.Println("Scraper is already running")
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		sink:   c.opts.NewSink(settings),
	}
	c.run = r
	c.state = StateLoggingIn
	c.mu.Unlock()

	go c.execute(runCtx, r, settings)
	return true
}

// Stop signals the active run to stop. Teardown happens as the run unwinds;
// wait on Done to observe it. It returns false when nothing is running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	r := c.run
	if r == nil || r.stopping {
		c.mu.Unlock()
		return r != nil
	}
	r.stopping = true
	c.mu.Unlock()

	r.sink.Notify(context.Background(), notify.Message{Text: "Scraper stopping..."})
	r.cancel()
	return true
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) execute(ctx context.Context, r *run, settings models.ScraperSettings) {
	var sess scraper.Session
	defer func() {
		if sess != nil {
			if err := sess.Close(); err != nil {
				log.Printf("Failed to close browser: %v", err)
			}
		}
		r.sink.Notify(ctx, notify.Message{Text: "Scraper stopped"})
		r.cancel()

		c.mu.Lock()
		c.state = StateStopped
		c.run = nil
		onFinished := c.onFinished
		c.mu.Unlock()

		close(r.done)
		if onFinished != nil {
			onFinished()
		}
	}()

	r.sink.Notify(ctx, notify.Message{Text: "Scraper starting..."})

	var err error
	sess, err = c.opts.Launcher.Launch(ctx, settings.Headless)
	if err != nil {
		c.fatal(ctx, r.sink, fmt.Errorf("launch browser: %w", err))
		return
	}

	if err := c.opts.Login(ctx, sess, settings); err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, scraper.ErrLoginFailed) {
			c.opts.Metrics.IncError(ErrorType(err))
			r.sink.Notify(ctx, notify.Message{
				Kind: models.KindError,
				Text: "Login failed, check your username and password",
			})
			return
		}
		c.fatal(ctx, r.sink, fmt.Errorf("login: %w", err))
		return
	}
	r.sink.Notify(ctx, notify.Message{Text: "Logged in, watching the listing"})

	c.setState(StatePolling)
	if err := c.openListing(ctx, sess); err != nil {
		if ctx.Err() == nil {
			c.fatal(ctx, r.sink, err)
		}
		return
	}

	if err := c.poll(ctx, sess, settings, r.sink); err != nil && ctx.Err() == nil {
		c.fatal(ctx, r.sink, err)
	}
}

// openListing navigates to the listing. An expired wait is left to the poll
// loop, which reloads.
func (c *Controller) openListing(ctx context.Context, sess scraper.Session) error {
	err := sess.Navigate(ctx, c.opts.ListingURL)
	if err == nil || scraper.IsTimeout(err) {
		return nil
	}
	return fmt.Errorf("open listing: %w", err)
}

func (c *Controller) poll(ctx context.Context, sess scraper.Session, settings models.ScraperSettings, sink notify.Sink) error {
	orderer := c.opts.NewOrderer(sink)
	pollInterval := time.Duration(settings.PollIntervalSec) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}

	for ctx.Err() == nil {
		c.setState(StatePolling)
		snapshots, err := c.opts.Listing.ExtractListing(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !scraper.IsTimeout(err) {
				return fmt.Errorf("extract listing: %w", err)
			}
			log.Printf("Listing did not render in time, reloading: %v", err)
			c.opts.Metrics.IncError(ErrorType(err))
			if err := c.reload(ctx, sess); err != nil {
				return err
			}
			continue
		}
		c.opts.Metrics.IncCycle()
		c.opts.Metrics.AddObserved(len(snapshots))

		c.setState(StateReconciling)
		sawInStock, err := c.reconcile(ctx, sess, settings, sink, orderer, snapshots)
		if err != nil {
			return err
		}

		c.setState(StateCoolingDown)
		sink.CleanupStale(ctx)
		wait := pollInterval
		if sawInStock {
			wait = c.opts.ShortInterval
		}
		if !utils.Sleep(ctx, wait) {
			return nil
		}
		if err := c.reload(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// reload refreshes the listing. Timeouts are transient: the next extraction
// waits for the listing again.
func (c *Controller) reload(ctx context.Context, sess scraper.Session) error {
	c.opts.Metrics.IncReload()
	err := sess.Reload(ctx)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	if scraper.IsTimeout(err) {
		log.Printf("Reload timed out: %v", err)
		c.opts.Metrics.IncError(ErrorType(err))
		return nil
	}
	return fmt.Errorf("reload listing: %w", err)
}

// reconcile stores every status change and dispatches an order for each
// product that just became available. Orders of the cycle are joined before
// it returns; a failed order never affects the others.
func (c *Controller) reconcile(ctx context.Context, sess scraper.Session, settings models.ScraperSettings, sink notify.Sink, orderer Orderer, snapshots []models.ProductSnapshot) (bool, error) {
	var g errgroup.Group
	if c.opts.Workers > 0 {
		g.SetLimit(c.opts.Workers)
	}
	defer g.Wait()

	sawInStock := false
	for _, snap := range snapshots {
		if snap.Status.Equal(models.StatusInStock) {
			sawInStock = true
		}
		title := strings.TrimSpace(snap.Title)
		if title == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		status := models.ParseStatus(string(snap.Status))
		rec, err := c.opts.Store.Get(ctx, title)
		known := true
		switch {
		case errors.Is(err, database.ErrNotFound):
			known = false
		case err != nil:
			return sawInStock, fmt.Errorf("look up %q: %w", title, err)
		case rec.Status.Equal(status):
			continue
		}

		if err := c.opts.Store.Upsert(ctx, title, status); err != nil {
			return sawInStock, fmt.Errorf("store %q: %w", title, err)
		}
		c.opts.Metrics.IncStatusChange(string(status))
		log.Printf("%q: %s -> %s", title, rec.Status, status)

		switch status {
		case models.StatusInStock:
			product := snap
			product.Title = title
			product.Status = status
			g.Go(func() error {
				outcome := orderer.Order(ctx, product, sess, settings)
				c.opts.Metrics.IncOrder(outcome.Result.String())
				log.Printf("Order for %q finished: %s %s", product.Title, outcome.Result, outcome.Reason)
				return nil
			})
		case models.StatusSoldOut, models.StatusOrdered:
			if known {
				sink.Notify(ctx, notify.Message{Text: fmt.Sprintf("**%s** is now %s", title, status)})
			}
		}
	}
	return sawInStock, nil
}

func (c *Controller) fatal(ctx context.Context, sink notify.Sink, err error) {
	log.Printf("Scraper error: %v", err)
	c.opts.Metrics.IncError(ErrorType(err))
	sink.Notify(ctx, notify.Message{Kind: models.KindError, Text: fmt.Sprintf("Scraper error: %v", err)})
}

// ErrorType labels err for the errors metric.
func ErrorType(err error) string {
	var storageErr *database.StorageError
	var channelErr *notify.ChannelNotFoundError
	switch {
	case err == nil:
		return ""
	case scraper.IsTimeout(err):
		return "timeout"
	case errors.Is(err, scraper.ErrLoginFailed):
		return "login"
	case errors.As(err, &storageErr):
		return "storage"
	case errors.As(err, &channelErr):
		return "channel"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "fatal"
	}
}
