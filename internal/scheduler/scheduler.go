// Package scheduler runs the polling cycle: fetch, parse, export, detect, notify, persist.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/itcaat/kufarwatch/internal/changes"
	"github.com/itcaat/kufarwatch/internal/metrics"
	"github.com/itcaat/kufarwatch/internal/models"
	"github.com/itcaat/kufarwatch/internal/parser"
	"github.com/itcaat/kufarwatch/internal/util"
)

// Pause bounds between two page requests
const (
	MinPagePause = 2 * time.Second
	MaxPagePause = 4 * time.Second
)

// ErrEmptySnapshot means no listings could be collected from any page
var ErrEmptySnapshot = errors.New("no listings collected")

// PageFetcher downloads one page
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Exporter writes the full snapshot to a side artifact
type Exporter interface {
	Export(listings []models.Listing) error
}

// SnapshotStore keeps the baseline for change detection
type SnapshotStore interface {
	Load() []models.Listing
	Save(listings []models.Listing) error
}

// Notifier delivers detected changes
type Notifier interface {
	Notify(ctx context.Context, changes models.Changes) (int, error)
}

// ChangeSink receives detected changes in addition to the notifier. Failures are logged only.
type ChangeSink interface {
	Name() string
	Publish(ctx context.Context, changes models.Changes) error
}

// Options holds the scheduler dependencies
type Options struct {
	Pages         []string
	BaseURL       string
	Interval      time.Duration
	RetryInterval time.Duration

	Fetcher  PageFetcher
	Exporter Exporter
	Store    SnapshotStore
	Notifier Notifier
	Sinks    []ChangeSink
	Metrics  *metrics.Metrics
}

// Result summarizes one cycle
type Result struct {
	Pages       int
	FailedPages int
	Listings    int
	New         int
	Updated     int
	Sent        int
	Persisted   bool
}

// Scheduler drives the polling loop. It runs on a single goroutine.
type Scheduler struct {
	opts Options

	// Sleep waits for d or until ctx is done
	Sleep util.SleepFunc
	// PagePause picks the delay between two pages
	PagePause func() time.Duration
	// Now is used to resolve relative publication times
	Now func() time.Time
}

// New creates a scheduler
func New(opts Options) *Scheduler {
	if opts.BaseURL == "" {
		opts.BaseURL = parser.BaseURL
	}
	return &Scheduler{
		opts:      opts,
		Sleep:     util.Sleep,
		PagePause: func() time.Duration { return util.Jitter(MinPagePause, MaxPagePause) },
		Now:       time.Now,
	}
}

// Run executes cycles until ctx is cancelled.
// A failed cycle is followed by the shorter retry interval instead of the regular one.
// A cycle that collected nothing waits the regular interval.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		wait := s.opts.Interval

		_, err := s.safeCycle(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrEmptySnapshot):
			log.Printf("Scheduler: Nothing collected, next cycle in %s\n", wait)
		case err != nil:
			log.Printf("Scheduler: Cycle failed: %v. Retrying in %s", err, s.opts.RetryInterval)
			wait = s.opts.RetryInterval
		default:
			log.Printf("Scheduler: Next cycle in %s\n", wait)
		}

		if err := s.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// safeCycle turns a panic inside a cycle into an error so the loop keeps going
func (s *Scheduler) safeCycle(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
			s.opts.Metrics.CycleFinished("error", 0)
		}
	}()
	return s.RunCycle(ctx)
}

// RunCycle performs one full pass. Changes are persisted only when something new or updated was found.
func (s *Scheduler) RunCycle(ctx context.Context) (Result, error) {
	start := time.Now()
	log.Printf("Scheduler: Starting cycle at %s\n", start.Format("02.01.2006 15:04:05"))

	res, err := s.runCycle(ctx)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrEmptySnapshot):
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}
	s.opts.Metrics.CycleFinished(outcome, time.Since(start))

	return res, err
}

func (s *Scheduler) runCycle(ctx context.Context) (Result, error) {
	res := Result{Pages: len(s.opts.Pages)}

	listings, failed, err := s.collect(ctx)
	res.FailedPages = failed
	if err != nil {
		return res, err
	}

	res.Listings = len(listings)
	s.opts.Metrics.SnapshotSize(len(listings))

	if len(listings) == 0 {
		log.Println("Scheduler: Could not get any listings from the site")
		return res, ErrEmptySnapshot
	}

	if err := s.opts.Exporter.Export(listings); err != nil {
		log.Printf("Scheduler: Export failed: %v", err)
	}

	previous := s.opts.Store.Load()
	found := changes.Detect(previous, listings)
	res.New = len(found.New)
	res.Updated = len(found.Updated)
	s.opts.Metrics.ChangesDetected(res.New, res.Updated)

	if found.Empty() {
		log.Println("Scheduler: No changes, snapshot left as is")
		return res, nil
	}

	for _, sink := range s.opts.Sinks {
		if err := sink.Publish(ctx, found); err != nil {
			log.Printf("Scheduler: %s failed: %v", sink.Name(), err)
		}
	}

	sent, err := s.opts.Notifier.Notify(ctx, found)
	res.Sent = sent
	if err != nil {
		// interrupted mid-dispatch, keep the old baseline so the rest is sent next time
		return res, err
	}

	saveErr := s.opts.Store.Save(listings)
	s.opts.Metrics.SnapshotSaved(saveErr)
	if saveErr != nil {
		log.Printf("Scheduler: Could not save snapshot: %v", saveErr)
	} else {
		res.Persisted = true
	}

	log.Printf("Scheduler: Cycle done: %d listings, %d new, %d updated, %d messages sent\n",
		res.Listings, res.New, res.Updated, res.Sent)
	return res, nil
}

// collect fetches and parses every page in order.
// A failed page is logged and skipped. Only cancellation aborts the whole pass.
// A link seen on several pages keeps its first position and its latest values.
func (s *Scheduler) collect(ctx context.Context) ([]models.Listing, int, error) {
	var all []models.Listing
	failed := 0

	for i, page := range s.opts.Pages {
		if i > 0 {
			if err := s.Sleep(ctx, s.PagePause()); err != nil {
				return nil, failed, err
			}
		}

		items, err := s.fetchPage(ctx, page)
		s.opts.Metrics.PageFetched(err)
		if err != nil {
			if ctx.Err() != nil {
				return nil, failed, ctx.Err()
			}
			log.Printf("Scheduler: Page %d failed: %v", i+1, err)
			failed++
			continue
		}

		all = append(all, items...)
		log.Printf("Scheduler: Parsed %d listings from page %d\n", len(items), i+1)
	}

	return changes.Dedupe(all), failed, nil
}

func (s *Scheduler) fetchPage(ctx context.Context, page string) ([]models.Listing, error) {
	html, err := s.opts.Fetcher.FetchPage(ctx, page)
	if err != nil {
		return nil, err
	}
	return parser.ParseListings(html, s.opts.BaseURL, s.Now())
}
