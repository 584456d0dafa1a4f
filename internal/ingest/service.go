package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"diary-sync/internal/entry"
	"diary-sync/internal/media"
	"diary-sync/internal/source"
)

// DefaultMaxPages is the pagination ceiling used when none is configured.
const DefaultMaxPages = 100

var ErrNoPublisher = errors.New("ingest: no publisher configured")

type DiaryClient interface {
	FetchPage(ctx context.Context, page int) ([]source.RawEntry, error)
}

// Publisher uploads one entry and returns the URL of the created page.
type Publisher interface {
	Publish(ctx context.Context, e *entry.Entry) (string, error)
}

// Notifier is told about every successfully published entry.
type Notifier interface {
	EntryPublished(ctx context.Context, e *entry.Entry) error
}

// RunObserver is told about the outcome of every RunOnce call.
type RunObserver interface {
	ObserveRun(report Report, elapsed time.Duration, err error)
}

// ticker is an interface so we can swap out time.Ticker in tests.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type tickerFactory func(d time.Duration) ticker

// timeTicker is the real implementation backed by time.Ticker.
type timeTicker struct {
	*time.Ticker
}

func (t *timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func (t *timeTicker) Stop() {
	t.Ticker.Stop()
}

type Options struct {
	// Backfill keeps paginating past pages without new entries.
	Backfill  bool
	MaxPages  int
	PageDelay time.Duration
	// MaxPolls stops StartPolling after that many runs; 0 means unlimited.
	MaxPolls int
	Observer RunObserver
	Logger   *log.Logger
}

type Service struct {
	store      entry.Store
	client     DiaryClient
	normalizer *Normalizer
	publisher  Publisher
	notifier   Notifier
	observer   RunObserver

	backfill  bool
	maxPages  int
	pageDelay time.Duration
	maxPolls  int
	logger    *log.Logger

	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	newTicker tickerFactory
}

// NewService wires the pipeline. publisher and notifier may be nil, in which
// case uploads or events are skipped.
func NewService(store entry.Store, client DiaryClient, normalizer *Normalizer, publisher Publisher, notifier Notifier, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	return &Service{
		store:      store,
		client:     client,
		normalizer: normalizer,
		publisher:  publisher,
		notifier:   notifier,
		observer:   opts.Observer,
		backfill:   opts.Backfill,
		maxPages:   maxPages,
		pageDelay:  opts.PageDelay,
		maxPolls:   opts.MaxPolls,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
		newTicker: func(d time.Duration) ticker {
			return &timeTicker{time.NewTicker(d)}
		},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchNew pages through the listing and collects entries whose ID is neither
// in known nor already collected. In standard mode it stops at the first page
// without new entries; in backfill mode only an empty page or the page ceiling
// stops it. A page that fails to load counts as empty.
func (s *Service) FetchNew(ctx context.Context, known map[string]struct{}, report *Report) ([]source.RawEntry, error) {
	var out []source.RawEntry
	seen := make(map[string]struct{})

	for page := 1; ; page++ {
		raws, err := s.client.FetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.logger.Printf("page %d: fetch failed: %v", page, err)
			report.add(Failure{Kind: FailurePageFetch, Page: page, Err: err})
			raws = nil
		}
		report.Pages++

		if len(raws) == 0 {
			s.logger.Printf("page %d: no entries, stopping", page)
			break
		}
		report.Fetched += len(raws)

		added := 0
		for _, raw := range raws {
			id := string(raw.DiaryID)
			if id == "" {
				s.logger.Printf("page %d: skipping entry without id: %q", page, raw.Subject)
				continue
			}
			if _, ok := known[id]; ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, raw)
			added++
		}
		s.logger.Printf("page %d: %d new entries out of %d", page, added, len(raws))

		if !s.backfill && added == 0 {
			s.logger.Printf("page %d: nothing new, stopping", page)
			break
		}
		if page >= s.maxPages {
			s.logger.Printf("reached page limit %d, stopping", s.maxPages)
			break
		}

		if err := s.sleep(ctx, s.pageDelay); err != nil {
			return out, err
		}
	}

	report.New = len(out)
	return out, nil
}

// RunOnce performs one batch: fetch new entries, normalize, publish, then
// persist. Entries are stored even when their upload failed so they are never
// fetched again; Republish retries them.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	start := s.now()
	report, err := s.runOnce(ctx)
	if s.observer != nil {
		s.observer.ObserveRun(report, s.now().Sub(start), err)
	}
	return report, err
}

func (s *Service) runOnce(ctx context.Context) (Report, error) {
	report := Report{Backfill: s.backfill}

	known, err := s.store.IDs(ctx)
	if err != nil {
		return report, fmt.Errorf("load known ids: %w", err)
	}
	s.logger.Printf("starting run: %d known entries, backfill=%t", len(known), s.backfill)

	raws, err := s.FetchNew(ctx, known, &report)
	if err != nil {
		return report, err
	}
	if len(raws) == 0 {
		s.logger.Println("no new entries found")
		return report, nil
	}

	entries := s.normalizer.NormalizeAll(ctx, raws, &report)
	s.logger.Printf("processed %d new entries", len(entries))

	if s.publisher == nil {
		s.logger.Println("notion not configured, skipping upload")
	} else {
		for _, e := range entries {
			if ctx.Err() != nil {
				break
			}
			s.publish(ctx, e, &report)
		}
	}

	// Persist what was processed even if the run was cancelled mid-upload.
	saveCtx := context.WithoutCancel(ctx)
	stored, err := s.store.Append(saveCtx, entries)
	if err != nil {
		return report, fmt.Errorf("store entries: %w", err)
	}
	report.Stored = stored
	if err := s.store.Flush(saveCtx); err != nil {
		return report, fmt.Errorf("flush store: %w", err)
	}

	s.logger.Printf("run finished: %s", report)
	return report, ctx.Err()
}

func (s *Service) publish(ctx context.Context, e *entry.Entry, report *Report) bool {
	s.logger.Printf("uploading to notion: %s", e.Title)

	pageURL, err := s.publisher.Publish(ctx, e)
	if err != nil {
		report.add(Failure{Kind: FailurePublish, EntryID: e.ID, Err: err})
		if pageURL == "" {
			s.logger.Printf("entry %s: upload failed: %v", e.ID, err)
			return false
		}
		// The page exists; publishing again would duplicate it.
		s.logger.Printf("entry %s: page %s created with missing blocks: %v", e.ID, pageURL, err)
	}
	e.MarkPublished(s.now().UTC(), pageURL)
	report.Published++

	if s.notifier != nil {
		if err := s.notifier.EntryPublished(ctx, e); err != nil {
			s.logger.Printf("entry %s: event failed: %v", e.ID, err)
			report.add(Failure{Kind: FailureEvent, EntryID: e.ID, Err: err})
		}
	}
	return true
}

// Republish retries the upload of every stored entry that is not yet published.
func (s *Service) Republish(ctx context.Context) (Report, error) {
	report := Report{}
	if s.publisher == nil {
		return report, ErrNoPublisher
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list entries: %w", err)
	}

	pending := 0
	for i := range all {
		e := &all[i]
		if e.Published {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		pending++
		if !s.publish(ctx, e, &report) {
			continue
		}
		if err := s.store.SetPublished(context.WithoutCancel(ctx), e); err != nil {
			return report, fmt.Errorf("update entry %s: %w", e.ID, err)
		}
	}
	s.logger.Printf("republish: %d pending, %d published", pending, report.Published)

	if err := s.store.Flush(context.WithoutCancel(ctx)); err != nil {
		return report, fmt.Errorf("flush store: %w", err)
	}
	return report, ctx.Err()
}

// ProcessSingle picks one entry from the first searchPages pages and runs it
// through normalize and publish without touching the store. It prefers an
// exact title match, then the first entry with a video cover on the same page,
// then the first entry of page 1.
func (s *Service) ProcessSingle(ctx context.Context, title string, searchPages int) (*entry.Entry, Report, error) {
	report := Report{}
	if searchPages <= 0 {
		searchPages = 1
	}

	var chosen *source.RawEntry
	var first []source.RawEntry

	for page := 1; page <= searchPages && chosen == nil; page++ {
		raws, err := s.client.FetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			s.logger.Printf("page %d: fetch failed: %v", page, err)
			report.add(Failure{Kind: FailurePageFetch, Page: page, Err: err})
		}
		report.Pages++
		if len(raws) == 0 {
			s.logger.Printf("page %d: no entries", page)
			break
		}
		report.Fetched += len(raws)
		if page == 1 {
			first = raws
		}
		chosen = pick(raws, title)
		if chosen == nil && page < searchPages {
			if err := s.sleep(ctx, s.pageDelay); err != nil {
				return nil, report, err
			}
		}
	}

	if chosen == nil {
		if len(first) == 0 {
			return nil, report, errors.New("ingest: no entries found")
		}
		s.logger.Printf("no match in %d pages, using first entry", searchPages)
		chosen = &first[0]
	}
	s.logger.Printf("selected entry %s: %s", chosen.DiaryID, chosen.Subject)

	e, failures := s.normalizer.Normalize(ctx, *chosen)
	report.add(failures...)
	report.New = 1

	if s.publisher == nil {
		s.logger.Println("notion not configured, skipping upload")
	} else {
		s.publish(ctx, e, &report)
	}
	return e, report, nil
}

func pick(raws []source.RawEntry, title string) *source.RawEntry {
	if title != "" {
		for i := range raws {
			if raws[i].Subject == title {
				return &raws[i]
			}
		}
	}
	for i := range raws {
		if raws[i].CoverURL != "" && media.IsVideo(raws[i].CoverURL) {
			return &raws[i]
		}
	}
	return nil
}

// StartPolling runs a batch immediately and then on every tick until ctx is
// cancelled. Runs never overlap.
func (s *Service) StartPolling(ctx context.Context, interval time.Duration) {
	t := s.newTicker(interval)
	defer t.Stop()

	s.logger.Printf("polling every %v...", interval)

	pollCount := 0
	run := func() bool {
		if s.maxPolls > 0 && pollCount >= s.maxPolls {
			s.logger.Printf("poller stopping after %d polls (max reached)", pollCount)
			return false
		}
		pollCount++
		s.logger.Printf("poll #%d starting...", pollCount)
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Printf("poll error: %v", err)
		}
		return true
	}

	if !run() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Println("poller stopping, context cancelled")
			return
		case <-t.C():
			if !run() {
				return
			}
		}
	}
}
