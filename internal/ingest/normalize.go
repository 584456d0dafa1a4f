package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"diary-sync/internal/entry"
	"diary-sync/internal/media"
	"diary-sync/internal/source"
	"diary-sync/internal/translate"
)

// originalHeading introduces the untranslated text at the end of an entry.
const originalHeading = "原文"

// MediaFetcher is satisfied by *media.Fetcher.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string, kind media.Kind) media.Download
}

type NormalizerOptions struct {
	// MediaHosts filters inline src attributes by substring.
	MediaHosts []string
	// VideoBaseURL prefixes the movie_filename path.
	VideoBaseURL string
	Now          func() time.Time
	Logger       *log.Logger
}

// Normalizer turns raw listing entries into stored entries, downloading every
// referenced media file on the way.
type Normalizer struct {
	fetcher      MediaFetcher
	translator   translate.Translator
	mediaHosts   []string
	videoBaseURL string
	now          func() time.Time
	logger       *log.Logger
}

func NewNormalizer(fetcher MediaFetcher, translator translate.Translator, opts NormalizerOptions) *Normalizer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Normalizer{
		fetcher:      fetcher,
		translator:   translator,
		mediaHosts:   opts.MediaHosts,
		videoBaseURL: strings.TrimRight(opts.VideoBaseURL, "/"),
		now:          now,
		logger:       logger,
	}
}

// Normalize builds one entry. It never fails: every problem degrades to a
// fallback value and is returned as a Failure.
func (n *Normalizer) Normalize(ctx context.Context, raw source.RawEntry) (*entry.Entry, []Failure) {
	id := string(raw.DiaryID)
	var failures []Failure
	fail := func(kind FailureKind, err error) {
		n.logger.Printf("entry %s: %s: %v", id, kind, err)
		failures = append(failures, Failure{Kind: kind, EntryID: id, Err: err})
	}

	n.logger.Printf("processing entry %s: %s", id, raw.Subject)

	e := &entry.Entry{
		ID:        id,
		Date:      raw.CreateDate,
		Title:     raw.Subject,
		CoverType: entry.CoverImage,
		CoverURL:  raw.CoverURL,
		Blocks:    []entry.Block{},
	}

	ts, err := ResolveDate(raw.CreateDate, n.now())
	if err != nil {
		fail(FailureDateParse, fmt.Errorf("parse %q: %w", raw.CreateDate, err))
	}
	e.Timestamp = ts

	rawText := raw.Text()
	if IsMemberOnly(rawText) {
		fail(FailureMemberOnly, fmt.Errorf("body is a member-only placeholder, check cookies"))
	}
	e.OriginalText = CleanText(rawText)

	translated, err := n.translator.Translate(ctx, e.OriginalText)
	if err != nil {
		fail(FailureTranslate, err)
		translated = e.OriginalText
	}
	e.TranslatedText = translated

	if raw.CoverURL != "" {
		if media.IsVideo(raw.CoverURL) {
			e.CoverType = entry.CoverVideo
			d := n.fetcher.Fetch(ctx, raw.CoverURL, media.Video)
			if d.Err != nil {
				fail(FailureMedia, fmt.Errorf("cover video: %w", d.Err))
			}
			e.CoverFilename = d.Filename
			e.Blocks = append(e.Blocks, entry.VideoBlock(d.Filename, raw.CoverURL, true))
		} else {
			d := n.fetcher.Fetch(ctx, raw.CoverURL, media.Image)
			if d.Err != nil {
				fail(FailureMedia, fmt.Errorf("cover image: %w", d.Err))
			}
			e.CoverFilename = d.Filename
		}
	}

	if e.TranslatedText != "" {
		e.Blocks = append(e.Blocks, entry.TextBlock(e.TranslatedText))
	}

	sources, err := MediaSources(raw.HTML(), n.mediaHosts)
	if err != nil {
		fail(FailureMedia, fmt.Errorf("parse body: %w", err))
	}
	for _, src := range sources {
		d := n.fetcher.Fetch(ctx, src, media.Image)
		if d.Err != nil {
			fail(FailureMedia, fmt.Errorf("inline image: %w", d.Err))
		}
		e.Blocks = append(e.Blocks, entry.ImageBlock(d.Filename, src))
	}

	if raw.MovieFilename != "" {
		movieURL := n.movieURL(raw)
		d := n.fetcher.Fetch(ctx, movieURL, media.Video)
		if d.Err != nil {
			fail(FailureMedia, fmt.Errorf("movie: %w", d.Err))
		}
		e.Blocks = append(e.Blocks, entry.VideoBlock(d.Filename, movieURL, false))
	}

	if e.OriginalText != "" && e.TranslatedText != e.OriginalText {
		e.Blocks = append(e.Blocks,
			entry.DividerBlock(),
			entry.HeadingBlock(originalHeading),
			entry.TextBlock(e.OriginalText),
		)
	}

	return e, failures
}

func (n *Normalizer) movieURL(raw source.RawEntry) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		n.videoBaseURL, raw.CommunityID, raw.MemberID, raw.DiaryID, raw.MovieFilename)
}

// NormalizeAll normalizes raws in order and returns them newest first.
// Entries with equal timestamps keep their listing order.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws []source.RawEntry, report *Report) []*entry.Entry {
	out := make([]*entry.Entry, 0, len(raws))
	for _, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		e, failures := n.Normalize(ctx, raw)
		report.add(failures...)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
