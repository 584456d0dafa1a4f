package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"diary-sync/internal/config"

	"github.com/go-resty/resty/v2"
)

type Kind int

const (
	Image Kind = iota
	Video
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".webm": {},
}

var errNoURL = errors.New("media: empty url")

// Download is the outcome of one fetch. A failed fetch has an empty Filename
// and a non-nil Err; the URL is always kept so callers can fall back to it.
type Download struct {
	URL      string
	Filename string
	Cached   bool
	Err      error
}

func (d Download) OK() bool {
	return d.Err == nil && d.Filename != ""
}

type Options struct {
	Dir string
	// Referer is sent with video requests; the CDN rejects hotlinked videos without it.
	Referer string
	Timeout time.Duration
	Logger  *log.Logger
}

// Fetcher downloads remote media once into a flat directory.
type Fetcher struct {
	http    *resty.Client
	dir     string
	referer string
	logger  *log.Logger
}

func NewFetcher(opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Fetcher{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", config.BrowserUserAgent),
		dir:     opts.Dir,
		referer: opts.Referer,
		logger:  logger,
	}
}

// Dir is the directory downloaded files are written to.
func (f *Fetcher) Dir() string {
	return f.dir
}

// Fetch downloads rawURL unless its local file already exists. It never
// returns an error directly; failures are carried in Download.Err.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, kind Kind) Download {
	d := Download{URL: rawURL}
	if strings.TrimSpace(rawURL) == "" {
		d.Err = errNoURL
		return d
	}

	name := LocalName(rawURL)
	dest := filepath.Join(f.dir, name)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		d.Filename = name
		d.Cached = true
		return d
	}

	if err := f.download(ctx, rawURL, dest, kind); err != nil {
		f.logger.Printf("media: failed to download %s: %v", rawURL, err)
		d.Err = err
		return d
	}

	f.logger.Printf("media: downloaded %s as %s", rawURL, name)
	d.Filename = name
	return d
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string, kind Kind) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	req := f.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if kind == Video && f.referer != "" {
		req.SetHeader("Referer", f.referer)
	}

	res, err := req.Get(rawURL)
	if err != nil {
		return err
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", res.StatusCode())
	}

	tmp, err := os.CreateTemp(f.dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return os.Rename(tmp.Name(), dest)
}

// LocalName maps a URL to its cache file name: the first 16 hex digits of the
// SHA-1 of the full URL plus the extension of the path. Different URLs that
// share a basename never collide, and the same URL always maps to the same name.
func LocalName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16] + Extension(rawURL)
}

// Extension returns the lower-cased extension of the URL path, ignoring the
// query string and fragment. Unusual extensions are dropped.
func Extension(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if u, err := url.Parse(p); err == nil && u.Host != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if len(ext) < 2 || len(ext) > 6 || strings.ContainsAny(ext, "/:\\") {
		return ""
	}
	return ext
}

// IsVideo reports whether the URL points at a video file by extension.
func IsVideo(rawURL string) bool {
	_, ok := videoExtensions[Extension(rawURL)]
	return ok
}
