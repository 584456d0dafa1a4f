package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"diary-sync/internal/config"

	"github.com/go-resty/resty/v2"
)

const (
	csrfPath      = "/api/csrf-token/"
	diaryListPath = "/api/diary/diary-list/"
)

// ErrAuth marks failures while establishing the session. They are fatal for a run.
var ErrAuth = errors.New("source: authentication failed")

type Options struct {
	BaseURL string
	// Cookies is a raw "k=v; k2=v2" string copied from a logged-in browser.
	Cookies string
	Params  config.Params
	Timeout time.Duration
	Logger  *log.Logger
}

// Client talks to the diary listing API with a cookie session and CSRF token.
type Client struct {
	http   *resty.Client
	params config.Params
	token  string
	logger *log.Logger
}

func NewClient(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookies := []*http.Cookie{{Name: "age_checked", Value: "true", Path: "/"}}
	if opts.Cookies != "" {
		logger.Println("source: loading user cookies from environment")
		cookies = append(cookies, ParseCookies(opts.Cookies)...)
	}
	jar.SetCookies(baseURL, cookies)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetHeader("User-Agent", config.BrowserUserAgent).
		SetHeader("Origin", strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Referer", strings.TrimRight(opts.BaseURL, "/")+"/").
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("X-Requested-With", "XMLHttpRequest")

	params := opts.Params
	if params == nil {
		params = config.Params{}
	}

	return &Client{
		http:   client,
		params: params,
		logger: logger,
	}, nil
}

// ParseCookies splits a browser cookie header. Malformed pairs are skipped.
func ParseCookies(raw string) []*http.Cookie {
	var out []*http.Cookie
	for _, part := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: strings.TrimSpace(k), Value: strings.TrimSpace(v), Path: "/"})
	}
	return out
}

// Authenticate fetches the CSRF token required by the listing endpoint.
func (c *Client) Authenticate(ctx context.Context) error {
	c.logger.Println("source: fetching CSRF token")

	res, err := c.http.R().
		SetContext(ctx).
		Get(csrfPath)
	if err != nil {
		return fmt.Errorf("%w: request csrf token: %v", ErrAuth, err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: csrf token: unexpected status code %d", ErrAuth, res.StatusCode())
	}

	var body csrfResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return fmt.Errorf("%w: decode csrf token: %v", ErrAuth, err)
	}
	if body.Token == "" {
		return fmt.Errorf("%w: token not found in response", ErrAuth)
	}

	c.token = body.Token
	c.logger.Printf("source: CSRF token obtained: %s...", truncate(body.Token, 10))
	return nil
}

// FetchPage returns the entries on one listing page (1-based).
func (c *Client) FetchPage(ctx context.Context, page int) ([]RawEntry, error) {
	if c.token == "" {
		return nil, fmt.Errorf("source: not authenticated")
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-CSRF-TOKEN", c.token).
		SetBody(c.params.WithPage(page)).
		Post(diaryListPath)
	if err != nil {
		return nil, fmt.Errorf("source: fetch page %d: %w", page, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("source: fetch page %d: unexpected status code %d", page, res.StatusCode())
	}

	var out ListResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("source: decode page %d: %w", page, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("source: page %d: API returned unsuccessful status", page)
	}

	c.logger.Printf("source: found %d entries on page %d", len(out.DiaryData.Entries), page)
	return out.DiaryData.Entries, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
