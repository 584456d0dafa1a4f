package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"diary-sync/internal/config"

	"github.com/go-resty/resty/v2"
)

// Translator converts text to a fixed target language. On failure the input is
// returned unchanged together with the error, so callers can always use the
// returned text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// maxChunkRunes keeps each request URL within the endpoint's length limit.
const maxChunkRunes = 1000

type Options struct {
	URL     string
	Target  string
	Timeout time.Duration
	Logger  *log.Logger
}

// Google uses the public translate endpoint with source auto-detection.
type Google struct {
	http   *resty.Client
	url    string
	target string
	logger *log.Logger
}

func NewGoogle(opts Options) *Google {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	target := opts.Target
	if target == "" {
		target = "zh-CN"
	}

	return &Google{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", config.BrowserUserAgent),
		url:    opts.URL,
		target: target,
		logger: logger,
	}
}

// Translate makes a single attempt per chunk, no retries. Any failing chunk
// fails the whole call.
func (g *Google) Translate(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	var out strings.Builder
	for _, chunk := range splitChunks(text, maxChunkRunes) {
		translated, err := g.translateChunk(ctx, chunk)
		if err != nil {
			g.logger.Printf("translate: error: %v", err)
			return text, err
		}
		out.WriteString(translated)
	}
	return out.String(), nil
}

func (g *Google) translateChunk(ctx context.Context, chunk string) (string, error) {
	if strings.TrimSpace(chunk) == "" {
		return chunk, nil
	}

	res, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     "auto",
			"tl":     g.target,
			"dt":     "t",
			"q":      chunk,
		}).
		Get(g.url)
	if err != nil {
		return "", fmt.Errorf("translate: request: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("translate: unexpected status code %d", res.StatusCode())
	}
	return parseResponse(res.Body())
}

// parseResponse reads the nested-array payload; element 0 holds the
// translated segments, each segment's first item being the translated text.
func parseResponse(body []byte) (string, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", errors.New("translate: empty response")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", errors.New("translate: unexpected response shape")
	}

	var out strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			out.WriteString(s)
		}
	}
	return out.String(), nil
}

// splitChunks splits text on line boundaries into pieces of at most max runes.
// A single line longer than max is cut at rune boundaries.
func splitChunks(text string, max int) []string {
	var chunks []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(cur)+len(r) > max {
			flush()
		}
		for len(r) > max {
			chunks = append(chunks, string(r[:max]))
			r = r[max:]
		}
		cur = append(cur, r...)
	}
	flush()
	return chunks
}
