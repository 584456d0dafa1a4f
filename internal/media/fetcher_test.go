package media

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	hits        atomic.Int32
	lastUA      atomic.Value
	lastReferer atomic.Value
}

func (r *recordingServer) start(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.hits.Add(1)
		r.lastUA.Store(req.Header.Get("User-Agent"))
		r.lastReferer.Store(req.Header.Get("Referer"))
		if req.URL.Path == "/missing.jpg" {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write([]byte("payload:" + req.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T) *Fetcher {
	return NewFetcher(Options{
		Dir:     filepath.Join(t.TempDir(), "images"),
		Referer: "https://yoasobi-heaven.com/",
		Logger:  log.New(io.Discard, "", 0),
	})
}

func TestFetch_IsIdempotent(t *testing.T) {
	rec := &recordingServer{}
	srv := rec.start(t)
	f := newTestFetcher(t)

	url := srv.URL + "/img/girls/photo.JPG?v=2"
	first := f.Fetch(context.Background(), url, Image)
	require.True(t, first.OK(), "first fetch: %v", first.Err)
	assert.False(t, first.Cached)

	second := f.Fetch(context.Background(), url, Image)
	require.True(t, second.OK())
	assert.True(t, second.Cached)

	assert.Equal(t, first.Filename, second.Filename)
	assert.Equal(t, int32(1), rec.hits.Load(), "second call must not hit the network")

	files, err := os.ReadDir(f.Dir())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, first.Filename, files[0].Name())

	b, err := os.ReadFile(filepath.Join(f.Dir(), first.Filename))
	require.NoError(t, err)
	assert.Equal(t, "payload:/img/girls/photo.JPG", string(b))
}

func TestFetch_Headers(t *testing.T) {
	rec := &recordingServer{}
	srv := rec.start(t)
	f := newTestFetcher(t)

	require.True(t, f.Fetch(context.Background(), srv.URL+"/a.jpg", Image).OK())
	assert.Contains(t, rec.lastUA.Load(), "Mozilla/5.0")
	assert.Empty(t, rec.lastReferer.Load())

	require.True(t, f.Fetch(context.Background(), srv.URL+"/a.mp4", Video).OK())
	assert.Equal(t, "https://yoasobi-heaven.com/", rec.lastReferer.Load())
}

func TestFetch_FailureDegrades(t *testing.T) {
	rec := &recordingServer{}
	srv := rec.start(t)
	f := newTestFetcher(t)

	d := f.Fetch(context.Background(), srv.URL+"/missing.jpg", Image)
	assert.False(t, d.OK())
	assert.Error(t, d.Err)
	assert.Empty(t, d.Filename)
	assert.Equal(t, srv.URL+"/missing.jpg", d.URL)

	files, _ := os.ReadDir(f.Dir())
	assert.Empty(t, files, "failed downloads must not leave files behind")

	d = f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable.jpg", Image)
	assert.False(t, d.OK())

	d = f.Fetch(context.Background(), "", Image)
	assert.False(t, d.OK())
}

func TestLocalName(t *testing.T) {
	a := LocalName("https://img.cityheaven.net/a/photo.jpg?v=1")
	b := LocalName("https://img.cityheaven.net/b/photo.jpg?v=1")

	assert.Equal(t, a, LocalName("https://img.cityheaven.net/a/photo.jpg?v=1"))
	assert.NotEqual(t, a, b, "same basename on different paths must not collide")
	assert.Len(t, a, 16+len(".jpg"))
	assert.Equal(t, ".jpg", filepath.Ext(a))
	assert.Len(t, LocalName("https://example.com/noext"), 16)
}

func TestIsVideo(t *testing.T) {
	cases := map[string]bool{
		"https://x/y/cover.mp4?v=1":                true,
		"https://x/y/cover.MOV":                    true,
		"https://x/y/cover.avi":                    true,
		"https://example.com/cover.webm":           true,
		"https://example.com/cover.mp4?v=123&q=hd": true,
		"https://x/y/cover.jpg":                    false,
		"https://x/y/cover":                        false,
		"https://x/y/cover.jpg?file=movie.mp4":     false,
		"":                                         false,
	}
	for url, want := range cases {
		assert.Equal(t, want, IsVideo(url), url)
	}
}
