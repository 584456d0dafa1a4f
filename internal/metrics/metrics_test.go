package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"diary-sync/internal/ingest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	r := New()

	r.ObserveRun(ingest.Report{
		Pages:     3,
		Fetched:   30,
		New:       4,
		Stored:    4,
		Published: 3,
		Failures: []ingest.Failure{
			{Kind: ingest.FailurePublish, EntryID: "1"},
			{Kind: ingest.FailureMedia, EntryID: "2"},
			{Kind: ingest.FailureMedia, EntryID: "2"},
		},
	}, 2*time.Second, nil)
	r.ObserveRun(ingest.Report{Pages: 1}, time.Second, errors.New("load known ids"))

	assert.Equal(t, 4.0, testutil.ToFloat64(r.pages))
	assert.Equal(t, 30.0, testutil.ToFloat64(r.entries.WithLabelValues("fetched")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.entries.WithLabelValues("published")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.failures.WithLabelValues("media")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("error")))
	assert.Positive(t, testutil.ToFloat64(r.lastSuccessTS))
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveRun(ingest.Report{Pages: 2}, time.Second, nil)

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "diary_sync_pages_fetched_total 2")
	assert.Contains(t, string(body), `diary_sync_runs_total{status="ok"} 1`)
}
