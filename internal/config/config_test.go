package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		SourceBaseURL, ParamsFile, Cookies, Backfill, MaxPages, PageDelay, Timeout,
		MediaDir, MediaHosts, VideoBaseURL, TranslateURL, TranslateTarget,
		NotionToken, NotionDatabaseID, PublishDelay, GithubRepository, GithubBranch,
		StoreBackendEnv, DataFile, MongoURI, MongoDBName,
		RabbitURIEnv, RabbitExchangeEnv, RabbitRoutingKeyEnv, PollInterval, HTTPAddr,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://yoasobi-heaven.com", cfg.SourceBaseURL)
	assert.False(t, cfg.Backfill)
	assert.Equal(t, 100, cfg.MaxPages)
	assert.Equal(t, time.Second, cfg.PageDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.PublishDelay)
	assert.Equal(t, StoreJSON, cfg.StoreBackend)
	assert.Equal(t, []string{"cityheaven.net", "yoasobi-heaven"}, cfg.MediaHosts)
	assert.Zero(t, cfg.PollInterval)
	assert.False(t, cfg.NotionEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(Backfill, "TRUE")
	t.Setenv(MaxPages, "7")
	t.Setenv(MediaHosts, " a.example , ,b.example")
	t.Setenv(StoreBackendEnv, "SQLite")
	t.Setenv(SourceBaseURL, "http://localhost:9000/")
	t.Setenv(NotionToken, "secret")
	t.Setenv(NotionDatabaseID, "db")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Backfill)
	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.MediaHosts)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "http://localhost:9000", cfg.SourceBaseURL)
	assert.True(t, cfg.NotionEnabled())
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		Backfill:        "maybe",
		MaxPages:        "0",
		PageDelay:       "soon",
		StoreBackendEnv: "postgres",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnv_BackfillRejectsLooseBooleans(t *testing.T) {
	for _, value := range []string{"yes", "on", "y"} {
		t.Run(value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(Backfill, value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, "invalid BACKFILL")
		})
	}

	clearEnv(t)
	t.Setenv(Backfill, "1")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Backfill)
}

func TestLoadParams_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"girl_id": "57698938", "limit": 20}`), 0o644))

	p, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, "57698938", p["girl_id"])
	assert.Equal(t, 20, p["limit"])

	paged := p.WithPage(3)
	assert.Equal(t, 3, paged["page"])
	_, ok := p["page"]
	assert.False(t, ok, "WithPage must not mutate the receiver")
}

func TestLoadParams_Missing(t *testing.T) {
	_, err := LoadParams(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
