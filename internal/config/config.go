package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type StoreBackend string

const (
	StoreJSON   StoreBackend = "json"
	StoreSQLite StoreBackend = "sqlite"
	StoreMongo  StoreBackend = "mongo"
)

type Config struct {
	SourceBaseURL string
	ParamsFile    string
	Cookies       string
	Backfill      bool
	MaxPages      int
	PageDelay     time.Duration
	Timeout       time.Duration

	MediaDir     string
	MediaHosts   []string
	VideoBaseURL string

	TranslateURL    string
	TranslateTarget string

	NotionToken      string
	NotionDatabaseID string
	PublishDelay     time.Duration
	GithubRepository string
	GithubBranch     string

	StoreBackend StoreBackend
	DataFile     string
	MongoURI     string
	MongoDBName  string

	RabbitURI        string
	RabbitExchange   string
	RabbitRoutingKey string

	PollInterval time.Duration // 0 runs a single batch
	HTTPAddr     string
}

const (
	SourceBaseURL       = "SOURCE_BASE_URL"
	ParamsFile          = "PARAMS_FILE"
	Cookies             = "YOASOBI_COOKIES"
	Backfill            = "BACKFILL"
	MaxPages            = "MAX_PAGES"
	PageDelay           = "PAGE_DELAY"
	Timeout             = "TIMEOUT"
	MediaDir            = "MEDIA_DIR"
	MediaHosts          = "MEDIA_HOSTS"
	VideoBaseURL        = "VIDEO_BASE_URL"
	TranslateURL        = "TRANSLATE_URL"
	TranslateTarget     = "TRANSLATE_TARGET"
	NotionToken         = "NOTION_TOKEN"
	NotionDatabaseID    = "NOTION_DATABASE_ID"
	PublishDelay        = "PUBLISH_DELAY"
	GithubRepository    = "GITHUB_REPOSITORY"
	GithubBranch        = "GITHUB_BRANCH"
	StoreBackendEnv     = "STORE_BACKEND"
	DataFile            = "DATA_FILE"
	MongoURI            = "MONGO_URI"
	MongoDBName         = "MONGO_DB_NAME"
	RabbitURIEnv        = "RABBIT_URI"
	RabbitExchangeEnv   = "RABBIT_EXCHANGE"
	RabbitRoutingKeyEnv = "RABBIT_ROUTING_KEY"
	PollInterval        = "POLL_INTERVAL"
	HTTPAddr            = "HTTP_ADDR"
)

func FromEnv() (Config, error) {
	var cfg Config

	cfg.SourceBaseURL = strings.TrimRight(getEnv(SourceBaseURL, "https://yoasobi-heaven.com"), "/")
	cfg.ParamsFile = getEnv(ParamsFile, "params.json")
	cfg.Cookies = getEnv(Cookies, "")
	cfg.MediaDir = getEnv(MediaDir, "images")
	cfg.MediaHosts = getEnvList(MediaHosts, []string{"cityheaven.net", "yoasobi-heaven"})
	cfg.VideoBaseURL = strings.TrimRight(getEnv(VideoBaseURL, "https://img.cityheaven.net/cs/mvdiary"), "/")
	cfg.TranslateURL = getEnv(TranslateURL, "https://translate.googleapis.com/translate_a/single")
	cfg.TranslateTarget = getEnv(TranslateTarget, "zh-CN")
	cfg.NotionToken = getEnv(NotionToken, "")
	cfg.NotionDatabaseID = getEnv(NotionDatabaseID, "")
	cfg.GithubRepository = getEnv(GithubRepository, "")
	cfg.GithubBranch = getEnv(GithubBranch, "main")
	cfg.DataFile = getEnv(DataFile, "data_store.json")
	cfg.MongoURI = getEnv(MongoURI, "mongodb://localhost:27017")
	cfg.MongoDBName = getEnv(MongoDBName, "diarydb")
	cfg.RabbitURI = getEnv(RabbitURIEnv, "")
	cfg.RabbitExchange = getEnv(RabbitExchangeEnv, "diary.sync")
	cfg.RabbitRoutingKey = getEnv(RabbitRoutingKeyEnv, "entry.published")
	cfg.HTTPAddr = getEnv(HTTPAddr, ":8080")

	var err error
	if cfg.Backfill, err = getEnvBool(Backfill, false); err != nil {
		return cfg, fmt.Errorf("invalid %v: %w", Backfill, err)
	}
	if cfg.MaxPages, err = getEnvInt(MaxPages, 100); err != nil {
		return cfg, fmt.Errorf("invalid %v: %w", MaxPages, err)
	}
	if cfg.MaxPages <= 0 {
		return cfg, fmt.Errorf("invalid %v: must be positive, got %d", MaxPages, cfg.MaxPages)
	}
	if cfg.PageDelay, err = getEnvDuration(PageDelay, time.Second); err != nil {
		return cfg, fmt.Errorf("invalid %v: %w", PageDelay, err)
	}
	if cfg.Timeout, err = getEnvDuration(Timeout, 30*time.Second); err != nil {
		return cfg, fmt.Errorf("invalid %v: %w", Timeout, err)
	}
	if cfg.PublishDelay, err = getEnvDuration(PublishDelay, 500*time.Millisecond); err != nil {
		return cfg, fmt.Errorf("invalid %v: %w", PublishDelay, err)
	}
	if cfg.PollInterval, err = getEnvDuration(PollInterval, 0); err != nil {
		return cfg, fmt.Errorf("invalid %v: %w", PollInterval, err)
	}

	switch backend := StoreBackend(strings.ToLower(getEnv(StoreBackendEnv, string(StoreJSON)))); backend {
	case StoreJSON, StoreSQLite, StoreMongo:
		cfg.StoreBackend = backend
	default:
		return cfg, fmt.Errorf("invalid %v: unknown backend %q", StoreBackendEnv, backend)
	}

	return cfg, nil
}

// NotionEnabled reports whether both publisher credentials are present.
func (c Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDatabaseID != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return i, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(strings.ToLower(v))
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BrowserUserAgent is sent on every outbound request; the source rejects
// obvious non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
