package commands

import (
	"context"
	"fmt"
	"time"

	"diary-sync/internal/config"
	"diary-sync/internal/db"
	"diary-sync/internal/entry"
	"diary-sync/internal/event"
	"diary-sync/internal/ingest"
	"diary-sync/internal/media"
	"diary-sync/internal/notion"
	"diary-sync/internal/source"
	"diary-sync/internal/translate"
)

// app holds everything a command may need. Parts a command did not ask for stay nil.
type app struct {
	cfg    config.Config
	store  entry.Store
	client *source.Client
	svc    *ingest.Service

	closers []func(ctx context.Context)
}

type needs struct {
	store  bool
	source bool
	// observer receives run outcomes; set in polling mode.
	observer ingest.RunObserver
}

func loadConfig() config.Config {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// newApp wires the pipeline from cfg. Any failure here is fatal for the command.
func newApp(ctx context.Context, cfg config.Config, n needs) (*app, error) {
	a := &app{cfg: cfg}

	if n.store {
		if err := a.openStore(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	if n.source {
		params, err := config.LoadParams(cfg.ParamsFile)
		if err != nil {
			a.close()
			return nil, err
		}
		client, err := source.NewClient(source.Options{
			BaseURL: cfg.SourceBaseURL,
			Cookies: cfg.Cookies,
			Params:  params,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		if err := client.Authenticate(ctx); err != nil {
			a.close()
			return nil, err
		}
		a.client = client
	}

	var publisher ingest.Publisher
	if cfg.NotionEnabled() {
		publisher = notion.NewFromToken(cfg.NotionToken, notion.Options{
			DatabaseID:       cfg.NotionDatabaseID,
			GithubRepository: cfg.GithubRepository,
			GithubBranch:     cfg.GithubBranch,
			MediaDir:         cfg.MediaDir,
			Delay:            cfg.PublishDelay,
			Logger:           logger,
		})
	} else {
		logger.Println("notion credentials missing, uploads disabled")
	}

	var notifier ingest.Notifier
	if cfg.RabbitURI != "" {
		p, err := event.NewRabbitPublisher(cfg.RabbitURI, cfg.RabbitExchange, cfg.RabbitRoutingKey, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to init rabbit publisher: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) { p.Close() })
		notifier = p
	}

	fetcher := media.NewFetcher(media.Options{
		Dir:     cfg.MediaDir,
		Referer: cfg.SourceBaseURL + "/",
		Timeout: 2 * cfg.Timeout,
		Logger:  logger,
	})
	translator := translate.NewGoogle(translate.Options{
		URL:     cfg.TranslateURL,
		Target:  cfg.TranslateTarget,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	normalizer := ingest.NewNormalizer(fetcher, translator, ingest.NormalizerOptions{
		MediaHosts:   cfg.MediaHosts,
		VideoBaseURL: cfg.VideoBaseURL,
		Logger:       logger,
	})

	// Keep interfaces nil rather than holding typed nil pointers.
	var client ingest.DiaryClient
	if a.client != nil {
		client = a.client
	}

	a.svc = ingest.NewService(a.store, client, normalizer, publisher, notifier, ingest.Options{
		Backfill:  cfg.Backfill,
		MaxPages:  cfg.MaxPages,
		PageDelay: cfg.PageDelay,
		Observer:  n.observer,
		Logger:    logger,
	})
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreBackend {
	case config.StoreSQLite:
		sqlDB, err := db.OpenSQLite(ctx, a.cfg.DataFile)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}
		store, err := entry.NewSQLiteStore(ctx, sqlDB, logger)
		if err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("failed to init store: %w", err)
		}
		a.store = store

	case config.StoreMongo:
		mongoClient, err := db.ConnectMongo(ctx, a.cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) {
			if err := mongoClient.Disconnect(ctx); err != nil {
				logger.Printf("mongo disconnect error: %v", err)
			}
		})
		store, err := entry.NewMongoStore(ctx, mongoClient.Database(a.cfg.MongoDBName), logger)
		if err != nil {
			return fmt.Errorf("failed to init store: %w", err)
		}
		a.store = store

	default:
		store, err := entry.NewFileStore(a.cfg.DataFile, logger)
		if err != nil {
			return fmt.Errorf("failed to init store: %w", err)
		}
		a.store = store
	}

	logger.Printf("%s store initialised", a.cfg.StoreBackend)
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			logger.Printf("store close error: %v", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

func logReport(r ingest.Report) {
	logger.Printf("report: %s", r)
	for _, f := range r.Failures {
		logger.Printf("  %v", f)
	}
}
