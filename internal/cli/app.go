package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/cachestore"
	"github.com/rohmanhakim/nps-explorer/internal/catalog"
	"github.com/rohmanhakim/nps-explorer/internal/config"
	"github.com/rohmanhakim/nps-explorer/internal/enrich"
	"github.com/rohmanhakim/nps-explorer/internal/fetcher"
	"github.com/rohmanhakim/nps-explorer/internal/gateway"
	"github.com/rohmanhakim/nps-explorer/internal/geosearch"
	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/limiter"
	"github.com/rs/zerolog"
)

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	recorder *metadata.Recorder
	store    *cachestore.Store
	catalog  *catalog.Catalog
	places   *enrich.Client
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config, logOutput io.Writer) (*app, error) {
	logger := setupLogger(cfg.LogLevel(), logOutput)
	recorder := metadata.NewRecorder(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
	}

	backend, err := a.newBackend(ctx)
	if err != nil {
		return nil, err
	}
	a.store = cachestore.NewStore(backend, recorder)

	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())
	rateLimiter.SetBackoffParam(cfg.BackoffParam())

	// per-miss deadlines come from the gateway
	httpClient := &http.Client{}
	htmlFetcher := fetcher.NewHtmlFetcher(recorder, httpClient, rateLimiter)
	gw := gateway.NewGateway(a.store, recorder, cfg.Timeout())

	a.catalog, err = catalog.NewCatalog(gw, &htmlFetcher, recorder, catalog.Options{
		BaseURL:    cfg.SiteBaseURL(),
		IndexPath:  cfg.IndexPath(),
		UserAgent:  cfg.UserAgent(),
		RetryParam: cfg.RetryParam(),
		MemoSize:   cfg.SiteMemoSize(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	searcher := geosearch.NewClient(cfg.GeosearchURL(), cfg.APIKey(), httpClient, recorder)
	a.places = enrich.NewClient(gw, searcher, recorder, enrich.QueryShape{
		Radius:      cfg.Radius(),
		MaxMatches:  cfg.MaxMatches(),
		Ambiguities: cfg.Ambiguities(),
		OutFormat:   cfg.OutFormat(),
	}, cfg.RetryParam())

	logger.Debug().
		Str("session", recorder.SessionId()).
		Str(string(metadata.AttrBackend), a.store.Describe()).
		Msg("session started")
	return a, nil
}

func (a *app) newBackend(ctx context.Context) (cachestore.Backend, error) {
	if a.cfg.CacheBackend() != config.BackendRedis {
		return cachestore.NewFileBackend(a.cfg.CacheFile()), nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := cachestore.DialRedis(dialCtx, a.cfg.RedisURL())
	if err != nil {
		return nil, fmt.Errorf("open redis cache: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return cachestore.NewRedisBackend(client, a.cfg.RedisKey()), nil
}

// Close ends the session and releases backend connections.
func (a *app) Close() error {
	a.recorder.RecordSessionEnd()
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// setupLogger builds the console logger used by the recorder.
func setupLogger(level string, output io.Writer) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	consoleOutput := zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(consoleOutput).Level(logLevel).With().Timestamp().Logger()
}
