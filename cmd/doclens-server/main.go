// Command doclens-server runs the DocLens HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/aggregate"
	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/cache"
	"github.com/doclens/doclens/internal/canonical"
	"github.com/doclens/doclens/internal/config"
	"github.com/doclens/doclens/internal/db"
	"github.com/doclens/doclens/internal/db/migrations"
	"github.com/doclens/doclens/internal/dbpool"
	"github.com/doclens/doclens/internal/service"
	"github.com/doclens/doclens/internal/store"
	"github.com/doclens/doclens/internal/translate"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}
	documents := store.NewDocumentStore(base)
	canonicalStore := store.NewCanonicalStore(base)
	extraction := store.NewExtractionStore(base)
	tenants := store.NewTenantStore(pool)

	resolver := canonical.NewResolver(canonicalStore, log)

	bridge := db.NewNotifyBridge(log, pool, resolver)
	if err := bridge.Start(ctx); err != nil {
		return err
	}

	engine := aggregate.NewEngine(documents, resolver, log)
	comparer := aggregate.NewComparer(engine, log)

	llm := translate.NewOllamaClient(cfg.OllamaURL, cfg.LLMModel)
	translator := translate.NewTranslator(llm, resolver, log)

	answers, err := newAnswerCache(cfg, log)
	if err != nil {
		return err
	}

	askSvc := service.NewAskService(
		translator, documents, engine, comparer, extraction, answers,
		cfg.LowConfidenceThreshold, log,
	)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Ask:         askSvc,
		Canonical:   resolver,
		Tenants:     tenants,
		CORSOrigins: cfg.CORSOrigins,
		Version:     config.Version,
		OllamaURL:   cfg.OllamaURL,
		LLMModel:    cfg.LLMModel,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"version": config.Version,
		}).Info("doclens server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return err
	}

	return nil
}

// newAnswerCache builds the configured answer cache backend.
func newAnswerCache(cfg *config.Config, log *logrus.Logger) (cache.AnswerCache, error) {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedisCache(cfg.RedisURL.Value(), cfg.CacheTTL, log)
	}
	return cache.NewMemoryCache(cfg.CacheTTL, cfg.CacheMaxEntries, log), nil
}
