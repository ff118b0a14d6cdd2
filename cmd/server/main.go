package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"volunteerd/internal/allocation"
	"volunteerd/internal/allocation/handler"
	"volunteerd/internal/ingest"
	"volunteerd/internal/platform/config"
	"volunteerd/internal/platform/httpserver"
	"volunteerd/internal/platform/logger"
	"volunteerd/internal/platform/metrics"
	platformredis "volunteerd/internal/platform/redis"
	"volunteerd/internal/score"
	"volunteerd/internal/student/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	recordStore, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Error("store setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	weights := score.Weights{Name: cfg.NameWeight, Phone: cfg.PhoneWeight, Year: cfg.YearWeight}

	ingestOpts := []ingest.Option{}
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis setup failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		ttl := time.Duration(cfg.OCRCacheTTLSeconds) * time.Second
		ingestOpts = append(ingestOpts, ingest.WithTextCache(ingest.NewRedisTextCache(redisClient, ttl)))
	}

	ingestSvc := ingest.New(
		ingest.NewCSVSource(cfg.ResponsesPath),
		ingest.NewDriveFetcher(&http.Client{Timeout: 15 * time.Second}, cfg.ImageDir),
		ingest.NewTesseract(cfg.TesseractBinary),
		recordStore,
		log, m,
		ingestOpts...,
	)
	allocationSvc := allocation.NewService(recordStore, weights, log, m,
		allocation.WithMinConfidence(cfg.MinConfidence))

	router := chi.NewRouter()
	handler.New(allocationSvc, ingestSvc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting volunteerd", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

// fullStore is what both services need; the memory and postgres stores
// satisfy it.
type fullStore interface {
	ingest.Store
	allocation.Store
}

func buildStore(cfg *config.Config) (fullStore, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}
