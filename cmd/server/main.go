package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"chancery/internal/directory"
	"chancery/internal/notify"
	"chancery/internal/notify/outbox"
	"chancery/internal/platform/config"
	"chancery/internal/platform/httpserver"
	"chancery/internal/platform/logger"
	"chancery/internal/platform/middleware"
	"chancery/internal/platform/postgres"
	"chancery/internal/platform/redis"
	"chancery/internal/registry/handler"
	registrymetrics "chancery/internal/registry/metrics"
	"chancery/internal/registry/numbering"
	"chancery/internal/registry/service"
	registrystore "chancery/internal/registry/store"
	documentstore "chancery/internal/registry/store/document"
	stepstore "chancery/internal/registry/store/step"
	"chancery/internal/registry/sweep"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db  *sql.DB
		err error
	)
	if cfg.PostgresDSN != "" {
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		log.Warn("no postgres DSN configured, running with in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		documents service.DocumentStore
		ledger    service.Ledger
		counters  numbering.CounterStore
		dir       directory.Directory
		notifier  notify.Notifier
		storeTx   service.StoreTx
	)
	metrics := registrymetrics.New()

	if db != nil {
		documents = documentstore.NewPostgres(db)
		ledger = stepstore.NewPostgres(db)
		counters = numbering.NewPostgres(db)
		dir = directory.NewPostgres(db)
		notifier = outbox.NewStore(db)
		storeTx = registrystore.NewPostgresTx(db)
	} else {
		documents = documentstore.NewInMemoryStore()
		ledger = stepstore.NewInMemoryLedger()
		counters = numbering.NewInMemoryCounterStore()
		dir = directory.NewInMemoryDirectory()
		notifier = notify.NewRecorder()
	}

	if redisClient != nil {
		dir = directory.NewCached(dir, redisClient.Client, log)
	}

	allocator := numbering.New(counters)

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics),
		service.WithFanoutCap(cfg.NotifyFanoutCap),
	}
	if storeTx != nil {
		svcOpts = append(svcOpts, service.WithTx(storeTx))
	}
	svc := service.New(documents, ledger, allocator, dir, notifier, svcOpts...)

	validator := middleware.NewTokenValidator(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		handler.New(svc, log).Register(r)
	})

	sweeper := sweep.NewWorker(documents, ledger, log).WithInterval(cfg.SweepInterval)
	go sweeper.Run(ctx)

	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
			kgo.AllowAutoTopicCreation(),
		)
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()
		worker := outbox.NewWorker(db, kafkaClient, cfg.Kafka.Topic, log)
		go worker.Run(ctx)
	}

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting chancery", slog.String("addr", cfg.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
