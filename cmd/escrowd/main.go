package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"escrowd/internal/ledger/handler"
	ledgermetrics "escrowd/internal/ledger/metrics"
	"escrowd/internal/ledger/models"
	"escrowd/internal/ledger/service"
	"escrowd/internal/ledger/store"
	"escrowd/internal/notify"
	"escrowd/internal/platform/config"
	"escrowd/internal/platform/httpserver"
	"escrowd/internal/platform/logger"
	"escrowd/internal/platform/metrics"
	"escrowd/internal/platform/middleware"
	"escrowd/internal/platform/postgres"
	"escrowd/internal/platform/redis"
	"escrowd/internal/recorder"
	"escrowd/internal/token"
	"escrowd/internal/vault"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(log, cfg); err != nil {
		log.Error("escrowd exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	admin, err := domain.ParseAccountID(cfg.Auth.AdminAccount)
	if err != nil {
		return fmt.Errorf("parse administrator account: %w", err)
	}
	controller, err := domain.ParseAccountID(cfg.Auth.ControllerAccount)
	if err != nil {
		return fmt.Errorf("parse fund controller account: %w", err)
	}

	// The ledger state and the transaction records share the postgres pool
	// when that backend is selected. The other backends pair with in-memory
	// records, which the leveldb ledger outlives across restarts.
	var (
		ledgerStore   store.Store
		recorderStore recorder.Store
	)
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
		rec := recorder.NewPostgresStore(db)
		if err := rec.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure records schema: %w", err)
		}
		ledgerStore, recorderStore = pg, rec
	case config.StoreLevelDB:
		ldb, err := store.OpenLevelDB(cfg.Store.LevelDBPath)
		if err != nil {
			return fmt.Errorf("open leveldb: %w", err)
		}
		defer ldb.Close()
		ledgerStore, recorderStore = ldb, recorder.NewInMemoryStore()
	default:
		ledgerStore, recorderStore = store.NewInMemory(), recorder.NewInMemoryStore()
	}

	seed, err := models.New(admin, controller, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed ledger: %w", err)
	}
	if err := ledgerStore.Init(ctx, seed); err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	recorderOpts := []recorder.Option{recorder.WithLogger(log)}
	if cfg.Recorder.Buffer > 0 {
		recorderOpts = append(recorderOpts, recorder.WithAsyncBuffer(cfg.Recorder.Buffer))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := recorder.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka sink: %w", err)
		}
		defer kafkaSink.Close()
		recorderOpts = append(recorderOpts, recorder.WithMirror(kafkaSink))
		log.Info("mirroring transaction records to kafka", "topic", cfg.Kafka.Topic)
	}
	records := recorder.NewPublisher(recorderStore, recorderOpts...)
	defer records.Close()

	sinks := []notify.Sink{notify.NewLogSink(log)}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		redisSink, err := notify.NewRedisSink(redisClient.Client)
		if err != nil {
			return err
		}
		sinks = append(sinks, redisSink)
		log.Info("publishing ledger events to redis stream")
	}
	events := notify.NewFanout(log, sinks...)

	ledgerService, err := service.New(ledgerStore, vault.NewInMemory(),
		service.WithLogger(log),
		service.WithRecorder(records),
		service.WithNotifier(events),
		service.WithMetrics(ledgermetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build ledger service: %w", err)
	}

	credentials := token.NewInMemoryCredentialStore()
	err = token.Bootstrap(ctx, credentials,
		token.Credential{Account: admin, SecretHash: cfg.Auth.AdminSecretHash, CreatedAt: time.Now().UTC()},
		token.Credential{Account: controller, SecretHash: cfg.Auth.ControllerSecretHash, CreatedAt: time.Now().UTC()},
	)
	if err != nil {
		return fmt.Errorf("bootstrap credentials: %w", err)
	}

	jwtService := token.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	tokenService, err := token.New(credentials, jwtService, ledgerService, token.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build token service: %w", err)
	}

	srv := httpserver.New(cfg.HTTPAddr, newRouter(log, cfg, ledgerService, tokenService, jwtService))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("escrowd listening", "addr", cfg.HTTPAddr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newRouter assembles the middleware chain and mounts the public and
// token-protected route groups.
func newRouter(
	log *slog.Logger,
	cfg config.Config,
	ledgerService *service.Service,
	tokenService *token.Service,
	jwtService *token.JWTService,
) http.Handler {
	httpMetrics := metrics.NewHTTP()

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(httpMetrics.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	ledgerHandler := handler.New(ledgerService, log)
	tokenHandler := token.NewHandler(tokenService, int64(cfg.Auth.TokenTTL.Seconds()), log)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	tokenHandler.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService, log))
		ledgerHandler.Register(r)
		tokenHandler.RegisterProtected(r)
	})

	return r
}
