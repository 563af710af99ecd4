package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applicationhandler "finflow/internal/application/handler"
	applicationmetrics "finflow/internal/application/metrics"
	applicationservice "finflow/internal/application/service"
	applicationstore "finflow/internal/application/store"
	"finflow/internal/cache"
	identitystore "finflow/internal/identity/store"
	institutionhandler "finflow/internal/institution/handler"
	institutionmetrics "finflow/internal/institution/metrics"
	institutionservice "finflow/internal/institution/service"
	institutionstore "finflow/internal/institution/store"
	"finflow/internal/notify"
	"finflow/internal/platform/config"
	"finflow/internal/platform/httpserver"
	"finflow/internal/platform/logger"
	platformredis "finflow/internal/platform/redis"
	producthandler "finflow/internal/product/handler"
	productmetrics "finflow/internal/product/metrics"
	productservice "finflow/internal/product/service"
	productstore "finflow/internal/product/store"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/middleware/requesttime"
)

// main wires the stores, cache, notifier and the three workflow services,
// then runs the HTTP server until a shutdown signal. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx := context.Background()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			fatal(log, "open postgres", err)
		}
		if err := db.PingContext(ctx); err != nil {
			fatal(log, "ping postgres", err)
		}
		defer db.Close()
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		fatal(log, "connect redis", err)
	}

	var store cache.Cache = cache.NewInMemory()
	if rdb != nil {
		store = cache.NewRedis(rdb.Client, cfg.CacheTTL)
		defer rdb.Close()
	}

	var (
		directory    institutionservice.Directory
		userResolver notify.UserResolver
		instStore    institutionservice.InstitutionStore
		prodStore    productservice.ProductStore
		appStore     applicationservice.ApplicationStore
	)
	if db != nil {
		users := identitystore.NewPostgres(db)
		directory, userResolver = users, users
		instStore = institutionstore.NewPostgres(db)
		prodStore = productstore.NewPostgres(db)
		appStore = applicationstore.NewPostgres(db)
	} else {
		users := identitystore.NewInMemory()
		directory, userResolver = users, users
		instStore = institutionstore.NewInMemory()
		prodStore = productstore.NewInMemory()
		appStore = applicationstore.NewInMemory()
	}

	notifier, err := buildNotifier(ctx, cfg, log, userResolver)
	if err != nil {
		fatal(log, "build notifier", err)
	}
	if closer, ok := notifier.(interface{ Close() }); ok {
		defer closer.Close()
	}

	institutions := institutionservice.New(instStore, directory, store,
		institutionservice.WithLogger(log),
		institutionservice.WithMetrics(institutionmetrics.New()),
		institutionservice.WithNotifier(notifier))

	checkInstitution := func(ctx context.Context, instID id.InstitutionID) error {
		_, err := institutions.GetInstitution(ctx, instID)
		return err
	}
	products := productservice.New(prodStore, checkInstitution, store,
		productservice.WithLogger(log),
		productservice.WithMetrics(productmetrics.New()))

	applications := applicationservice.New(appStore, directory, products, institutions, store,
		applicationservice.WithLogger(log),
		applicationservice.WithMetrics(applicationmetrics.New()),
		applicationservice.WithNotifier(notifier))

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, requesttime.Middleware)
	institutionhandler.New(institutions, log).Register(router)
	producthandler.New(products, log).Register(router)
	applicationhandler.New(applications, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(db, rdb))

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting finflow", "addr", cfg.Addr,
		"postgres", db != nil, "redis", rdb != nil, "notifier", cfg.Notifier)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(log, "graceful shutdown failed", err)
	}
}

func buildNotifier(ctx context.Context, cfg config.Config, log *slog.Logger, users notify.UserResolver) (notify.Notifier, error) {
	switch cfg.Notifier {
	case "ses":
		return notify.NewSES(ctx, cfg.SES.Region, cfg.SES.Sender, users)
	case "kafka":
		return notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	default:
		return notify.NewLog(log), nil
	}
}

func healthz(db *sql.DB, rdb *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
