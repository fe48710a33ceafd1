package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/config"
	"github.com/Skotchmaster/polyglot_blog/internal/db"
	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/httpserver"
	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/ratelimit"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/search"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/storage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.Env)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	rp := repo.New(gdb)

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = ratelimit.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if rdb == nil {
			logger.Warn("redis_unavailable", "addr", cfg.RedisAddr, "reason", "login throttling disabled")
		}
	}

	authSvc := &service.AuthService{
		Repo:          rp,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Limiter:       ratelimit.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow),
		Events:        publisher,
	}
	if _, err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("admin bootstrap error: %v", err)
	}

	blogSvc := &service.BlogService{Repo: rp, Events: publisher, DefaultLang: cfg.DefaultLang}
	if idx := openIndex(ctx, cfg, logger); idx != nil {
		blogSvc.Index = idx
	}

	store, err := storage.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("upload dir error: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		httpserver.RequestLogger(logger),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Accept-Language"},
			AllowCredentials: true,
		}),
		middleware.BodyLimit(fmt.Sprintf("%dB", cfg.UploadMaxBytes+1<<20)),
	)

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:       &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		BlogHandler:       &httpserver.BlogHTTP{Svc: blogSvc},
		CategoryHandler:   &httpserver.CategoryHTTP{Svc: &service.CategoryService{Repo: rp, DefaultLang: cfg.DefaultLang}},
		CommentHandler:    &httpserver.CommentHTTP{Svc: &service.CommentService{Repo: rp, Events: publisher}},
		SubscriberHandler: &httpserver.SubscriberHTTP{Svc: &service.SubscriberService{Repo: rp, Events: publisher, DefaultLang: cfg.DefaultLang}},
		UploadHandler:     &httpserver.UploadHTTP{Svc: &service.UploadService{Store: store, MaxBytes: cfg.UploadMaxBytes}},
		Ready:             readiness(gdb),
		UploadDir:         cfg.UploadDir,
		AllowedOrigins:    cfg.CORSOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	go func() {
		logger.Info("http_server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_failed", "error", err)
		}
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}
	logger.Info("shutdown_complete")
}

// openIndex returns nil when search is not configured or unreachable; blog
// search then runs against the database.
func openIndex(ctx context.Context, cfg config.Config, logger *slog.Logger) *search.Index {
	if cfg.ESURL == "" {
		return nil
	}
	es, err := search.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		logger.Warn("elasticsearch_unavailable", "url", cfg.ESURL, "error", err)
		return nil
	}
	idx := search.NewIndex(es, cfg.ESIndex)
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Warn("elasticsearch_index_failed", "index", cfg.ESIndex, "error", err)
		return nil
	}
	logger.Info("elasticsearch_enabled", "index", cfg.ESIndex)
	return idx
}

func readiness(gdb *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(pingCtx)
	}
}
