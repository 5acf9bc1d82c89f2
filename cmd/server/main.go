package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/bookly/bookly/internal/blocklist"
	"github.com/bookly/bookly/internal/config"
	"github.com/bookly/bookly/internal/db"
	"github.com/bookly/bookly/internal/httpserver"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/mail"
	loggingmw "github.com/bookly/bookly/internal/middleware/logging"
	"github.com/bookly/bookly/internal/ratelimit"
	"github.com/bookly/bookly/internal/repo"
	"github.com/bookly/bookly/internal/search"
	"github.com/bookly/bookly/internal/service"
	"github.com/bookly/bookly/internal/tokens"
	"github.com/bookly/bookly/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bookly stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(gdb, logger)

	rdb, err := blocklist.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}()

	secret := []byte(cfg.JWT.Secret)
	links, err := tokens.NewURLSafe(secret, cfg.Tokens.VerifyTTL, cfg.Tokens.ResetTTL)
	if err != nil {
		return err
	}
	ts := tokens.NewService(
		tokens.NewManager(secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		links,
		blocklist.NewRedisStore(rdb),
		cfg.Tokens.RevocationCeiling,
	)

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	queue, closeQueue, err := startMail(ctx, workerCtx, &workers, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	dispatcher, err := mail.NewDispatcher(queue, mail.DispatcherConfig{
		Domain:    cfg.Domain,
		AppName:   cfg.Mail.FromName,
		VerifyTTL: cfg.Tokens.VerifyTTL,
		ResetTTL:  cfg.Tokens.ResetTTL,
	})
	if err != nil {
		return err
	}

	index, err := openIndex(ctx, cfg, gdb, logger)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Stop()

	r := &repo.GormRepo{DB: gdb}
	accounts := &service.AccountService{Repo: r, Tokens: ts, Mailer: dispatcher}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler(logger)
	e.Validator = validation.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: accounts},
		BookHandler:   &httpserver.BookHTTP{Svc: &service.BookService{Repo: r, Index: index}},
		ReviewHandler: &httpserver.ReviewHTTP{Svc: &service.ReviewService{Repo: r}},
		TagHandler:    &httpserver.TagHTTP{Svc: &service.TagService{Repo: r}},
		Tokens:        ts,
		Users:         accounts,
		Limiter:       limiter,
		Checks: []httpserver.HealthCheck{
			{Name: "db", Ping: func(ctx context.Context) error { return db.Ping(ctx, gdb) }},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("bookly listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopWorkers()
	workers.Wait()

	logger.Info("shutdown complete")
	return nil
}

func openDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gdb, err := db.Open(openCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch {
	case db.IsSQLite(cfg.DatabaseURL):
		err = db.AutoMigrate(ctx, gdb)
	case cfg.AutoMigrate:
		err = db.Migrate(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}
	return gdb, nil
}

func closeDB(gdb *gorm.DB, logger *slog.Logger) {
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}
}

// startMail picks the sender (SMTP or log) and the queue (kafka or
// in-process) and starts the consuming goroutine.
func startMail(ctx, workerCtx context.Context, wg *sync.WaitGroup, cfg *config.Config, logger *slog.Logger) (mail.Queue, func(), error) {
	var sender mail.Sender = mail.LogSender{Log: logger}
	if cfg.Mail.Server != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Server,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
			UseSSL:   cfg.Mail.UseSSL,
		})
	}

	if len(cfg.Kafka.Brokers) == 0 {
		q := mail.NewLocalQueue(0, sender, logger)
		runWorker(workerCtx, wg, logger, "mail_local", q.Run)
		return q, func() {}, nil
	}

	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mail.EnsureTopic(topicCtx, cfg.Kafka.Brokers[0], cfg.Mail.Topic); err != nil {
		return nil, nil, err
	}

	q := mail.NewKafkaQueue(cfg.Kafka.Brokers, cfg.Mail.Topic, logger)
	w := mail.NewKafkaWorker(cfg.Kafka.Brokers, cfg.Mail.Topic, cfg.Mail.Group, sender, logger)
	runWorker(workerCtx, wg, logger, "mail_kafka", w.Run)

	closeAll := func() {
		if err := q.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
		if err := w.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	return q, closeAll, nil
}

func runWorker(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, name string, fn func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "worker", name, "error", err)
		}
	}()
}

func openIndex(ctx context.Context, cfg *config.Config, gdb *gorm.DB, logger *slog.Logger) (search.Index, error) {
	if cfg.Search.URL == "" {
		logger.Info("search backed by the database")
		return &search.DBIndex{DB: gdb}, nil
	}

	es, err := search.NewClient(ctx, search.ESConfig{
		URL:      cfg.Search.URL,
		Username: cfg.Search.Username,
		Password: cfg.Search.Password,
	})
	if err != nil {
		return nil, err
	}
	return search.NewESIndex(es, cfg.Search.Index), nil
}
