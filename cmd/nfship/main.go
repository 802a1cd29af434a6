package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/carloseduardonl/nf-ship-flow/internal/app"
	"github.com/carloseduardonl/nf-ship-flow/internal/chat"
	"github.com/carloseduardonl/nf-ship-flow/internal/companies"
	"github.com/carloseduardonl/nf-ship-flow/internal/delivery"
	"github.com/carloseduardonl/nf-ship-flow/internal/notifications"
	"github.com/carloseduardonl/nf-ship-flow/internal/observability"
	"github.com/carloseduardonl/nf-ship-flow/internal/platform/cache"
	"github.com/carloseduardonl/nf-ship-flow/internal/platform/db"
	"github.com/carloseduardonl/nf-ship-flow/internal/realtime"
	"github.com/carloseduardonl/nf-ship-flow/internal/timeline"
	"github.com/carloseduardonl/nf-ship-flow/internal/users"
	"github.com/carloseduardonl/nf-ship-flow/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = jobClient.Close() }()
	jobHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	metrics := observability.NewMetrics()
	hub := realtime.NewHub(redisClient, cfg.SSEDebounce)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, jobClient, logger)
	usersHandler := users.NewHandler(logger, usersService)

	companiesRepo := companies.NewRepository(pool)
	companiesService := companies.NewService(companiesRepo)
	companiesHandler := companies.NewHandler(logger, companiesService, usersService)

	notificationsRepo := notifications.NewRepository(pool)
	dispatcher := notifications.NewDispatcher(notificationsRepo, usersRepo, hub, jobClient, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsRepo)

	timelineWriter := timeline.NewWriter(pool)

	deliveryRepo := delivery.NewRepository(pool)
	deliveryService := delivery.NewService(logger, deliveryRepo, companiesRepo, timelineWriter, dispatcher, hub, metrics)
	deliveryHandler := delivery.NewHandler(logger, deliveryService)

	chatRepo := chat.NewRepository(pool)
	chatService := chat.NewService(logger, chatRepo, deliveryService, dispatcher, hub)
	chatHandler := chat.NewHandler(logger, chatService)

	realtimeHandler := realtime.NewHandler(hub, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Resolver:             usersRepo,
		DeliveryHandler:      deliveryHandler,
		ChatHandler:          chatHandler,
		NotificationsHandler: notificationsHandler,
		CompaniesHandler:     companiesHandler,
		UsersHandler:         usersHandler,
		RealtimeHandler:      realtimeHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	// WriteTimeout stays unset: /events holds its response open for the
	// lifetime of the client connection.
	server := &http.Server{
		Addr:        cfg.AppAddr,
		Handler:     router,
		ReadTimeout: cfg.AppReadTimeout,
		IdleTimeout: cfg.AppWriteTimeout * 4,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
