package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"neodukaan-backend/internal/archive"
	"neodukaan-backend/internal/auth"
	"neodukaan-backend/internal/cache"
	"neodukaan-backend/internal/config"
	"neodukaan-backend/internal/database"
	"neodukaan-backend/internal/db"
	h "neodukaan-backend/internal/http"
	"neodukaan-backend/internal/handlers"
	"neodukaan-backend/internal/health"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/memstore"
	"neodukaan-backend/internal/middleware"
	"neodukaan-backend/internal/monitoring"
	"neodukaan-backend/internal/repositories"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/internal/settlement"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/migrations"
)

func main() {
	if err := run(); err != nil {
		logger.For("main").WithError(err).Fatal("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	log := logger.For("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis is optional: without it reports are computed on every request
	// and idempotent checkouts are serialized by the database alone.
	var redisCache *cache.Cache
	var cachePinger health.Pinger
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("[Redis] unavailable, continuing without cache")
			redisCache = nil
		} else {
			log.WithField("addr", cfg.Redis.Addr).Info("[Redis] connected")
			cachePinger = redisCache
			defer redisCache.Close()
		}
	}

	var archiver *archive.Archiver
	if cfg.R2.Configured() {
		client, err := config.NewR2Client(ctx, cfg.R2)
		if err != nil {
			log.WithError(err).Warn("[R2] client init failed, sales archive disabled")
		} else {
			archiver = archive.NewArchiver(client, cfg.R2.Bucket)
			log.WithField("bucket", cfg.R2.Bucket).Info("[R2] sales archive enabled")
		}
	}

	hub := monitoring.NewHub(logger.For("live"))
	jwtManager := auth.NewJWTManager(cfg)
	engine := settlement.NewEngine(st, logger.For("settlement"))

	shopService := services.NewShopService(st.Shops(), jwtManager)
	inventoryService := services.NewInventoryService(st, redisCache)
	customerService := services.NewCustomerService(st, redisCache, hub)
	saleService := services.NewSaleService(st, engine, redisCache, hub)
	reportService := services.NewReportService(st, redisCache, archiver, cfg.ReportCacheTTL())

	router := h.NewRouter(h.Handlers{
		Auth:      handlers.NewAuthHandler(shopService),
		Items:     handlers.NewItemHandler(inventoryService),
		Customers: handlers.NewCustomerHandler(customerService),
		Sales:     handlers.NewSaleHandler(saleService),
		Reports:   handlers.NewReportHandler(reportService),
		Health:    handlers.NewHealthHandler(health.NewHealthChecker(st, cachePinger)),
		Live:      handlers.NewLiveHandler(hub),
	},
		middleware.NewAuthMiddleware(jwtManager, st.Shops()),
		middleware.NewAPILoggingMiddleware(logger.For("api")),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.WithFields(map[string]any{"addr": server.Addr, "driver": cfg.Database.Driver}).Info("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks the storage backend. Postgres runs pending migrations
// before serving.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	log := logger.For("main")

	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	migrator := database.NewMigratorWithFS(pool, migrations.FS, logger.For("migrations"))
	if err := migrator.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	log.WithField("host", cfg.Database.Host).Info("connected to PostgreSQL")
	return repositories.NewPostgresStore(pool), pool.Close, nil
}
