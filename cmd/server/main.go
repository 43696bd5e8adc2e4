package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pricetracker/internal/config"
	"pricetracker/internal/database"
	"pricetracker/internal/logging"
	"pricetracker/internal/products"
	"pricetracker/internal/scheduler"
	"pricetracker/internal/scraper"
)

func main() {
	_ = godotenv.Load() // load .env if present; not fatal if missing

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("database connect", "error", err)
		os.Exit(1)
	}

	repo := products.NewRepository(pool)
	extractor := scraper.New(&http.Client{Timeout: cfg.Scraper.Timeout()}, cfg.Sites)

	// background price updates
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched := scheduler.New(repo, extractor,
			scheduler.Config{Interval: cfg.Scheduler.Interval()},
			logger.With("component", "scheduler"))
		sched.Run(ctx)
	}()

	svc := products.NewService(repo, extractor, logger.With("component", "service"))
	h := products.NewHandler(svc, logger.With("component", "http"))

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.Register(r.Group("/api"))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// stop accepting new requests, allow 15s to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}

	// wait for the scheduler to notice the cancelled ctx
	wg.Wait()

	pool.Close()
	logger.Info("graceful shutdown complete")
}
