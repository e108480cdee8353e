package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hydrobill.org/internal/billing"
	"hydrobill.org/internal/config"
	"hydrobill.org/internal/httpapi"
	"hydrobill.org/internal/obs"
	"hydrobill.org/internal/store"
)

var version = "0.3.1"

func main() {
	// .env is optional; containers set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	obs.Init()

	st := store.Open(cfg.DataDir, logger)
	gen := billing.NewGenerator(st, logger, cfg.Tariff)

	sched := cron.New()
	if _, err := sched.AddJob(cfg.SweepSpec, billing.NewSweeper(st, logger)); err != nil {
		logger.Fatal("schedule sweep", zap.String("spec", cfg.SweepSpec), zap.Error(err))
	}
	sched.Start()

	api := httpapi.New(st, gen, logger, version, cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting hydrobill-api",
		zap.String("version", version),
		zap.String("addr", cfg.Addr),
		zap.String("data_dir", cfg.DataDir),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	<-sched.Stop().Done()

	// Final snapshot picks up any in-place updates since the last save.
	st.Save()
	logger.Info("stopped")
}
