package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/kbadiane/chemstock/internal/config"
	"github.com/kbadiane/chemstock/internal/remote"
	"github.com/kbadiane/chemstock/internal/scheduler"
	"github.com/kbadiane/chemstock/internal/server/handlers"
	"github.com/kbadiane/chemstock/internal/server/router"
	syncsvc "github.com/kbadiane/chemstock/internal/service/sync"
	"github.com/kbadiane/chemstock/internal/store"
	"github.com/kbadiane/chemstock/internal/store/mongodb"
	"github.com/kbadiane/chemstock/internal/store/sqlite"
	"github.com/kbadiane/chemstock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	localStore, err := openStore(cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init local store", zap.Error(err))
	}
	defer func() {
		if err := localStore.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close local store", zap.Error(err))
		}
	}()

	remoteClient := remote.NewClient(cfg.Remote, baseLogger.Named("remote"))
	coordinator := syncsvc.NewCoordinator(localStore, remoteClient, cfg.Remote.FetchTimeout, baseLogger.Named("svc.sync"))

	inventoryHandler := handlers.NewInventoryHandler(coordinator, baseLogger.Named("handlers.inventory"))
	engine := router.New(inventoryHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, coordinator, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config, baseLogger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongodb.New(ctx, cfg.Store.MongoURI, cfg.Store.MongoDBName, cfg.Cache.TTL)
	default:
		return sqlite.New(cfg.Store.SQLitePath, cfg.Cache.TTL, baseLogger.Named("store.sqlite"))
	}
}
