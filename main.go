package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"deposit-ledger/config"
	"deposit-ledger/handler"
	"deposit-ledger/logging"
	"deposit-ledger/metrics"
	"deposit-ledger/service"
	"deposit-ledger/storage"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	store, err := storage.NewPostgresStore(ctx, storage.PostgresOptions{
		ConnString:      cfg.Database.URL,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		MaxConns:        cfg.Database.MaxConns,
	})
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database connection established and schema initialized")

	collector := metrics.NewCollector()
	opts := service.Options{
		Timeout:  cfg.Store.Timeout,
		Logger:   logger,
		Observer: collector,
	}
	accounts := service.NewAccountService(store, opts)
	deposits := service.NewDepositService(store, opts)
	catalog := service.NewCatalogService(store, opts)

	router := handler.NewRouter(logger, handler.RouterDependencies{
		Accounts:     handler.NewAccountHandler(accounts),
		Deposits:     handler.NewDepositHandler(deposits, accounts),
		DepositTypes: handler.NewDepositTypeHandler(catalog),
		Health:       store,
		Metrics:      collector.Handler(),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Wait for shutdown signal or a failed listener
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server gracefully stopped")
	return nil
}
