package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tipatpati/golden-phone-management-sub007/internal"
	"github.com/tipatpati/golden-phone-management-sub007/internal/cart"
	"github.com/tipatpati/golden-phone-management-sub007/internal/handler"
	"github.com/tipatpati/golden-phone-management-sub007/internal/inventory"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
	"github.com/tipatpati/golden-phone-management-sub007/internal/realtime"
	"github.com/tipatpati/golden-phone-management-sub007/internal/routes"
	"github.com/tipatpati/golden-phone-management-sub007/internal/service"
	"github.com/tipatpati/golden-phone-management-sub007/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	cleanupSentry, err := telemetry.InitSentry(cfg.Sentry, logger)
	if err != nil {
		return fmt.Errorf("initializing sentry: %w", err)
	}
	defer cleanupSentry()

	// Migrations run over database/sql; the application itself uses pgx
	// pools directly.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	if err := internal.RunMigrations(migrationDB); err != nil {
		migrationDB.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	migrationDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	logger.Info("database connected")

	var bus *realtime.NATSBus
	if cfg.NATSURL != "" {
		bus, err = realtime.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer bus.Close()
		logger.Info("realtime bus connected", "url", cfg.NATSURL)
	} else {
		logger.Info("realtime bus disabled, carts refresh stock on demand only")
	}

	metrics := telemetry.NewMetrics(cfg.MetricsNamespace)
	calc := pricing.NewCalculator(cfg.VATRate)
	provider := inventory.NewPostgresProvider(pool)

	products := service.NewProductService(pool)
	clients := service.NewClientService(pool)

	var publisher realtime.Publisher
	var subscriber realtime.Subscriber
	if bus != nil {
		publisher = bus
		subscriber = bus
	}
	sales := service.NewSaleService(pool, publisher, logger, metrics)

	newEngine := func() *cart.Engine {
		return cart.NewEngine(provider, subscriber, calc, logger, metrics)
	}

	r := routes.Register(routes.Deps{
		Logger:   logger,
		Metrics:  metrics,
		Carts:    handler.NewCartHandler(newEngine, products, sales, logger),
		Products: handler.NewProductHandler(products),
		Clients:  handler.NewClientHandler(clients),
		Sales:    handler.NewSaleHandler(sales),
		Health:   handler.NewHealthHandler(pool),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
