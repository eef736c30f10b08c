package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Noopy420/hedera-intel-agent/internal/api"
	"github.com/Noopy420/hedera-intel-agent/internal/config"
	"github.com/Noopy420/hedera-intel-agent/internal/registry"
	"github.com/Noopy420/hedera-intel-agent/internal/report"
	"github.com/Noopy420/hedera-intel-agent/internal/router"
	"github.com/Noopy420/hedera-intel-agent/internal/store"
	"github.com/Noopy420/hedera-intel-agent/internal/transport"
)

func main() {
	// Load configuration; missing credentials abort before any subscription
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	if cfg.InboundTopic == "" || cfg.OutboundTopic == "" {
		logger.Fatal().Msg("INBOUND_TOPIC_ID and OUTBOUND_TOPIC_ID are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize connection audit store
	var audit store.DataStore
	if cfg.DatabaseURL != "" {
		if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
			audit, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
			if err != nil {
				logger.Fatal().Err(err).Msg("postgres connection failed")
			}
			logger.Info().Msg("connected to PostgreSQL")
		} else {
			audit, err = store.NewSQLiteStore(ctx, cfg.DatabaseURL)
			if err != nil {
				logger.Fatal().Err(err).Msg("sqlite open failed")
			}
			logger.Info().Str("path", cfg.DatabaseURL).Msg("opened SQLite store")
		}
		defer audit.Close()
	}

	// Initialize Redis message history
	var history *store.RedisStore
	if cfg.RedisURL != "" {
		history, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer history.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Connect to the consensus network
	hcs, err := transport.NewHCSTransport(cfg.Network, cfg.OperatorID, cfg.OperatorKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("hedera client setup failed")
	}
	defer hcs.Close()

	reg := registry.New(hcs)

	rtr := router.New(router.Config{
		Transport:         hcs,
		Registry:          reg,
		Generator:         report.NewMarketGenerator(report.NewHTTPQuoteSource(cfg.QuoteAPIURL)),
		Health:            report.NewMirrorHealthReporter(cfg.Network),
		History:           history,
		Audit:             audit,
		Logger:            logger,
		OperatorID:        cfg.OperatorIdentity(),
		InboundTopic:      cfg.InboundTopic,
		OutboundTopic:     cfg.OutboundTopic,
		DefaultAssets:     cfg.DefaultAssets,
		GeneratorTimeout:  cfg.GeneratorTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	// Start ops HTTP server
	opsRouter := api.NewRouter(logger, api.Deps{
		Registry:   reg,
		History:    history,
		Audit:      audit,
		OperatorID: cfg.OperatorIdentity(),
		Network:    cfg.Network,
		StartedAt:  time.Now(),
	})
	srv := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      opsRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.OpsPort).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ops server failed to start")
		}
	}()

	// Start the protocol router
	routerDone := make(chan error, 1)
	go func() {
		routerDone <- rtr.Run(ctx)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("shutting down...")
	case err := <-routerDone:
		if err != nil {
			logger.Error().Err(err).Msg("router stopped")
			os.Exit(1)
		}
	}

	// Stop intake; let in-flight responses complete
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server forced to shutdown")
	}

	<-routerDone
	logger.Info().Msg("agent stopped")
}
