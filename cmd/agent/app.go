package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rider-agent/internal/common/config"
	"rider-agent/internal/common/log"
	"rider-agent/internal/common/rabbitmq"
	"rider-agent/internal/sharing/adapters/api"
	"rider-agent/internal/sharing/adapters/clock"
	"rider-agent/internal/sharing/adapters/credentials"
	"rider-agent/internal/sharing/adapters/journal"
	"rider-agent/internal/sharing/adapters/queue"
	"rider-agent/internal/sharing/adapters/report"
	"rider-agent/internal/sharing/adapters/source"
	"rider-agent/internal/sharing/app"
	"rider-agent/internal/sharing/domain"
)

func run(ctx context.Context, cfgPath string, autoStart bool) error {
	logger := log.New("rider-agent")
	log.Info(ctx, logger, "init_start", "Rider location agent initializing...")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error(ctx, logger, "config_load_fail", "Failed to load config file", err)
		return err
	}
	log.Info(ctx, logger, "config_loaded", "Configuration loaded successfully")

	creds := credentials.NewFileStore(cfg.Auth.TokenPath, logger)
	reporter := report.NewHTTPReporter(cfg.Backend.BaseURL, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second, creds, logger)
	feed := source.NewFeedSource(cfg.Source.URL, logger)
	ticker := clock.New()

	// Optional reading journal
	var jnl domain.ReadingJournal
	if cfg.HasJournal {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Error(ctx, logger, "journal_open_fail", "Failed to open reading journal", err)
			return err
		}
		defer j.Close()
		jnl = j

		if n, err := j.UnreportedCount(ctx); err == nil && n > 0 {
			log.Info(ctx, logger, "journal_backlog", fmt.Sprintf("%d readings from a previous run were never reported", n))
		}
		log.Info(ctx, logger, "journal_ready", "Reading journal opened")
	}

	// Optional telemetry mirror over RabbitMQ
	var telemetry domain.TelemetryPublisher
	if cfg.HasRabbitMQ {
		rmq := rabbitmq.NewMQ(cfg.RabbitMQ, logger)
		if err := rmq.Connect(ctx); err != nil {
			log.Error(ctx, logger, "rmq_connect_fail", "Failed to connect to RabbitMQ", err)
			return err
		}
		defer rmq.Close()
		if err := rmq.DeclareTopology(queue.ExchangeLocationFanout); err != nil {
			log.Error(ctx, logger, "rmq_declare_topology_fail", "Failed to declare RabbitMQ topology", err)
			return err
		}
		telemetry = queue.NewLocationPublisher(rmq, creds, logger)
		log.Info(ctx, logger, "rmq_ready", "Telemetry mirror enabled")
	}

	ctrl := app.NewSessionController(feed, ticker, reporter, jnl, telemetry, logger)
	// Sharing must never outlive the process.
	defer ctrl.Stop()

	if autoStart {
		if err := ctrl.Start(ctx); err != nil {
			log.Error(ctx, logger, "auto_start_fail", "Failed to auto-start sharing session", err)
			return err
		}
	}

	handler := api.NewHandler(ctrl, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.API.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, logger, "api_server_start", fmt.Sprintf("Control API listening on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, logger, "shutdown_signal", "Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, logger, "api_server_fail", "Control API server failed", err)
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, logger, "api_shutdown_fail", "Control API shutdown failed", err)
	} else {
		log.Info(ctx, logger, "api_shutdown", "Control API stopped")
	}

	ctrl.Stop()
	log.Info(ctx, logger, "shutdown_complete", "Rider location agent stopped")
	return nil
}
