package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/backend"
	"ledgerview/internal/cli"
	apphttp "ledgerview/internal/http"
	"ledgerview/internal/log"
	"ledgerview/internal/view"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	coordinator := view.NewCoordinator(res.Source, logger)
	runDone := make(chan error, 1)
	go func() { runDone <- coordinator.Run(ctx) }()

	// Serving starts before the first load completes; /readyz reports 503
	// until both collections have arrived.
	go func() {
		if err := coordinator.Load(ctx); err != nil {
			logger.Warn("Initial load incomplete", log.FieldError, err)
		}
	}()

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeSnapshotRefreshed(ctx, func(ctx context.Context, msg *amqp.SnapshotRefreshed) error {
				logger.InfoContext(ctx, "Snapshot refreshed upstream, reloading",
					log.FieldSource, msg.Source,
					log.FieldCustomers, msg.Customers,
					log.FieldTransactions, msg.Transactions)
				if res.Invalidate != nil {
					res.Invalidate()
				}
				// Fetch failures are logged, not requeued.
				if err := coordinator.Load(ctx); err != nil {
					if errors.Is(err, view.ErrStopped) {
						return err
					}
					logger.WarnContext(ctx, "Reload after snapshot refresh incomplete", log.FieldError, err)
				}
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Snapshot consumption stopped", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, coordinator, logger, apphttp.WithReloadHook(res.Invalidate))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.APITimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ledgerview server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	<-runDone

	logger.Info("Server stopped gracefully")
}
