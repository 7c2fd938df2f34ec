package main

import (
	"context"
	"errors"

	"ledgerview/internal/amqp"
	"ledgerview/internal/backend"
	"ledgerview/internal/cli"
	"ledgerview/internal/log"
	"ledgerview/internal/worker"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting ledger-sync")
	cli.MustValidate(logger, cfg.ValidateSync)

	upstreamCfg, targetCfg, err := backend.SyncConfigs(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid sync configuration", err)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	factory := backend.NewFactory(logger)

	upstream, err := factory.CreateBackend(ctx, upstreamCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize upstream source", err, "source", cfg.SyncSource)
	}
	defer upstream.Close()

	store, err := factory.OpenStore(ctx, targetCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open snapshot store", err, "target", cfg.SyncTarget)
	}
	defer store.Close()

	// A nil *amqp.Client must not reach the worker as a non-nil interface.
	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - snapshots will not be announced")
	}

	syncWorker := worker.NewSyncWorker(upstream.Source, cfg.SyncSource, store, publisher, logger)

	logger.Info("Sync worker started",
		"source", cfg.SyncSource,
		"target", cfg.SyncTarget,
		"interval", cfg.SyncInterval.String())

	if err := syncWorker.Run(ctx, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Sync worker failed", err)
	}

	logger.Info("ledger-sync stopped gracefully")
}
