package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"

	"github.com/Chichichkin/HipChatSink/internal/daemon"
	"github.com/Chichichkin/HipChatSink/internal/logging/hipchat"
)

func main() {
	var config AppConfig
	arg.MustParse(&config)

	logger := newLogger(config.LogLevel)
	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("hipchat agent failed")
	}
}

func run(config AppConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := configureSelfLog(config.SelfLog); err != nil {
		return err
	}

	opts, err := config.sinkOptions()
	if err != nil {
		return err
	}
	sink, err := hipchat.NewFromConnection(ctx, config.connectionInfo(), opts...)
	if err != nil {
		return err
	}

	logDaemonService := daemon.NewLogDaemonService(ctx, config.daemonConfig(), sink, logger)
	logDaemonService.Start()

	<-ctx.Done()
	logger.Info().Msg("Received shutdown signal")

	// stop producing before the sink flushes and releases its transport
	logDaemonService.Stop()
	if err := sink.Close(); err != nil {
		return err
	}

	stamp := sink.Metrics()
	logger.Info().
		Int("batches", stamp.BatchesEmitted).
		Int("posted", stamp.EventsPosted).
		Int("delivery_failures", stamp.DeliveryFailures).
		Int("transport_failures", stamp.TransportFailures).
		Msg("Shut down")
	return nil
}
