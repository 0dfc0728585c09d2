// Command metcod is a metrics aggregation daemon: it accepts a stream
// of metric datagrams over UDP, buffers them in a time-bucketed
// registry, computes summary statistics on a fixed cadence, and fans
// the results out to the configured backends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/metcod/metcod/internal/config"
	"github.com/metcod/metcod/internal/daemon"
	"github.com/metcod/metcod/internal/logging"
)

type cli struct {
	Quiet      bool   `short:"q" help:"Suppress all logging."`
	Verbose    int    `short:"v" type:"counter" help:"Increase log verbosity; may be repeated."`
	ConfigPath string `short:"c" name:"config-path" default:"config.toml" help:"Path to the TOML configuration file."`
}

func main() {
	var c cli
	kong.Parse(&c, kong.Description("metcod - UDP metrics aggregation daemon"))

	log := logging.New(os.Stderr, c.Quiet, c.Verbose)

	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	d, err := daemon.New(cfg, daemon.BuildFactory(cfg.Backends, log), log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start daemon")
		os.Exit(1)
	}
	defer d.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("host", cfg.Host).Uint16("port", cfg.Port).Dur("refresh_interval", cfg.RefreshInterval).Msg("metcod listening")

	if err := d.Run(ctx); err != nil {
		log.Error().Err(err).Msg("fatal ingest error")
		os.Exit(1)
	}
}
