package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/config"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/config/dto"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/observability"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// binding maps a command line flag onto a configuration key.
type binding struct {
	flag string
	key  string
}

// persistentBindings apply to every command.
var persistentBindings = []binding{
	{"log-level", "observability.logging.level"},
	{"log-format", "observability.logging.format"},
	{"metrics-port", "observability.metrics.port"},
	{"storage", "storage.backend"},
}

// newRootCommand returns the pgn2csv command. Without a subcommand it
// converts, like the convert subcommand.
func newRootCommand() *cobra.Command {
	root := newConvertCommand()
	root.Use = "pgn2csv"
	root.Version = version
	root.SilenceUsage = true

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML configuration file")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Int("metrics-port", 0, "serve Prometheus metrics on this port")
	flags.String("storage", "file", "output storage backend: file, s3, gcs or azure")

	root.AddCommand(newConvertCommand())
	root.AddCommand(newStreamCommand())
	root.AddCommand(newGenerateCommand())
	return root
}

// loadConfig loads the configuration file named by --config, with the
// persistent flags and bindings of cmd layered on top.
func loadConfig(cmd *cobra.Command, bindings []binding) (*dto.ApplicationConfig, error) {
	loader := config.NewLoader()
	for _, b := range append(persistentBindings, bindings...) {
		if err := loader.BindFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return nil, err
		}
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "_CONFIG")
	}

	cfg, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.Observability.Metrics.Enabled = true
	}
	return cfg, nil
}

func newLogger(cfg *dto.ApplicationConfig) *slog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// startServer serves metrics and health probes when a port is configured.
// The returned function shuts the server down within the grace period.
func startServer(cfg *dto.ApplicationConfig, state *server.State, registry *prometheus.Registry, logger *slog.Logger) (func(), error) {
	sc := server.Config{
		HealthPort:  cfg.Observability.Health.Port,
		MetricsPath: cfg.Observability.Metrics.Path,
	}
	if cfg.Observability.Metrics.Enabled {
		sc.MetricsPort = cfg.Observability.Metrics.Port
	}

	srv := server.NewServer(sc, state, registry, logger)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start http server: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.GracePeriod())
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("http server shutdown failed", "error", err)
		}
	}, nil
}
