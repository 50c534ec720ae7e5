package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/config/dto"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/convert"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/observability"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/server"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/storage"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

var convertBindings = []binding{
	{"pgn", "input.dir"},
	{"csv", "output.dir"},
	{"tags", "conversion.tags"},
	{"minify", "conversion.minify"},
	{"variant", "conversion.variant"},
	{"format", "output.format"},
	{"compression", "output.compression"},
	{"workers", "conversion.workers"},
	{"progress", "observability.progress"},
}

func newConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every PGN file in a directory",
		Long: `Convert the tag pairs of every PGN file in the input directory into one
row per game. Plain, .bz2, .gz and .zst inputs are read; one output file is
written per input.`,
		Args: cobra.NoArgs,
		RunE: runConvert,
	}

	flags := cmd.Flags()
	flags.String("pgn", ".", "directory containing the PGN files")
	flags.String("csv", "", "output directory (defaults to the PGN directory)")
	flags.StringSlice("tags", nil, "comma separated tags to output, in column order")
	flags.Bool("minify", false, "rewrite well-known tags into short codes")
	flags.Bool("variant", false, "use the Chess960 columns for every file")
	flags.Bool("compress", false, "bzip2 compress CSV output")
	flags.String("format", string(game.FormatCSV), "output format: csv, parquet or avro")
	flags.String("compression", "", "output compression, format specific")
	flags.Int("workers", 0, "files converted at once (defaults to the number of CPUs)")
	flags.Bool("progress", true, "show a progress bar")
	return cmd
}

func runConvert(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, convertBindings)
	if err != nil {
		return err
	}
	compress, err := cmd.Flags().GetBool("compress")
	if err != nil {
		return err
	}
	if err := applyCompress(cfg, compress); err != nil {
		return err
	}

	logger := newLogger(cfg)
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	inputs, err := convert.Discover(cfg.Input.Dir, cfg.Input.Patterns)
	if stderrors.Is(err, errors.ErrNoInputs) {
		fmt.Fprintf(cmd.OutOrStdout(), "Found no files in %s\n", cfg.Input.Dir)
		return nil
	}
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	shutdown, err := startServer(cfg, server.NewState(), registry, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	enc, err := encoder.NewFactory(game.Format(cfg.Output.Format), cfg.Output.Compression).CreateEncoder()
	if err != nil {
		return err
	}
	store, err := storage.NewWriter(ctx, storageConfig(cfg), logger, metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	converter, err := convert.NewConverter(conversionOptions(cfg), enc, store, logger, metrics)
	if err != nil {
		return err
	}

	var progress io.Writer
	if cfg.Observability.Progress {
		progress = os.Stderr
	}
	runner := convert.NewRunner(converter, convert.RunnerConfig{
		Workers:  cfg.Conversion.Workers,
		Progress: progress,
	}, logger)

	summary, runErr := runner.Run(ctx, inputs)
	var cfgErr *errors.ConfigError
	if stderrors.As(runErr, &cfgErr) {
		return runErr
	}

	if path := cfg.Observability.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn("failed to write metrics textfile", "path", path, "error", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "All done: %d of %d files, %d games in %s\n",
		summary.Files-summary.Failed, summary.Files, summary.Games, summary.Duration.Round(time.Millisecond))
	if runErr != nil {
		return fmt.Errorf("%d of %d files failed: %w", summary.Failed, summary.Files, runErr)
	}
	return nil
}

// applyCompress implements --compress, which selects bzip2 for CSV output
// when no compression is configured.
func applyCompress(cfg *dto.ApplicationConfig, compress bool) error {
	if !compress {
		return nil
	}
	if game.Format(cfg.Output.Format) != game.FormatCSV {
		return &errors.ConfigError{
			Field:  "compress",
			Value:  cfg.Output.Format,
			Reason: "only applies to csv output, use --compression",
		}
	}
	if cfg.Output.Compression == "" {
		cfg.Output.Compression = encoder.CompressionBzip2
	}
	return nil
}
