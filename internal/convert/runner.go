package convert

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Workers bounds the number of files converted at once. Zero selects the
	// number of CPUs.
	Workers int
	// Progress receives a progress bar over files. Nil disables it.
	Progress io.Writer
}

// Summary describes a finished run.
type Summary struct {
	Files    int
	Failed   int
	Games    int
	Duration time.Duration
	Results  []Result
}

// Runner converts many files on a bounded worker pool.
type Runner struct {
	converter *Converter
	workers   int
	progress  io.Writer
	logger    *slog.Logger
}

// NewRunner creates a runner around converter.
func NewRunner(converter *Converter, config RunnerConfig, logger *slog.Logger) *Runner {
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		converter: converter,
		workers:   workers,
		progress:  config.Progress,
		logger:    logger,
	}
}

// Run converts every input. Inputs that would write the same output are
// rejected with a *errors.ConfigError before any file is converted. A failing
// file does not stop the others; all failures are joined into the returned
// error. Inputs not started when ctx is cancelled are reported as failed.
func (r *Runner) Run(ctx context.Context, inputs []string) (Summary, error) {
	if err := r.converter.CheckOutputs(inputs); err != nil {
		return Summary{}, err
	}

	start := time.Now()
	bar := r.newBar(len(inputs))

	r.logger.Info("conversion started",
		"files", len(inputs),
		"workers", r.workers,
	)

	var (
		mu   sync.Mutex
		errs []error
	)
	results := make([]Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, input := range inputs {
		g.Go(func() error {
			var (
				res Result
				err error
			)
			if ctxErr := ctx.Err(); ctxErr != nil {
				res = Result{Input: input, Output: r.converter.OutputName(input)}
				err = fmt.Errorf("%s not converted: %w", input, ctxErr)
			} else {
				res, err = r.converter.ConvertFile(ctx, input)
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			if err != nil {
				errs = append(errs, err)
			}
			bar.Add(1)
			return nil
		})
	}
	g.Wait()
	bar.Finish()

	summary := Summary{
		Files:    len(inputs),
		Failed:   len(errs),
		Duration: time.Since(start),
		Results:  results,
	}
	for _, res := range results {
		summary.Games += res.Games
	}

	r.logger.Info("all done",
		"files", summary.Files,
		"failed", summary.Failed,
		"games", summary.Games,
		"duration_ms", summary.Duration.Milliseconds(),
	)

	return summary, stderrors.Join(errs...)
}

func (r *Runner) newBar(total int) *progressbar.ProgressBar {
	w := r.progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(r.progress != nil),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}
