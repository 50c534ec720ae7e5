// Package stream transcodes PGN games consumed from Kafka into rotating
// outputs, one open output per topic partition.
//
// Delivery is at least once. A message is marked only after the output
// holding its games has been committed, so a crash or a rebalance replays the
// games of every uncommitted output and they may appear twice downstream.
package stream

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/convert"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/pgn"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/transcoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/consumer"
	pkgencoder "github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

const defaultCheckInterval = time.Second

// MetricsCollector defines metrics operations for stream processing.
type MetricsCollector interface {
	AddGamesWritten(mode string, games int)
	IncOutputsRotated(topic string, reason string)
	IncStreamErrors(stage string)
}

// Config configures a Processor.
type Config struct {
	Topics []string
	// CheckInterval is how often open outputs are checked against the
	// rotation policy while no messages arrive. Zero means one second.
	CheckInterval time.Duration
}

// Processor consumes PGN messages and writes their games. All partitions are
// handled by the goroutine calling Run.
type Processor struct {
	config      Config
	consumer    consumer.Consumer
	transcoders *convert.Transcoders
	encoder     pkgencoder.Encoder
	storage     storage.Writer
	router      storage.Router
	policy      storage.RotationPolicy
	logger      *slog.Logger
	metrics     MetricsCollector

	outputs map[game.Source]*partitionOutput
	now     func() time.Time
}

// partitionOutput is the open output of one partition.
type partitionOutput struct {
	name  string
	out   storage.Output
	sink  pkgencoder.RowSink
	rw    *transcoder.RowWriter
	stats game.Stats
	last  *consumer.Message
}

// discard releases the sink and drops the partial output.
func (po *partitionOutput) discard(cause error) {
	if po.sink != nil {
		po.sink.Close()
	}
	if po.out != nil {
		po.out.Abort(cause)
	}
}

func (po *partitionOutput) mark() {
	if po.last != nil {
		po.last.Mark()
	}
}

// NewProcessor creates a stream processor.
func NewProcessor(
	config Config,
	cons consumer.Consumer,
	transcoders *convert.Transcoders,
	enc pkgencoder.Encoder,
	store storage.Writer,
	router storage.Router,
	policy storage.RotationPolicy,
	logger *slog.Logger,
	metrics MetricsCollector,
) *Processor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaultCheckInterval
	}
	return &Processor{
		config:      config,
		consumer:    cons,
		transcoders: transcoders,
		encoder:     enc,
		storage:     store,
		router:      router,
		policy:      policy,
		logger:      logger,
		metrics:     metrics,
		outputs:     make(map[game.Source]*partitionOutput),
		now:         time.Now,
	}
}

// Run consumes until ctx is done or the message channel closes, then commits
// every open output. A storage failure stops Run; the failed output is
// discarded and its messages are left unmarked.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.consumer.Subscribe(ctx, p.config.Topics); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	messages, errs, err := p.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	p.logger.Info("stream processing started",
		"topics", p.config.Topics,
		"format", p.encoder.Format(),
		"mode", p.transcoders.Mode().String(),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("context cancelled, stopping processing")
			return p.closeAll()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.logger.Error("consumer error", "error", err)
			if p.metrics != nil {
				p.metrics.IncStreamErrors("consume")
			}

		case msg, ok := <-messages:
			if !ok {
				p.logger.Info("message channel closed")
				return p.closeAll()
			}
			if err := p.handle(ctx, msg); err != nil {
				p.abortAll(err)
				return err
			}

		case <-ticker.C:
			if err := p.rotateDue(); err != nil {
				p.abortAll(err)
				return err
			}
		}
	}
}

// handle writes the games of msg to the output of its partition.
func (p *Processor) handle(ctx context.Context, msg *consumer.Message) error {
	source := msg.Source()

	po, err := p.outputFor(ctx, source)
	if err != nil {
		return err
	}

	before := po.rw.Games()
	sc := pgn.NewScanner(bytes.NewReader(msg.PGN))
	// A message is written whole even when shutdown starts mid-scan.
	if _, err := sc.Scan(context.WithoutCancel(ctx), po.rw); err != nil {
		delete(p.outputs, source)
		po.discard(err)
		return p.fail(source, po, "write", err)
	}
	games := po.rw.Games() - before

	now := p.now()
	if po.stats.FirstWriteTime.IsZero() && games > 0 {
		po.stats.FirstWriteTime = now
	}
	po.stats.LastWriteTime = now
	po.stats.Games += games
	po.stats.SizeBytes = po.out.Written()
	po.last = msg

	if sc.Malformed() > 0 {
		p.logger.Warn("malformed tag pairs in message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"malformed_tags", sc.Malformed(),
		)
	}
	if p.metrics != nil {
		p.metrics.AddGamesWritten(p.transcoders.Mode().String(), games)
	}

	if p.policy.ShouldRotate(po.stats) {
		return p.rotate(source, "policy")
	}
	return nil
}

// outputFor returns the open output of source, creating it with its header
// row if needed.
func (p *Processor) outputFor(ctx context.Context, source game.Source) (*partitionOutput, error) {
	if po, ok := p.outputs[source]; ok {
		return po, nil
	}

	name := p.router.Route(source, p.now(), p.encoder.FileExtension())
	po := &partitionOutput{name: name}

	// Uploads run until the output is closed, which may be after ctx is done.
	out, err := p.storage.Create(context.WithoutCancel(ctx), name)
	if err != nil {
		return nil, p.fail(source, po, "create", err)
	}
	po.out = out

	sink, err := p.encoder.NewSink(out)
	if err != nil {
		po.discard(err)
		return nil, p.fail(source, po, "create", err)
	}
	po.sink = sink
	po.rw = transcoder.NewRowWriter(p.transcoders.For(source.Name), sink)

	if err := po.rw.WriteHeader(); err != nil {
		po.discard(err)
		return nil, p.fail(source, po, "write", err)
	}

	p.outputs[source] = po
	p.logger.Debug("output opened", "source", source.String(), "output", name)
	return po, nil
}

// rotateDue rotates every output whose policy limit passed while idle.
func (p *Processor) rotateDue() error {
	for source, po := range p.outputs {
		if p.policy.ShouldRotate(po.stats) {
			if err := p.rotate(source, "interval"); err != nil {
				return err
			}
		}
	}
	return nil
}

// rotate commits the output of source and marks its last message.
func (p *Processor) rotate(source game.Source, reason string) error {
	po := p.outputs[source]
	delete(p.outputs, source)

	if po.stats.Games == 0 {
		// Only a header; nothing worth keeping.
		po.discard(nil)
		po.mark()
		return nil
	}

	if err := po.sink.Close(); err != nil {
		po.out.Abort(err)
		return p.fail(source, po, "flush", err)
	}
	if err := po.out.Close(); err != nil {
		return p.fail(source, po, "commit", err)
	}
	po.mark()

	p.logger.Info("output committed",
		"source", source.String(),
		"output", po.name,
		"games", po.stats.Games,
		"size_bytes", po.out.Written(),
		"last_offset", po.last.Offset,
		"reason", reason,
	)
	if p.metrics != nil {
		p.metrics.IncOutputsRotated(source.Name, reason)
	}
	return nil
}

// closeAll commits every open output.
func (p *Processor) closeAll() error {
	var firstErr error
	for source := range p.outputs {
		if err := p.rotate(source, "shutdown"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// abortAll discards every open output after a failure. Their messages stay
// unmarked and are consumed again by the next run.
func (p *Processor) abortAll(cause error) {
	for source, po := range p.outputs {
		delete(p.outputs, source)
		po.discard(cause)
	}
}

// fail reports a failed output and wraps err. The caller has already
// released po.
func (p *Processor) fail(source game.Source, po *partitionOutput, op string, err error) error {
	p.logger.Error("stream output failed",
		"source", source.String(),
		"output", po.name,
		"op", op,
		"games", po.stats.Games,
		"error", err,
	)
	if p.metrics != nil {
		p.metrics.IncStreamErrors(op)
	}
	return &errors.ConversionError{Input: source.String(), Output: po.name, Op: op, Err: err}
}
