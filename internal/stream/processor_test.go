package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/convert"
	internalencoder "github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	internalstorage "github.com/jmviz/lichess-pgn-tags-to-csv/internal/storage"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/transcoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/consumer"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

var fixedNow = time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC)

// mockConsumer hands out a fixed message channel.
type mockConsumer struct {
	messages chan *consumer.Message
	errs     chan error
	topics   []string
}

func (c *mockConsumer) Subscribe(_ context.Context, topics []string) error {
	c.topics = topics
	return nil
}

func (c *mockConsumer) Consume(context.Context) (<-chan *consumer.Message, <-chan error, error) {
	return c.messages, c.errs, nil
}

func (c *mockConsumer) Close() error {
	return nil
}

// marks records which offsets were marked, per partition.
type marks struct {
	mu      sync.Mutex
	offsets map[int32][]int64
}

func (m *marks) message(topic string, partition int32, offset int64, pgn string) *consumer.Message {
	return &consumer.Message{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		PGN:       []byte(pgn),
		MarkFunc: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.offsets == nil {
				m.offsets = make(map[int32][]int64)
			}
			m.offsets[partition] = append(m.offsets[partition], offset)
		},
	}
}

func (m *marks) get(partition int32) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.offsets[partition]...)
}

type mockStreamMetrics struct {
	games   int
	rotated map[string]int
	errors  map[string]int
}

func (m *mockStreamMetrics) AddGamesWritten(_ string, games int) {
	m.games += games
}

func (m *mockStreamMetrics) IncOutputsRotated(_ string, reason string) {
	if m.rotated == nil {
		m.rotated = make(map[string]int)
	}
	m.rotated[reason]++
}

func (m *mockStreamMetrics) IncStreamErrors(stage string) {
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[stage]++
}

type switchPolicy struct {
	rotate bool
}

func (p *switchPolicy) ShouldRotate(stats game.Stats) bool {
	return p.rotate && stats.Games > 0
}

type failingWriter struct{}

func (failingWriter) Create(context.Context, string) (storage.Output, error) {
	return nil, fmt.Errorf("bucket not found")
}

func (failingWriter) Backend() string { return "mock" }

func (failingWriter) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pgnGames(n int, first int) string {
	var b strings.Builder
	for i := first; i < first+n; i++ {
		fmt.Fprintf(&b, "[Site \"https://lichess.org/g%d\"]\n[White \"player%d\"]\n[Result \"1-0\"]\n\n1. e4 e5 1-0\n\n", i, i)
	}
	return b.String()
}

type fixture struct {
	dir       string
	consumer  *mockConsumer
	metrics   *mockStreamMetrics
	processor *Processor
}

func newFixture(t *testing.T, opts convert.Options, policy storage.RotationPolicy, store storage.Writer) *fixture {
	t.Helper()
	dir := t.TempDir()
	if store == nil {
		fw, err := internalstorage.NewFileWriter(internalstorage.FileConfig{BasePath: dir}, discardLogger(), nil)
		if err != nil {
			t.Fatalf("NewFileWriter() error = %v", err)
		}
		store = fw
	}
	if len(opts.Tags) == 0 {
		opts.Tags = []string{"Site", "White", "Result"}
	}
	transcoders, err := convert.NewTranscoders(opts)
	if err != nil {
		t.Fatalf("NewTranscoders() error = %v", err)
	}

	f := &fixture{
		dir:      dir,
		consumer: &mockConsumer{messages: make(chan *consumer.Message, 16), errs: make(chan error, 1)},
		metrics:  &mockStreamMetrics{},
	}
	f.processor = NewProcessor(
		Config{Topics: []string{"lichess-games"}, CheckInterval: time.Hour},
		f.consumer,
		transcoders,
		internalencoder.NewCSVEncoder(""),
		store,
		internalstorage.NewRouter(""),
		policy,
		discardLogger(),
		f.metrics,
	)
	f.processor.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) read(t *testing.T, topic string, partition, seq int) []string {
	t.Helper()
	name := fmt.Sprintf("games_20160102_030405_%03d.csv", seq)
	path := filepath.Join(f.dir, topic, "dt=2016-01-02", fmt.Sprintf("pid=%d", partition), name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestProcessor_RotatesByGameCount(t *testing.T) {
	f := newFixture(t, convert.Options{}, internalstorage.NewPolicy(internalstorage.PolicyConfig{MaxGamesPerFile: 2}), nil)
	m := &marks{}

	f.consumer.messages <- m.message("lichess-games", 0, 100, pgnGames(1, 1))
	f.consumer.messages <- m.message("lichess-games", 0, 101, pgnGames(2, 2))
	f.consumer.messages <- m.message("lichess-games", 0, 102, pgnGames(1, 4))
	close(f.consumer.messages)

	if err := f.processor.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	first := f.read(t, "lichess-games", 0, 1)
	want := []string{
		"Site,White,Result",
		"https://lichess.org/g1,player1,1-0",
		"https://lichess.org/g2,player2,1-0",
		"https://lichess.org/g3,player3,1-0",
	}
	if strings.Join(first, "\n") != strings.Join(want, "\n") {
		t.Errorf("first output =\n%s\nwant\n%s", strings.Join(first, "\n"), strings.Join(want, "\n"))
	}

	second := f.read(t, "lichess-games", 0, 2)
	if len(second) != 2 || second[1] != "https://lichess.org/g4,player4,1-0" {
		t.Errorf("second output = %v", second)
	}

	if got := m.get(0); len(got) != 2 || got[0] != 101 || got[1] != 102 {
		t.Errorf("marked = %v, want [101 102]", got)
	}
	if f.metrics.games != 4 || f.metrics.rotated["policy"] != 1 || f.metrics.rotated["shutdown"] != 1 {
		t.Errorf("metrics = %+v", f.metrics)
	}
	if len(f.consumer.topics) != 1 || f.consumer.topics[0] != "lichess-games" {
		t.Errorf("subscribed topics = %v", f.consumer.topics)
	}
}

func TestProcessor_OutputPerPartition(t *testing.T) {
	f := newFixture(t, convert.Options{}, &switchPolicy{}, nil)
	m := &marks{}

	f.consumer.messages <- m.message("lichess-games", 0, 5, pgnGames(1, 1))
	f.consumer.messages <- m.message("lichess-games", 3, 9, pgnGames(1, 2))
	f.consumer.messages <- m.message("lichess-games", 0, 6, pgnGames(1, 3))
	close(f.consumer.messages)

	if err := f.processor.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if lines := f.read(t, "lichess-games", 0, 1); len(lines) != 3 {
		t.Errorf("partition 0 lines = %v", lines)
	}
	if lines := f.read(t, "lichess-games", 3, 1); len(lines) != 2 {
		t.Errorf("partition 3 lines = %v", lines)
	}
	if got := m.get(0); len(got) != 1 || got[0] != 6 {
		t.Errorf("partition 0 marked = %v, want [6]", got)
	}
	if got := m.get(3); len(got) != 1 || got[0] != 9 {
		t.Errorf("partition 3 marked = %v, want [9]", got)
	}
}

func TestProcessor_Chess960Topic(t *testing.T) {
	f := newFixture(t, convert.Options{
		Tags:        []string{"Site", "FEN"},
		Mode:        transcoder.Minified,
		AutoVariant: true,
	}, &switchPolicy{}, nil)
	m := &marks{}

	pgn := "[Site \"https://lichess.org/x960\"]\n[FEN \"bbqnnrkr/pppppppp/8/8/8/8/PPPPPPPP/BBQNNRKR w KQkq - 0 1\"]\n\n1. e4 1-0\n"
	f.consumer.messages <- m.message("lichess-chess960", 0, 0, pgn)
	close(f.consumer.messages)

	if err := f.processor.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := f.read(t, "lichess-chess960", 0, 1)
	if lines[0] != "Game,StartingPosition" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "x960,0" {
		t.Errorf("row = %q, want %q", lines[1], "x960,0")
	}
}

func TestProcessor_RotateDue(t *testing.T) {
	policy := &switchPolicy{}
	f := newFixture(t, convert.Options{}, policy, nil)
	m := &marks{}

	if err := f.processor.handle(context.Background(), m.message("lichess-games", 1, 40, pgnGames(2, 1))); err != nil {
		t.Fatalf("handle() error = %v", err)
	}
	if len(m.get(1)) != 0 {
		t.Fatal("message marked before its output was committed")
	}

	policy.rotate = true
	if err := f.processor.rotateDue(); err != nil {
		t.Fatalf("rotateDue() error = %v", err)
	}
	if got := m.get(1); len(got) != 1 || got[0] != 40 {
		t.Errorf("marked = %v, want [40]", got)
	}
	if lines := f.read(t, "lichess-games", 1, 1); len(lines) != 3 {
		t.Errorf("lines = %v", lines)
	}
	if f.metrics.rotated["interval"] != 1 {
		t.Errorf("rotated = %v", f.metrics.rotated)
	}
	if len(f.processor.outputs) != 0 {
		t.Errorf("%d outputs still open", len(f.processor.outputs))
	}
}

func TestProcessor_EmptyOutputDiscarded(t *testing.T) {
	f := newFixture(t, convert.Options{}, &switchPolicy{}, nil)
	m := &marks{}

	f.consumer.messages <- m.message("lichess-games", 0, 7, "\n\n")
	close(f.consumer.messages)

	if err := f.processor.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(f.dir, "lichess-games", "dt=2016-01-02", "pid=0"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("found %d files, want none", len(entries))
	}
	if got := m.get(0); len(got) != 1 || got[0] != 7 {
		t.Errorf("marked = %v, want [7]", got)
	}
}

func TestProcessor_CancelCommitsOpenOutputs(t *testing.T) {
	f := newFixture(t, convert.Options{}, &switchPolicy{}, nil)
	f.consumer.messages = make(chan *consumer.Message)
	m := &marks{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.processor.Run(ctx) }()

	f.consumer.messages <- m.message("lichess-games", 2, 11, pgnGames(1, 1))
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if lines := f.read(t, "lichess-games", 2, 1); len(lines) != 2 {
		t.Errorf("lines = %v", lines)
	}
	if got := m.get(2); len(got) != 1 || got[0] != 11 {
		t.Errorf("marked = %v, want [11]", got)
	}
}

func TestProcessor_CreateFailure(t *testing.T) {
	f := newFixture(t, convert.Options{}, &switchPolicy{}, failingWriter{})
	m := &marks{}

	f.consumer.messages <- m.message("lichess-games", 0, 1, pgnGames(1, 1))
	close(f.consumer.messages)

	err := f.processor.Run(context.Background())
	var convErr *errors.ConversionError
	if !stderrors.As(err, &convErr) {
		t.Fatalf("Run() error = %v, want ConversionError", err)
	}
	if convErr.Op != "create" || convErr.Input != "lichess-games-0" {
		t.Errorf("ConversionError = %+v", convErr)
	}
	if len(m.get(0)) != 0 {
		t.Error("message marked although nothing was stored")
	}
	if f.metrics.errors["create"] != 1 {
		t.Errorf("errors = %v", f.metrics.errors)
	}
}

func TestProcessor_ConsumerErrorsAreLogged(t *testing.T) {
	f := newFixture(t, convert.Options{}, &switchPolicy{}, nil)
	f.consumer.errs <- fmt.Errorf("broker went away")
	close(f.consumer.errs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.processor.Run(ctx) }()

	// Give the loop a chance to drain the error before the channel closes.
	time.Sleep(50 * time.Millisecond)
	close(f.consumer.messages)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
	cancel()

	if f.metrics.errors["consume"] != 1 {
		t.Errorf("errors = %v", f.metrics.errors)
	}
}
