package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gameEvent(t *testing.T) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("game-9")
	e.SetSource("pgn2csv/generator")
	e.SetType(game.EventTypeGames)
	if err := e.SetData(game.ContentTypePGN, []byte(testPGN)); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestProducer_ProduceEvent(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e cloudevents.Event
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.ID() != "game-9" {
			return fmt.Errorf("id = %q", e.ID())
		}
		if string(e.Data()) != testPGN {
			return fmt.Errorf("data = %q", e.Data())
		}
		return nil
	})

	producer := newProducer(mock, discardLogger())
	if err := producer.ProduceEvent(context.Background(), "lichess-games", gameEvent(t)); err != nil {
		t.Fatalf("ProduceEvent() error = %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestProducer_ProduceEventFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := newProducer(mock, discardLogger())
	err := producer.ProduceEvent(context.Background(), "lichess-games", gameEvent(t))
	if !stderrors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("ProduceEvent() error = %v, want %v", err, sarama.ErrOutOfBrokers)
	}
	_ = producer.Close()
}

func TestProducer_ProduceEventCancelled(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mock, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := producer.ProduceEvent(ctx, "lichess-games", gameEvent(t)); !stderrors.Is(err, context.Canceled) {
		t.Errorf("ProduceEvent() error = %v, want context.Canceled", err)
	}
	_ = producer.Close()
}

func TestNewProducerConfig(t *testing.T) {
	config, err := newProducerConfig(ProducerConfig{
		CompressionType: "zstd",
		Idempotent:      true,
		RequiredAcks:    1,
		RetryMax:        7,
	})
	if err != nil {
		t.Fatalf("newProducerConfig() error = %v", err)
	}
	if config.Producer.Compression != sarama.CompressionZSTD {
		t.Errorf("Compression = %v", config.Producer.Compression)
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Errorf("RequiredAcks = %v, idempotence needs WaitForAll", config.Producer.RequiredAcks)
	}
	if config.Net.MaxOpenRequests != 1 {
		t.Errorf("MaxOpenRequests = %d, want 1", config.Net.MaxOpenRequests)
	}
	if config.Producer.Retry.Max != 7 {
		t.Errorf("Retry.Max = %d, want 7", config.Producer.Retry.Max)
	}

	if _, err := newProducerConfig(ProducerConfig{Security: SecurityConfig{Protocol: "QUIC"}}); err == nil {
		t.Error("newProducerConfig() accepted an unknown protocol")
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := map[string]sarama.CompressionCodec{
		"gzip":   sarama.CompressionGZIP,
		"snappy": sarama.CompressionSnappy,
		"lz4":    sarama.CompressionLZ4,
		"zstd":   sarama.CompressionZSTD,
		"none":   sarama.CompressionNone,
		"":       sarama.CompressionNone,
	}
	for in, want := range tests {
		if got := parseCompressionType(in); got != want {
			t.Errorf("parseCompressionType(%q) = %v, want %v", in, got, want)
		}
	}
}
