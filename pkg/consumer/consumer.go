// Package consumer defines interfaces for consuming PGN messages from Kafka.
package consumer

import (
	"context"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Consumer reads PGN messages from Kafka topics.
type Consumer interface {
	// Subscribe subscribes to one or more topics.
	Subscribe(ctx context.Context, topics []string) error

	// Consume starts consuming messages from subscribed topics.
	// Returns channels for messages and errors.
	Consume(ctx context.Context) (<-chan *Message, <-chan error, error)

	// Close closes the consumer and releases resources.
	Close() error
}

// Message is one consumed Kafka record carrying PGN text.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string

	// EventID is the CloudEvent id, or empty when the record value was raw
	// PGN.
	EventID string

	// PGN holds one or more games.
	PGN []byte

	// MarkFunc marks this message, and every earlier message of the same
	// partition, as consumed.
	MarkFunc func()
}

// Source identifies the partition the message came from.
func (m *Message) Source() game.Source {
	return game.Source{Name: m.Topic, Partition: m.Partition}
}

// Mark marks the message as consumed. It is a no-op without a MarkFunc.
func (m *Message) Mark() {
	if m.MarkFunc != nil {
		m.MarkFunc()
	}
}
