package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/consumer"
)

type mockSession struct {
	ctx    context.Context
	claims map[string][]int32
	mu     sync.Mutex
	marked []int64
}

func (s *mockSession) Claims() map[string][]int32 {
	return s.claims
}

func (s *mockSession) MemberID() string {
	return "member-1"
}

func (s *mockSession) GenerationID() int32 {
	return 1
}

func (s *mockSession) MarkOffset(string, int32, int64, string) {}

func (s *mockSession) Commit() {}

func (s *mockSession) ResetOffset(string, int32, int64, string) {}

func (s *mockSession) Context() context.Context {
	return s.ctx
}

func (s *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *mockSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type mockClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *mockClaim) Topic() string {
	return "lichess-games"
}

func (c *mockClaim) Partition() int32 {
	return 2
}

func (c *mockClaim) InitialOffset() int64 {
	return 0
}

func (c *mockClaim) HighWaterMarkOffset() int64 {
	return int64(len(c.messages))
}

func (c *mockClaim) Messages() <-chan *sarama.ConsumerMessage {
	return c.messages
}

type mockConsumerMetrics struct {
	mu         sync.Mutex
	consumed   int
	rejected   int
	rebalances int
	assigned   map[string]float64
}

func (m *mockConsumerMetrics) IncMessagesConsumed(string, int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed++
}

func (m *mockConsumerMetrics) IncMessagesRejected(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *mockConsumerMetrics) IncRebalances(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebalances++
}

func (m *mockConsumerMetrics) SetPartitionsAssigned(topic string, count float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assigned == nil {
		m.assigned = make(map[string]float64)
	}
	m.assigned[topic] = count
}

type mockConsumerGroup struct {
	sarama.ConsumerGroup
	closed bool
}

func (g *mockConsumerGroup) Close() error {
	g.closed = true
	return nil
}

func newTestConsumer(metrics MetricsCollector) (*SaramaConsumer, *mockConsumerGroup) {
	group := &mockConsumerGroup{}
	c := newSaramaConsumer(group, ConsumerConfig{GroupID: "pgn2csv"}, discardLogger(), metrics)
	return c, group
}

func TestConsumerGroupHandler_ConsumeClaim(t *testing.T) {
	metrics := &mockConsumerMetrics{}
	c, _ := newTestConsumer(metrics)

	messages := make(chan *consumer.Message, 10)
	handler := &consumerGroupHandler{consumer: c, messages: messages, errs: make(chan error, 1)}

	session := &mockSession{ctx: context.Background(), claims: map[string][]int32{"lichess-games": {0, 2}}}
	if err := handler.Setup(session); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	select {
	case <-c.ready:
	default:
		t.Error("consumer not ready after Setup")
	}

	now := time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC)
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "lichess-games", Partition: 2, Offset: 10, Timestamp: now, Value: []byte(testPGN)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "lichess-games", Partition: 2, Offset: 11, Value: []byte("{broken")}
	claim.messages <- &sarama.ConsumerMessage{
		Topic: "lichess-games", Partition: 2, Offset: 12, Value: []byte("x"),
		Headers: []*sarama.RecordHeader{{Key: []byte("trace"), Value: []byte("t-1")}, nil},
	}
	close(claim.messages)

	if err := handler.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim() error = %v", err)
	}
	close(messages)

	var got []*consumer.Message
	for msg := range messages {
		got = append(got, msg)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}

	first := got[0]
	if first.Offset != 10 || string(first.PGN) != testPGN || !first.Timestamp.Equal(now) {
		t.Errorf("first message = %+v", first)
	}
	if src := first.Source(); src.Name != "lichess-games" || src.Partition != 2 {
		t.Errorf("Source() = %+v", src)
	}
	if got[1].Headers["trace"] != "t-1" {
		t.Errorf("Headers = %v", got[1].Headers)
	}

	// Only the rejected record is marked until the processor marks the rest.
	if marked := session.markedOffsets(); len(marked) != 1 || marked[0] != 11 {
		t.Errorf("marked = %v, want [11]", marked)
	}
	first.Mark()
	if marked := session.markedOffsets(); len(marked) != 2 || marked[1] != 10 {
		t.Errorf("marked = %v, want [11 10]", marked)
	}

	if metrics.consumed != 2 || metrics.rejected != 1 || metrics.rebalances != 1 {
		t.Errorf("metrics = consumed %d rejected %d rebalances %d", metrics.consumed, metrics.rejected, metrics.rebalances)
	}
	if metrics.assigned["lichess-games"] != 2 {
		t.Errorf("assigned = %v", metrics.assigned)
	}
}

func TestConsumerGroupHandler_ConsumeClaimCancelled(t *testing.T) {
	c, _ := newTestConsumer(nil)
	handler := &consumerGroupHandler{consumer: c, messages: make(chan *consumer.Message), errs: make(chan error, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "lichess-games", Value: []byte(testPGN)}

	done := make(chan error, 1)
	go func() { done <- handler.ConsumeClaim(session, claim) }()

	// The unbuffered messages channel is never read; cancelling must
	// release the handler.
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ConsumeClaim() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ConsumeClaim() did not return after cancellation")
	}
}

func TestSaramaConsumer_Closed(t *testing.T) {
	c, group := newTestConsumer(nil)

	if err := c.Subscribe(context.Background(), []string{"lichess-games"}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !group.closed {
		t.Error("consumer group not closed")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := c.Subscribe(context.Background(), []string{"x"}); !stderrors.Is(err, errors.ErrConsumerClosed) {
		t.Errorf("Subscribe() error = %v, want ErrConsumerClosed", err)
	}
	if _, _, err := c.Consume(context.Background()); !stderrors.Is(err, errors.ErrConsumerClosed) {
		t.Errorf("Consume() error = %v, want ErrConsumerClosed", err)
	}
}

func TestNewConsumerConfig(t *testing.T) {
	config, err := newConsumerConfig(ConsumerConfig{
		AutoOffsetReset:     "earliest",
		SessionTimeoutMS:    30000,
		HeartbeatIntervalMS: 3000,
	})
	if err != nil {
		t.Fatalf("newConsumerConfig() error = %v", err)
	}
	if config.Consumer.Offsets.Initial != sarama.OffsetOldest {
		t.Errorf("Offsets.Initial = %d", config.Consumer.Offsets.Initial)
	}
	if config.Consumer.Group.Session.Timeout != 30*time.Second {
		t.Errorf("Session.Timeout = %v", config.Consumer.Group.Session.Timeout)
	}
	if config.Consumer.Group.Heartbeat.Interval != 3*time.Second {
		t.Errorf("Heartbeat.Interval = %v", config.Consumer.Group.Heartbeat.Interval)
	}

	if _, err := newConsumerConfig(ConsumerConfig{Security: SecurityConfig{Protocol: "QUIC"}}); err == nil {
		t.Error("newConsumerConfig() accepted an unknown protocol")
	}
}

func TestOffsetInitial(t *testing.T) {
	tests := map[string]int64{
		"earliest": sarama.OffsetOldest,
		"latest":   sarama.OffsetNewest,
		"":         sarama.OffsetNewest,
	}
	for in, want := range tests {
		if got := offsetInitial(in); got != want {
			t.Errorf("offsetInitial(%q) = %d, want %d", in, got, want)
		}
	}
}
