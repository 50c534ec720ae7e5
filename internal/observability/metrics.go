package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It implements the metrics collectors
// of the convert, stream, kafka and storage packages.
type Metrics struct {
	registry *prometheus.Registry

	// Conversion metrics
	FilesConverted     *prometheus.CounterVec
	GamesWritten       *prometheus.CounterVec
	InputBytes         prometheus.Counter
	ConversionDuration prometheus.Histogram

	// Consumer metrics
	MessagesConsumed   *prometheus.CounterVec
	MessagesRejected   *prometheus.CounterVec
	Rebalances         *prometheus.CounterVec
	PartitionsAssigned *prometheus.GaugeVec

	// Stream metrics
	OutputsRotated *prometheus.CounterVec
	StreamErrors   *prometheus.CounterVec

	// Storage metrics
	OutputsWritten       *prometheus.CounterVec
	OutputSize           *prometheus.HistogramVec
	StorageWriteDuration *prometheus.HistogramVec
	StorageErrors        *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		// Conversion metrics
		FilesConverted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgn_files_converted_total",
				Help: "Total number of PGN files converted",
			},
			[]string{"status"},
		),
		GamesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "games_written_total",
				Help: "Total number of games written as rows",
			},
			[]string{"mode"},
		),
		InputBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pgn_input_bytes_total",
				Help: "Total number of compressed PGN bytes read",
			},
		),
		ConversionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "conversion_duration_seconds",
				Help:    "Duration of single file conversions",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27m
			},
		),

		// Consumer metrics
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_consumed_total",
				Help: "Total number of messages consumed from Kafka",
			},
			[]string{"topic", "partition"},
		),
		MessagesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_rejected_total",
				Help: "Total number of messages skipped because they carry no PGN",
			},
			[]string{"topic", "reason"},
		),
		Rebalances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_rebalance_total",
				Help: "Total number of consumer group rebalances",
			},
			[]string{"group"},
		),
		PartitionsAssigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kafka_partitions_assigned",
				Help: "Number of partitions currently assigned to this consumer",
			},
			[]string{"topic"},
		),

		// Stream metrics
		OutputsRotated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_outputs_rotated_total",
				Help: "Total number of stream outputs committed",
			},
			[]string{"topic", "reason"},
		),
		StreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_errors_total",
				Help: "Total number of stream processing errors",
			},
			[]string{"stage"},
		),

		// Storage metrics
		OutputsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outputs_written_total",
				Help: "Total number of outputs written to storage",
			},
			[]string{"backend", "status"},
		),
		OutputSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "output_size_bytes",
				Help:    "Size of outputs written to storage",
				Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10), // 64KB to 16GB
			},
			[]string{"backend"},
		),
		StorageWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_write_duration_seconds",
				Help:    "Duration of output commits",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "operation"},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metrics in the text exposition format, for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// IncFilesConverted increments files converted counter.
func (m *Metrics) IncFilesConverted(status string) {
	m.FilesConverted.WithLabelValues(status).Inc()
}

// AddGamesWritten adds to the games written counter.
func (m *Metrics) AddGamesWritten(mode string, games int) {
	m.GamesWritten.WithLabelValues(mode).Add(float64(games))
}

// AddInputBytes adds to the input bytes counter.
func (m *Metrics) AddInputBytes(bytes int64) {
	m.InputBytes.Add(float64(bytes))
}

// ObserveConversionDuration observes conversion duration.
func (m *Metrics) ObserveConversionDuration(duration float64) {
	m.ConversionDuration.Observe(duration)
}

// IncMessagesConsumed increments messages consumed counter.
func (m *Metrics) IncMessagesConsumed(topic string, partition int32) {
	m.MessagesConsumed.WithLabelValues(topic, fmt.Sprintf("%d", partition)).Inc()
}

// IncMessagesRejected increments messages rejected counter.
func (m *Metrics) IncMessagesRejected(topic string, reason string) {
	m.MessagesRejected.WithLabelValues(topic, reason).Inc()
}

// IncRebalances increments rebalances counter.
func (m *Metrics) IncRebalances(groupID string) {
	m.Rebalances.WithLabelValues(groupID).Inc()
}

// SetPartitionsAssigned sets partitions assigned gauge.
func (m *Metrics) SetPartitionsAssigned(topic string, count float64) {
	m.PartitionsAssigned.WithLabelValues(topic).Set(count)
}

// IncOutputsRotated increments outputs rotated counter.
func (m *Metrics) IncOutputsRotated(topic string, reason string) {
	m.OutputsRotated.WithLabelValues(topic, reason).Inc()
}

// IncStreamErrors increments stream errors counter.
func (m *Metrics) IncStreamErrors(stage string) {
	m.StreamErrors.WithLabelValues(stage).Inc()
}

// IncOutputsWritten increments outputs written counter.
func (m *Metrics) IncOutputsWritten(backend string, status string) {
	m.OutputsWritten.WithLabelValues(backend, status).Inc()
}

// ObserveOutputSize observes output size.
func (m *Metrics) ObserveOutputSize(backend string, size float64) {
	m.OutputSize.WithLabelValues(backend).Observe(size)
}

// ObserveStorageWriteDuration observes storage write duration.
func (m *Metrics) ObserveStorageWriteDuration(backend string, duration float64) {
	m.StorageWriteDuration.WithLabelValues(backend).Observe(duration)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}
