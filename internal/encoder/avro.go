package encoder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/buffer"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

// AvroEncoder writes rows as an Avro OCF (Object Container File) with one
// string field per header label. Block compression is null, deflate or snappy.
type AvroEncoder struct {
	compression string
}

// NewAvroEncoder creates an Avro encoder with the given block compression.
func NewAvroEncoder(compression string) *AvroEncoder {
	return &AvroEncoder{compression: avroCompression(compression)}
}

func avroCompression(compression string) string {
	switch strings.ToLower(compression) {
	case "deflate":
		return goavro.CompressionDeflateLabel
	case "snappy":
		return goavro.CompressionSnappyLabel
	default:
		return goavro.CompressionNullLabel
	}
}

// NewSink returns a sink writing an OCF file to w.
func (e *AvroEncoder) NewSink(w io.Writer) (encoder.RowSink, error) {
	return newColumnarSink(&avroBatch{out: w, compression: e.compression}), nil
}

// Format returns the file format.
func (e *AvroEncoder) Format() game.Format {
	return game.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	return ".avro"
}

type avroField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type avroRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace"`
	Fields    []avroField `json:"fields"`
}

// avroSchema returns the record schema for the given columns.
func avroSchema(columns []string) (string, error) {
	rec := avroRecord{
		Type:      "record",
		Name:      "Game",
		Namespace: "org.lichess.pgn",
		Fields:    make([]avroField, len(columns)),
	}
	for i, c := range columns {
		rec.Fields[i] = avroField{Name: c, Type: "string"}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type avroBatch struct {
	out         io.Writer
	compression string
	columns     []string
	ocf         *goavro.OCFWriter
}

func (a *avroBatch) open(columns []string) error {
	schema, err := avroSchema(columns)
	if err != nil {
		return fmt.Errorf("failed to build avro schema: %w", err)
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("failed to create avro codec: %w", err)
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               a.out,
		Codec:           codec,
		CompressionName: a.compression,
	})
	if err != nil {
		return fmt.Errorf("failed to create OCF writer: %w", err)
	}
	a.columns = columns
	a.ocf = ocf
	return nil
}

func (a *avroBatch) write(rows []buffer.Row) error {
	records := make([]interface{}, len(rows))
	for r, row := range rows {
		m := make(map[string]interface{}, len(a.columns))
		for i, c := range a.columns {
			m[c] = row[i]
		}
		records[r] = m
	}
	if err := a.ocf.Append(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// close is a no-op: OCF blocks are complete after each Append.
func (a *avroBatch) close() error {
	return nil
}
