package encoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/buffer"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*ParquetEncoder)(nil)

// ParquetEncoder writes rows as a Parquet file with one string column per
// header label. Supports SNAPPY (default), GZIP, LZ4, ZSTD or no compression.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a Parquet encoder with the given compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts a compression name to a parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch strings.ToLower(compression) {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "lz4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "none":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// NewSink returns a sink writing a Parquet file to w.
func (e *ParquetEncoder) NewSink(w io.Writer) (encoder.RowSink, error) {
	return newColumnarSink(&parquetBatch{
		out:   w,
		codec: compressionCodec(e.compressionName),
	}), nil
}

// Format returns the file format.
func (e *ParquetEncoder) Format() game.Format {
	return game.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}

type parquetBatch struct {
	out   io.Writer
	codec parquet.WriterOption
	w     *parquet.Writer
	// leaf maps header position to parquet column index. Group fields are
	// ordered by name, not by header position.
	leaf []int
}

func (p *parquetBatch) open(columns []string) error {
	group := make(parquet.Group, len(columns))
	for _, c := range columns {
		group[c] = parquet.String()
	}
	if len(group) != len(columns) {
		return fmt.Errorf("duplicate column names in %v", columns)
	}
	schema := parquet.NewSchema("game", group)

	p.leaf = make([]int, len(columns))
	for i, c := range columns {
		col, ok := schema.Lookup(c)
		if !ok {
			return fmt.Errorf("column %q missing from parquet schema", c)
		}
		p.leaf[i] = col.ColumnIndex
	}

	p.w = parquet.NewWriter(p.out,
		schema,
		p.codec,
		parquet.CreatedBy("lichess-pgn-tags-to-csv", "1.0", "0"),
	)
	return nil
}

func (p *parquetBatch) write(rows []buffer.Row) error {
	prows := make([]parquet.Row, len(rows))
	for r, row := range rows {
		prow := make(parquet.Row, len(row))
		for i, v := range row {
			col := p.leaf[i]
			prow[col] = parquet.ByteArrayValue([]byte(v)).Level(0, 0, col)
		}
		prows[r] = prow
	}
	if _, err := p.w.WriteRows(prows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func (p *parquetBatch) close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}
