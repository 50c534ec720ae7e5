package encoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
)

// Stream compression codecs for CSV output and PGN input.
const (
	CompressionNone  = "none"
	CompressionBzip2 = "bzip2"
	CompressionGzip  = "gzip"
	CompressionZstd  = "zstd"
)

// compressionExtensions maps stream codecs to file name suffixes.
var compressionExtensions = map[string]string{
	CompressionBzip2: ".bz2",
	CompressionGzip:  ".gz",
	CompressionZstd:  ".zst",
}

// CompressionExtension returns the file suffix for a stream codec, or "" for
// none.
func CompressionExtension(compression string) string {
	return compressionExtensions[normalizeCompression(compression)]
}

// CompressionFromExtension returns the stream codec implied by a file name,
// or CompressionNone.
func CompressionFromExtension(name string) string {
	for codec, ext := range compressionExtensions {
		if strings.HasSuffix(name, ext) {
			return codec
		}
	}
	return CompressionNone
}

// TrimCompressionExtension removes a known compression suffix from name.
func TrimCompressionExtension(name string) string {
	if ext := CompressionExtension(CompressionFromExtension(name)); ext != "" {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func normalizeCompression(compression string) string {
	switch strings.ToLower(compression) {
	case "", "none", "uncompressed":
		return CompressionNone
	case "bzip2", "bz2":
		return CompressionBzip2
	case "gzip", "gz":
		return CompressionGzip
	case "zstd", "zst":
		return CompressionZstd
	default:
		return strings.ToLower(compression)
	}
}

// NewCompressWriter wraps w with a stream compressor. Closing the returned
// writer flushes the compressor but does not close w.
func NewCompressWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch normalizeCompression(compression) {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionBzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("%w: compression %q", errors.ErrUnsupportedFormat, compression)
	}
}

// NewDecompressReader wraps r with the decompressor implied by name's
// extension. Closing the returned reader does not close r.
func NewDecompressReader(r io.Reader, name string) (io.ReadCloser, error) {
	switch CompressionFromExtension(name) {
	case CompressionBzip2:
		return bzip2.NewReader(r, nil)
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
