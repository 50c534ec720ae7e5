// Package encoder provides the output formats for transcoded game rows.
//
// # Supported Formats
//
//   - CSV: comma separated rows, optionally bzip2, gzip or zstd compressed
//   - Parquet: columnar format for analytics, one string column per label
//   - Avro: OCF container with an embedded record schema
//
// # Encoder Factory
//
// Use Factory to create encoder instances:
//
//	factory := encoder.NewFactory(game.FormatCSV, "bzip2")
//	enc, err := factory.CreateEncoder()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Sinks
//
// An encoder opens one sink per output. The first row a sink receives is the
// header; Parquet and Avro take their column names from it and reject later
// rows with a different number of values (ErrColumnCount).
//
//	sink, err := enc.NewSink(w)
//	...
//	defer sink.Close()
//
// Close flushes buffered rows and finalizes the format but never closes w.
//
// # Compression Options
//
//	CSV:     "none", "bzip2", "gzip", "zstd"
//	Parquet: "snappy" (default), "gzip", "lz4", "zstd", "none"
//	Avro:    "deflate" (default), "snappy", "none"
//
// CSV compression is a stream around the whole file and changes the file
// extension (".csv.bz2"). Parquet and Avro compress internally.
//
// # Thread Safety
//
// Encoders are safe for concurrent use. A sink belongs to a single writer.
package encoder
