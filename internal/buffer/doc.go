// Package buffer provides batching of output rows for columnar encoders.
//
// Parquet and Avro write rows in groups. A RowBuffer collects rows until a row
// or byte limit is reached, then the encoder drains it and writes the batch:
//
//	buf := buffer.New(8<<20, 4096)
//
//	if err := buf.Add(row); err != nil {
//	    return err
//	}
//	if buf.Full() {
//	    writeBatch(buf.Drain())
//	}
//
// A row larger than the byte limit is still accepted into an empty buffer so
// that no row is ever unwritable.
//
// # Statistics
//
//	stats := buf.Stats()
//	fmt.Printf("Rows: %d, Size: %d bytes\n", stats.Games, stats.SizeBytes)
//
// All methods are safe for concurrent use.
package buffer
