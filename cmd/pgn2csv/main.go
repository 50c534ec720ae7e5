// Command pgn2csv converts the tag pairs of lichess PGN game dumps into CSV,
// Parquet or Avro rows, from files or from a Kafka stream.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
