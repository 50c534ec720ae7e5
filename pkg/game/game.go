// Package game defines the event contract between a PGN header scanner and the
// components that consume its games.
//
// A scanner reports each game as BeginGame, zero or more Header calls in the
// order the tags appear in the file, and a final EndGame. Keys and values are
// raw bytes straight from the input and are only valid for the duration of the
// call; consumers that keep them must copy.
package game

import (
	"fmt"
	"time"
)

// Visitor receives the header events of a stream of games.
type Visitor interface {
	// BeginGame marks the start of a new game.
	BeginGame()

	// Header delivers one tag pair of the current game.
	Header(key, value []byte)

	// EndGame marks the end of the current game. A non-nil error stops the
	// scan and is returned to the scanner's caller.
	EndGame() error
}

// Source identifies where a stream of games comes from.
type Source struct {
	// Name is the input file path or the Kafka topic.
	Name string
	// Partition is the Kafka partition, or -1 for files.
	Partition int32
}

// String returns "name" for files and "name-partition" for Kafka partitions.
func (s Source) String() string {
	if s.Partition < 0 {
		return s.Name
	}
	return fmt.Sprintf("%s-%d", s.Name, s.Partition)
}

// Stats summarizes what was written to one output.
type Stats struct {
	Games          int
	SizeBytes      int64
	FirstWriteTime time.Time
	LastWriteTime  time.Time
}

// Format is the tabular output format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
)

// CloudEvents attributes of a PGN game message.
const (
	// EventTypeGames is the CloudEvent type of a message carrying PGN games.
	EventTypeGames = "org.lichess.games.pgn"
	// ContentTypePGN is the data content type of PGN text.
	ContentTypePGN = "application/x-chess-pgn"
)
