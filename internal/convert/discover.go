package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
)

// DefaultPatterns match plain and compressed PGN files.
var DefaultPatterns = []string{"*.pgn", "*.pgn.bz2", "*.pgn.gz", "*.pgn.zst"}

// Discover returns the files directly inside dir whose names match any of
// patterns, sorted by name. Subdirectories are not searched.
func Discover(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}

	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := matchAny(entry.Name(), patterns)
		if err != nil {
			return nil, &errors.ConfigError{
				Field:  "input.patterns",
				Value:  strings.Join(patterns, ","),
				Reason: "invalid glob pattern",
				Err:    err,
			}
		}
		if matched {
			inputs = append(inputs, filepath.Join(dir, entry.Name()))
		}
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w in %s", errors.ErrNoInputs, dir)
	}
	return inputs, nil
}

func matchAny(name string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, name)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// OutputName derives the output file name for input: the directory and any
// compression and .pgn extensions are dropped and ext is appended.
//
//	lichess_db_standard_rated_2016-01.pgn.bz2 -> lichess_db_standard_rated_2016-01.csv.bz2
func OutputName(input, ext string) string {
	base := filepath.Base(input)
	base = encoder.TrimCompressionExtension(base)
	base = strings.TrimSuffix(base, ".pgn")
	return base + ext
}

// IsVariant reports whether name looks like a lichess Chess960 database.
func IsVariant(name string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(name)), "chess960")
}
