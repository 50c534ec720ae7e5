package convert

import (
	"testing"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/transcoder"
)

func TestTranscoders_For(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		input       string
		wantVariant bool
	}{
		{name: "standard", opts: Options{AutoVariant: true}, input: "lichess_db_standard_rated_2016-01.pgn"},
		{name: "detected", opts: Options{AutoVariant: true}, input: "lichess_db_chess960_rated_2016-01.pgn.bz2", wantVariant: true},
		{name: "detected topic", opts: Options{AutoVariant: true}, input: "lichess-chess960-games", wantVariant: true},
		{name: "detection off", input: "lichess_db_chess960_rated_2016-01.pgn"},
		{name: "forced", opts: Options{Variant: true}, input: "games.pgn", wantVariant: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTranscoders(tt.opts)
			if err != nil {
				t.Fatalf("NewTranscoders() error = %v", err)
			}
			if got := ts.For(tt.input).Variant(); got != tt.wantVariant {
				t.Errorf("For(%q).Variant() = %v, want %v", tt.input, got, tt.wantVariant)
			}
		})
	}
}

func TestTranscoders_CustomTagsShareSchema(t *testing.T) {
	ts, err := NewTranscoders(Options{Tags: []string{"Site", "FEN"}, Mode: transcoder.Minified, AutoVariant: true})
	if err != nil {
		t.Fatalf("NewTranscoders() error = %v", err)
	}
	standard := ts.For("games.pgn")
	variant := ts.For("chess960.pgn")
	if standard.Schema() != variant.Schema() {
		t.Error("custom tags should give one schema for both transcoders")
	}
	if ts.Mode() != transcoder.Minified {
		t.Errorf("Mode() = %v, want minified", ts.Mode())
	}
}
