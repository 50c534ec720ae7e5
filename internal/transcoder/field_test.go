package transcoder

import (
	"testing"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/schema"
)

func TestTranscode_Minified(t *testing.T) {
	tr := New(schema.Default(true), Minified, true)
	std := New(schema.Default(false), Minified, false)

	tests := []struct {
		name       string
		tr         *Transcoder
		tag        string
		value      string
		wantFirst  string
		wantSecond string
	}{
		{"tournament link", std, "Event", "Rated Blitz tournament https://lichess.org/tournament/O5dkHvDT", "O5dkHvDT", ""},
		{"event without link", std, "Event", "Rated Blitz game", "", ""},
		{"game link", std, "Site", "https://lichess.org/PpwPOZMq", "PpwPOZMq", ""},
		{"provisional rating", std, "WhiteElo", "1500?", "1500", "1"},
		{"established rating", std, "BlackElo", "2210", "2210", "0"},
		{"empty rating", std, "BlackElo", "", "", "0"},
		{"positive diff", std, "WhiteRatingDiff", "+12", "12", ""},
		{"negative diff", std, "BlackRatingDiff", "-9", "-9", ""},
		{"zero diff", std, "BlackRatingDiff", "+0", "0", ""},
		{"time control", std, "TimeControl", "300+0", "300", "0"},
		{"correspondence", std, "TimeControl", "-", "", ""},
		{"time control without increment", std, "TimeControl", "600", "600", ""},
		{"title", std, "WhiteTitle", "IM", "2", ""},
		{"unknown title", std, "BlackTitle", "XX", "", ""},
		{"eco", std, "ECO", "C50", "250", ""},
		{"termination", std, "Termination", "Abandoned", "2", ""},
		{"unknown termination", std, "Termination", "Other", "", ""},
		{"result", std, "Result", "0-1", "B", ""},
		{"plain tag", std, "White", "alice", "alice", ""},
		{"chess960 start", tr, "FEN", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "518", ""},
		{"chess960 unknown rank", tr, "FEN", "8/8/8/8/8/8/8/8 w - - 0 1", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := tt.tr.Schema().Index(tt.tag)
			if !ok {
				t.Fatalf("tag %s not in schema", tt.tag)
			}
			first, second := tt.tr.Transcode(i, []byte(tt.value))
			if string(first) != tt.wantFirst {
				t.Errorf("first = %q, want %q", first, tt.wantFirst)
			}
			if tt.tr.Width(i) == 2 && string(second) != tt.wantSecond {
				t.Errorf("second = %q, want %q", second, tt.wantSecond)
			}
		})
	}
}

func TestTranscode_Verbatim(t *testing.T) {
	tr := New(schema.Default(false), Verbatim, false)
	for i := 0; i < tr.Schema().Len(); i++ {
		if tr.Width(i) != 1 {
			t.Errorf("Width(%d) = %d in verbatim mode, want 1", i, tr.Width(i))
		}
		first, _ := tr.Transcode(i, []byte("1500?"))
		if string(first) != "1500?" {
			t.Errorf("Transcode(%d) = %q, want value unchanged", i, first)
		}
	}
	if tr.Columns() != tr.Schema().Len() {
		t.Errorf("Columns() = %d, want %d", tr.Columns(), tr.Schema().Len())
	}
}

func TestFENWithoutVariant(t *testing.T) {
	s, _ := schema.New([]string{"FEN"})
	tr := New(s, Minified, false)
	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	if first, _ := tr.Transcode(0, []byte(fen)); string(first) != fen {
		t.Errorf("Transcode(FEN) = %q, want unchanged outside Chess960", first)
	}
	if got := tr.Labels(0); len(got) != 1 || got[0] != "FEN" {
		t.Errorf("Labels(FEN) = %v, want [FEN]", got)
	}
}

func TestColumns_Minified(t *testing.T) {
	tests := []struct {
		variant bool
		want    int
	}{
		// WhiteElo, BlackElo and TimeControl each add a column.
		{false, 20},
		{true, 20},
	}
	for _, tt := range tests {
		if got := New(schema.Default(tt.variant), Minified, tt.variant).Columns(); got != tt.want {
			t.Errorf("Columns(variant=%v) = %d, want %d", tt.variant, got, tt.want)
		}
	}
}

func TestModeOf(t *testing.T) {
	if ModeOf(true) != Minified || ModeOf(false) != Verbatim {
		t.Error("ModeOf mapping is wrong")
	}
}
