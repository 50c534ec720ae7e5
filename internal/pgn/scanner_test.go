package pgn

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
)

// recorder keeps every game as a list of "key=value" strings.
type recorder struct {
	games   [][]string
	current []string
	open    bool
	failAt  int
}

var errStop = stderrors.New("stop")

func (r *recorder) BeginGame() {
	r.current = nil
	r.open = true
}

func (r *recorder) Header(key, value []byte) {
	r.current = append(r.current, string(key)+"="+string(value))
}

func (r *recorder) EndGame() error {
	r.open = false
	r.games = append(r.games, r.current)
	if r.failAt > 0 && len(r.games) == r.failAt {
		return errStop
	}
	return nil
}

const twoGames = `[Event "Rated Blitz game"]
[Site "https://lichess.org/j1dkb5dw"]
[White "BFG9k"]
[Result "1-0"]

1. e4 e6 2. d4 b6 3. a3 Bb7 1-0

[Event "Rated Classical game"]
[Site "https://lichess.org/a9tcp02g"]
[Result "0-1"]

1. d4 { [%clk 0:03:00] } d5 0-1
`

func TestScan_Games(t *testing.T) {
	r := &recorder{}
	n, err := NewScanner(strings.NewReader(twoGames)).Scan(context.Background(), r)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if n != 2 || len(r.games) != 2 {
		t.Fatalf("Scan() = %d games, recorded %d, want 2", n, len(r.games))
	}

	want := [][]string{
		{"Event=Rated Blitz game", "Site=https://lichess.org/j1dkb5dw", "White=BFG9k", "Result=1-0"},
		{"Event=Rated Classical game", "Site=https://lichess.org/a9tcp02g", "Result=0-1"},
	}
	for g := range want {
		if strings.Join(r.games[g], "|") != strings.Join(want[g], "|") {
			t.Errorf("game %d = %v, want %v", g, r.games[g], want[g])
		}
	}
	if r.open {
		t.Error("last game was not ended")
	}
}

func TestScan_Lexical(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "escaped quote and backslash",
			input: "[White \"Bob \\\"the\\\" \\\\ Builder\"]\n\n1. e4 *\n",
			want:  [][]string{{`White=Bob "the" \ Builder`}},
		},
		{
			name:  "crlf line endings",
			input: "[Event \"x\"]\r\n[Site \"y\"]\r\n\r\n1. e4 *\r\n",
			want:  [][]string{{"Event=x", "Site=y"}},
		},
		{
			name:  "no trailing newline",
			input: "[Event \"x\"]\n\n1. e4 *",
			want:  [][]string{{"Event=x"}},
		},
		{
			name:  "headers only at end of input",
			input: "[Event \"x\"]\n[Result \"*\"]\n",
			want:  [][]string{{"Event=x", "Result=*"}},
		},
		{
			name:  "escape line ignored",
			input: "% generated\n[Event \"x\"]\n\n1. e4 *\n",
			want:  [][]string{{"Event=x"}},
		},
		{
			name:  "multi line comment containing a bracket line",
			input: "[Event \"x\"]\n\n1. e4 { a long\n[Event \"not a tag\"]\n} e5 *\n[Event \"y\"]\n\n1. d4 *\n",
			want:  [][]string{{"Event=x"}, {"Event=y"}},
		},
		{
			name:  "rest of line comment hides brace",
			input: "[Event \"x\"]\n\n1. e4 ; {\n[Event \"y\"]\n\n1. d4 *\n",
			want:  [][]string{{"Event=x"}, {"Event=y"}},
		},
		{
			name:  "several tags on one line",
			input: "[Event \"x\"] [Site \"y\"]\n\n*\n",
			want:  [][]string{{"Event=x", "Site=y"}},
		},
		{
			name:  "movetext without tags",
			input: "1. e4 e5 *\n",
			want:  [][]string{nil},
		},
		{
			name:  "empty value",
			input: "[WhiteTitle \"\"]\n\n*\n",
			want:  [][]string{{"WhiteTitle="}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			n, err := NewScanner(strings.NewReader(tt.input)).Scan(context.Background(), r)
			if err != nil {
				t.Fatalf("Scan() error: %v", err)
			}
			if n != len(tt.want) || len(r.games) != len(tt.want) {
				t.Fatalf("Scan() = %d games %v, want %v", n, r.games, tt.want)
			}
			for g := range tt.want {
				if strings.Join(r.games[g], "|") != strings.Join(tt.want[g], "|") {
					t.Errorf("game %d = %q, want %q", g, r.games[g], tt.want[g])
				}
			}
		})
	}
}

func TestScan_Malformed(t *testing.T) {
	input := "[Event \"x\"]\n[Broken\n[Site \"unterminated]\n[Result \"1-0\"]\n\n1-0\n"
	s := NewScanner(strings.NewReader(input))
	r := &recorder{}
	if _, err := s.Scan(context.Background(), r); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if s.Malformed() != 2 {
		t.Errorf("Malformed() = %d, want 2", s.Malformed())
	}
	if got := strings.Join(r.games[0], "|"); got != "Event=x|Result=1-0" {
		t.Errorf("game = %q", got)
	}
}

func TestScan_LongMovetextLine(t *testing.T) {
	long := strings.Repeat("1. e4 e5 ", defaultBufferSize/4)
	input := "[Event \"x\"]\n\n" + long + "\n[Event \"y\"]\n\n*\n"

	s := NewScanner(strings.NewReader(input))
	r := &recorder{}
	n, err := s.Scan(context.Background(), r)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Scan() = %d games, want 2", n)
	}
	if s.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead() = %d, want %d", s.BytesRead(), len(input))
	}
}

func TestScan_VisitorError(t *testing.T) {
	r := &recorder{failAt: 1}
	n, err := NewScanner(strings.NewReader(twoGames)).Scan(context.Background(), r)
	if !stderrors.Is(err, errStop) {
		t.Fatalf("Scan() error = %v, want errStop", err)
	}
	if len(r.games) != 1 {
		t.Errorf("recorded %d games after error, want 1", len(r.games))
	}
	if n != 1 {
		t.Errorf("Scan() = %d, want 1", n)
	}
}

func TestScan_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &recorder{}
	_, err := NewScanner(strings.NewReader(twoGames)).Scan(ctx, r)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Scan() error = %v, want context.Canceled", err)
	}
	if len(r.games) != 1 {
		t.Errorf("recorded %d games, want scanning to stop after the first", len(r.games))
	}
}
