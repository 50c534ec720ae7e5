package kafka

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/validator"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

const testPGN = "[Event \"Rated Blitz game\"]\n[Site \"https://lichess.org/abc123\"]\n\n1. e4 e5 1-0\n"

func structuredEvent(t *testing.T, eventType string) []byte {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("game-1")
	e.SetSource("pgn2csv/test")
	e.SetType(eventType)
	if err := e.SetData(game.ContentTypePGN, []byte(testPGN)); err != nil {
		t.Fatal(err)
	}
	value, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return value
}

func TestDecoder_Decode(t *testing.T) {
	d := &decoder{validator: validator.NewCloudEventsValidator()}

	tests := []struct {
		name    string
		value   []byte
		headers map[string]string
		wantID  string
	}{
		{name: "raw pgn", value: []byte(testPGN)},
		{name: "structured event", value: structuredEvent(t, game.EventTypeGames), wantID: "game-1"},
		{
			name:  "binary event",
			value: []byte(testPGN),
			headers: map[string]string{
				headerID:          "game-2",
				headerSource:      "pgn2csv/test",
				headerType:        game.EventTypeGames,
				headerSpecVersion: "1.0",
				headerContentType: game.ContentTypePGN,
			},
			wantID: "game-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgn, id, err := d.decode(tt.value, tt.headers)
			if err != nil {
				t.Fatalf("decode() error = %v", err)
			}
			if string(pgn) != testPGN {
				t.Errorf("pgn = %q, want %q", pgn, testPGN)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestDecoder_DecodeErrors(t *testing.T) {
	d := &decoder{validator: validator.NewCloudEventsValidator()}

	tests := []struct {
		name           string
		value          []byte
		headers        map[string]string
		wantValidation bool
	}{
		{name: "empty", value: []byte("  \n")},
		{name: "broken json", value: []byte(`{"specversion": `)},
		{name: "unexpected type", value: structuredEvent(t, "com.library.books.issued"), wantValidation: true},
		{
			name:           "binary without source",
			value:          []byte(testPGN),
			headers:        map[string]string{headerID: "game-3", headerType: game.EventTypeGames},
			wantValidation: true,
		},
		{
			name:           "binary json payload",
			value:          []byte(testPGN),
			headers:        map[string]string{headerID: "game-4", headerSource: "s", headerType: game.EventTypeGames, headerContentType: "application/json"},
			wantValidation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := d.decode(tt.value, tt.headers)
			if err == nil {
				t.Fatal("decode() error = nil, want error")
			}
			var ve *errors.ValidationError
			if got := stderrors.As(err, &ve); got != tt.wantValidation {
				t.Errorf("ValidationError = %v, want %v (err = %v)", got, tt.wantValidation, err)
			}
		})
	}
}

func TestSpecVersion(t *testing.T) {
	tests := map[string]string{
		"":    cloudevents.VersionV1,
		"1.0": cloudevents.VersionV1,
		"0.3": cloudevents.VersionV03,
		"2.0": cloudevents.VersionV1,
	}
	for in, want := range tests {
		if got := specVersion(in); got != want {
			t.Errorf("specVersion(%q) = %q, want %q", in, got, want)
		}
	}
}
