package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

func TestDefaultRouter_Route(t *testing.T) {
	ts := time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		basePath string
		source   game.Source
		ext      string
		want     string
	}{
		{
			name:     "kafka partition",
			basePath: "out",
			source:   game.Source{Name: "lichess-games", Partition: 3},
			ext:      ".csv",
			want:     "out/lichess-games/dt=2016-01-02/pid=3/games_20160102_030405_001.csv",
		},
		{
			name:     "no partition",
			basePath: "",
			source:   game.Source{Name: "replay", Partition: -1},
			ext:      ".parquet",
			want:     "replay/dt=2016-01-02/games_20160102_030405_001.parquet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(tt.basePath)
			if got := r.Route(tt.source, ts, tt.ext); got != tt.want {
				t.Errorf("Route() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultRouter_Sequence(t *testing.T) {
	r := NewRouter("out")
	ts := time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC)
	p0 := game.Source{Name: "games", Partition: 0}
	p1 := game.Source{Name: "games", Partition: 1}

	first := r.Route(p0, ts, ".csv")
	second := r.Route(p0, ts.Add(200*time.Millisecond), ".csv")
	other := r.Route(p1, ts, ".csv")
	later := r.Route(p0, ts.Add(time.Second), ".csv")

	if !strings.HasSuffix(first, "_001.csv") {
		t.Errorf("first = %q, want sequence 001", first)
	}
	if !strings.HasSuffix(second, "_002.csv") {
		t.Errorf("second = %q, want sequence 002", second)
	}
	if !strings.HasSuffix(other, "_001.csv") {
		t.Errorf("other partition = %q, want its own sequence", other)
	}
	if !strings.HasSuffix(later, "030406_001.csv") {
		t.Errorf("later = %q, want sequence reset", later)
	}
}

func TestCompositePolicy_ShouldRotate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		config PolicyConfig
		stats  game.Stats
		want   bool
	}{
		{
			name:   "empty output never rotates",
			config: PolicyConfig{MaxGamesPerFile: 1, MaxDurationSeconds: 1},
			stats:  game.Stats{FirstWriteTime: now.Add(-time.Hour)},
			want:   false,
		},
		{
			name:   "under all limits",
			config: PolicyConfig{MaxFileSizeMB: 1, MaxGamesPerFile: 100, MaxDurationSeconds: 60},
			stats:  game.Stats{Games: 10, SizeBytes: 1024, FirstWriteTime: now},
			want:   false,
		},
		{
			name:   "size reached",
			config: PolicyConfig{MaxFileSizeMB: 1},
			stats:  game.Stats{Games: 10, SizeBytes: 1024 * 1024},
			want:   true,
		},
		{
			name:   "games reached",
			config: PolicyConfig{MaxGamesPerFile: 10},
			stats:  game.Stats{Games: 10},
			want:   true,
		},
		{
			name:   "duration reached",
			config: PolicyConfig{MaxDurationSeconds: 60},
			stats:  game.Stats{Games: 1, FirstWriteTime: now.Add(-2 * time.Minute)},
			want:   true,
		},
		{
			name:   "no limits",
			config: PolicyConfig{},
			stats:  game.Stats{Games: 1_000_000, SizeBytes: 1 << 40, FirstWriteTime: now.Add(-24 * time.Hour)},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.config)
			if got := p.ShouldRotate(tt.stats); got != tt.want {
				t.Errorf("ShouldRotate() = %v, want %v", got, tt.want)
			}
		})
	}
}
