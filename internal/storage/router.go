package storage

import (
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// Ensure implementations satisfy interfaces.
var (
	_ storage.Router         = (*DefaultRouter)(nil)
	_ storage.RotationPolicy = (*CompositePolicy)(nil)
)

// DefaultRouter implements Hive-style partitioning for stream outputs.
type DefaultRouter struct {
	basePath string

	mu            sync.Mutex
	lastTimestamp map[string]string
	sequence      map[string]int
}

// NewRouter creates a router placing outputs under basePath.
func NewRouter(basePath string) *DefaultRouter {
	return &DefaultRouter{
		basePath:      basePath,
		lastTimestamp: make(map[string]string),
		sequence:      make(map[string]int),
	}
}

// Route returns basePath/topic/dt=YYYY-MM-DD/pid=N/games_YYYYMMDD_HHMMSS_NNN.ext.
// The sequence number counts outputs created for the same source within one
// second. Sources without a partition omit the pid segment.
func (r *DefaultRouter) Route(source game.Source, t time.Time, ext string) string {
	t = t.UTC()
	timestamp := t.Format("20060102_150405")

	r.mu.Lock()
	key := source.String()
	if r.lastTimestamp[key] == timestamp {
		r.sequence[key]++
	} else {
		r.sequence[key] = 1
		r.lastTimestamp[key] = timestamp
	}
	seq := r.sequence[key]
	r.mu.Unlock()

	dir := path.Join(r.basePath, source.Name, "dt="+t.Format("2006-01-02"))
	if source.Partition >= 0 {
		dir = path.Join(dir, fmt.Sprintf("pid=%d", source.Partition))
	}
	return path.Join(dir, fmt.Sprintf("games_%s_%03d%s", timestamp, seq, ext))
}

// PolicyConfig configures rotation behavior. Zero disables a limit.
type PolicyConfig struct {
	MaxFileSizeMB      int64
	MaxGamesPerFile    int
	MaxDurationSeconds int
}

// CompositePolicy rotates when any configured limit is reached.
type CompositePolicy struct {
	maxSizeBytes int64
	maxGames     int
	maxDuration  time.Duration
}

// NewPolicy creates a composite rotation policy.
func NewPolicy(config PolicyConfig) *CompositePolicy {
	return &CompositePolicy{
		maxSizeBytes: config.MaxFileSizeMB * 1024 * 1024,
		maxGames:     config.MaxGamesPerFile,
		maxDuration:  time.Duration(config.MaxDurationSeconds) * time.Second,
	}
}

// ShouldRotate returns true if any rotation condition is met. An output with
// no games is never rotated.
func (p *CompositePolicy) ShouldRotate(stats game.Stats) bool {
	if stats.Games == 0 {
		return false
	}
	if p.maxSizeBytes > 0 && stats.SizeBytes >= p.maxSizeBytes {
		return true
	}
	if p.maxGames > 0 && stats.Games >= p.maxGames {
		return true
	}
	if p.maxDuration > 0 && !stats.FirstWriteTime.IsZero() {
		return time.Since(stats.FirstWriteTime) >= p.maxDuration
	}
	return false
}
