package wal

import (
	"fmt"
	"os"
	"time"
)

// CleanupStats tracks cleanup operation results
type CleanupStats struct {
	FilesRemoved  int
	BytesFreed    int64
	OldestRemoved time.Time
	NewestRemoved time.Time
}

// Cleanup removes WAL files older than the retention period. A zero
// retention keeps everything.
func Cleanup(dir string, config Config) (CleanupStats, error) {
	stats := CleanupStats{}
	if config.RetentionDays <= 0 {
		return stats, nil
	}
	if config.FilePrefix == "" {
		config.FilePrefix = DefaultConfig().FilePrefix
	}

	cutoff := time.Now().AddDate(0, 0, -config.RetentionDays)
	for _, file := range listFiles(dir, config.FilePrefix) {
		info, err := os.Stat(file)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(file); err != nil {
			return stats, fmt.Errorf("failed to remove %s: %w", file, err)
		}

		modTime := info.ModTime()
		if stats.FilesRemoved == 0 || modTime.Before(stats.OldestRemoved) {
			stats.OldestRemoved = modTime
		}
		if modTime.After(stats.NewestRemoved) {
			stats.NewestRemoved = modTime
		}
		stats.FilesRemoved++
		stats.BytesFreed += info.Size()
	}

	return stats, nil
}

// Prune applies the WAL's own retention to its directory
func (w *WAL) Prune() (CleanupStats, error) {
	return Cleanup(w.dir, w.config)
}
