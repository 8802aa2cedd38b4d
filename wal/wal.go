// Package wal is the append-only audit trail of cloud submissions. Each
// line is one JSON entry; files rotate by size and are pruned by age.
package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// EntryType defines the type of WAL entry
type EntryType string

const (
	EntrySubmitted EntryType = "submitted"
	EntrySaved     EntryType = "saved"
	EntryRejected  EntryType = "rejected"
	EntryFailed    EntryType = "failed"
	EntryDeleted   EntryType = "deleted"
)

// Entry represents a single WAL entry
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	Type      EntryType       `json:"type"`
	CloudID   string          `json:"cloud_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
}

// Config controls file naming, rotation and retention
type Config struct {
	FilePrefix    string
	MaxFileSize   int64
	RetentionDays int
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		FilePrefix:    "cloudctl",
		MaxFileSize:   10 * 1024 * 1024,
		RetentionDays: 30,
	}
}

// WAL provides Write-Ahead Logging for audit and recovery
type WAL struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	size     int64
	sequence int64
	dir      string
	config   Config
	now      func() time.Time
}

// Open creates or opens a WAL in dir with the default config
func Open(dir string) (*WAL, error) {
	return OpenWithConfig(dir, DefaultConfig())
}

// OpenWithConfig creates or opens a WAL in dir
func OpenWithConfig(dir string, config Config) (*WAL, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}
	if config.FilePrefix == "" {
		config.FilePrefix = DefaultConfig().FilePrefix
	}

	w := &WAL{
		dir:    dir,
		config: config,
		now:    time.Now,
	}

	if err := w.loadSequence(); err != nil {
		return nil, err
	}
	if err := w.openFile(); err != nil {
		return nil, err
	}

	return w, nil
}

// Close flushes and closes the WAL
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Sequence returns the last written sequence number
func (w *WAL) Sequence() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sequence
}

// Append adds an entry to the WAL
func (w *WAL) Append(entryType EntryType, cloudID string, data any) error {
	return w.append(entryType, cloudID, data, nil)
}

// AppendError adds an error entry to the WAL
func (w *WAL) AppendError(entryType EntryType, cloudID string, data any, errToLog error) error {
	return w.append(entryType, cloudID, data, errToLog)
}

func (w *WAL) append(entryType EntryType, cloudID string, data any, errToLog error) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.sequence++
	entry := Entry{
		Timestamp: w.now(),
		Sequence:  w.sequence,
		Type:      entryType,
		CloudID:   cloudID,
		Data:      jsonData,
	}
	if errToLog != nil {
		entry.Error = errToLog.Error()
	}

	return w.writeEntry(entry)
}

func (w *WAL) writeEntry(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	line = append(line, '\n')

	if w.config.MaxFileSize > 0 && w.size > 0 && w.size+int64(len(line)) > w.config.MaxFileSize {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.writer.Write(line)
	w.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	// flush per entry so a crash loses at most the entry in flight
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return w.file.Sync()
}

func (w *WAL) rotate() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return err
	}
	return w.openFile()
}

// openFile opens a new file named after the next sequence so names sort
// in write order even within one second
func (w *WAL) openFile() error {
	filename := fmt.Sprintf("%s-%s-%012d.wal", w.config.FilePrefix, w.now().UTC().Format("20060102-150405"), w.sequence+1)
	path := filepath.Join(w.dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open WAL file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat WAL file: %w", err)
	}

	w.file = file
	w.writer = bufio.NewWriter(file)
	w.size = info.Size()
	return nil
}

// loadSequence continues numbering from the highest sequence on disk
func (w *WAL) loadSequence() error {
	for _, file := range listFiles(w.dir, w.config.FilePrefix) {
		last, err := lastSequence(file)
		if err != nil {
			return err
		}
		w.sequence = max(w.sequence, last)
	}
	return nil
}

func lastSequence(path string) (int64, error) {
	reader, err := NewReader(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = reader.Close() }()

	var last int64
	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return last, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		last = max(last, entry.Sequence)
	}
}

func listFiles(dir, prefix string) []string {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"-*.wal"))
	if err != nil {
		return nil
	}
	sort.Strings(files)
	return files
}

// Reader provides WAL replay functionality
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader creates a WAL reader for the specified file
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	return &Reader{
		scanner: scanner,
		file:    file,
	}, nil
}

// Next reads the next entry from the WAL
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay calls handler for every entry written after since, in file order
func Replay(dir, prefix string, since time.Time, handler func(*Entry) error) error {
	if prefix == "" {
		prefix = DefaultConfig().FilePrefix
	}

	for _, file := range listFiles(dir, prefix) {
		if err := replayFile(file, since, handler); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(path string, since time.Time, handler func(*Entry) error) error {
	reader, err := NewReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if entry.Timestamp.After(since) {
			if err := handler(entry); err != nil {
				return err
			}
		}
	}
}
