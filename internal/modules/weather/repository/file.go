package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"meteolink/internal/modules/weather/types"
)

// fileRepository keeps the history as one indented JSON array on disk. The
// mutex serializes the read-modify-write cycle within the process; the file
// itself is replaced atomically with a rename.
type fileRepository struct {
	mu       sync.Mutex
	path     string
	capacity int
}

func NewFileRepository(path string, capacity int) HistoryRepository {
	return &fileRepository{path: path, capacity: capacityOrDefault(capacity)}
}

func (r *fileRepository) Append(ctx context.Context, rec types.WeatherRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	records, corrupt := r.load()
	if corrupt {
		if err := r.preserveCorrupt(); err != nil {
			return 0, err
		}
	}
	records = keepNewest(append(records, rec), r.capacity)
	if err := r.save(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *fileRepository) LoadAll(ctx context.Context) []types.WeatherRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, _ := r.load()
	return records
}

func (r *fileRepository) LoadLatest(ctx context.Context) (types.WeatherRecord, bool) {
	records := r.LoadAll(ctx)
	if len(records) == 0 {
		return types.WeatherRecord{}, false
	}
	return records[len(records)-1], true
}

// Ping checks that the directory holding the history file is usable.
func (r *fileRepository) Ping(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("history dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("history dir %s is not a directory", dir)
	}
	return nil
}

// load reads the history. corrupt reports a non-empty file that did not
// decode; its contents must not be overwritten without a copy.
func (r *fileRepository) load() (records []types.WeatherRecord, corrupt bool) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("history read failed, treating as empty", "path", r.path, "error", err)
		}
		return []types.WeatherRecord{}, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []types.WeatherRecord{}, false
	}
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("history file is corrupt, treating as empty", "path", r.path, "error", err)
		return []types.WeatherRecord{}, true
	}
	if records == nil {
		records = []types.WeatherRecord{}
	}
	return records, false
}

// preserveCorrupt renames the current history file to
// <path>.corrupt-<UTC timestamp> before it gets replaced.
func (r *fileRepository) preserveCorrupt() error {
	dst := r.path + ".corrupt-" + time.Now().UTC().Format("20060102T150405.000000000Z")
	if err := os.Rename(r.path, dst); err != nil {
		return fmt.Errorf("preserve corrupt history: %w", err)
	}
	slog.Warn("corrupt history file moved aside", "path", r.path, "moved_to", dst)
	return nil
}

func (r *fileRepository) save(records []types.WeatherRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("remove temp history file", "path", tmpName, "error", err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		cleanup()
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
