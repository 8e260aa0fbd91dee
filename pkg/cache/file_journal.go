package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
)

// FileJournal stores all entries as one JSON object in a file.
type FileJournal struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileJournal returns a journal backed by path. The file is created on
// the first Mark.
func NewFileJournal(path string, l *zap.Logger) *FileJournal {
	return &FileJournal{
		path:   path,
		logger: logger.OrGlobal(l).With(zap.String("component", "file_journal")),
	}
}

func (f *FileJournal) Get(_ context.Context, storeID string) (SyncEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return SyncEntry{}, false, err
	}
	e, ok := entries[storeID]
	return e, ok, nil
}

func (f *FileJournal) Mark(_ context.Context, entry SyncEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		f.logger.Warn("journal unreadable, starting a new one", zap.Error(err))
		entries = make(map[string]SyncEntry)
	}
	entries[entry.StoreID] = entry
	return f.save(entries)
}

func (f *FileJournal) Invalidate(_ context.Context, storeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		f.logger.Warn("journal unreadable, wiping it", zap.String("store", storeID), zap.Error(err))
		if rmErr := os.Remove(f.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return errors.Wrap(rmErr, errors.ErrorTypeStorage, "failed to wipe sync journal").
				WithDetail("path", f.path)
		}
		return nil
	}
	if _, ok := entries[storeID]; !ok {
		return nil
	}
	delete(entries, storeID)
	return f.save(entries)
}

func (f *FileJournal) Close() error { return nil }

func (f *FileJournal) load() (map[string]SyncEntry, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]SyncEntry), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read sync journal").
			WithDetail("path", f.path)
	}

	entries := make(map[string]SyncEntry)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "sync journal is corrupt").
			WithDetail("path", f.path)
	}
	return entries, nil
}

func (f *FileJournal) save(entries map[string]SyncEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to encode sync journal")
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create journal directory").
				WithDetail("path", dir)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write sync journal").
			WithDetail("path", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to replace sync journal").
			WithDetail("path", f.path)
	}
	return nil
}
