package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sync_journal (
	store_id  TEXT PRIMARY KEY,
	synced_at INTEGER NOT NULL,
	datasets  TEXT NOT NULL DEFAULT ''
)`

// SQLiteJournal keeps entries in a local SQLite database.
type SQLiteJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLiteJournal opens (creating if needed) the database at path.
func OpenSQLiteJournal(ctx context.Context, path string, l *zap.Logger) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sqlite journal path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open sqlite journal").
			WithDetail("path", path)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open sqlite journal").
			WithDetail("path", path)
	}

	j := &SQLiteJournal{
		db:     db,
		logger: logger.OrGlobal(l).With(zap.String("component", "sqlite_journal")),
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create sync journal table")
	}
	return j, nil
}

func (s *SQLiteJournal) Get(ctx context.Context, storeID string) (SyncEntry, bool, error) {
	var (
		syncedAt int64
		datasets string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT synced_at, datasets FROM sync_journal WHERE store_id = ?`, storeID,
	).Scan(&syncedAt, &datasets)
	if err == sql.ErrNoRows {
		return SyncEntry{}, false, nil
	}
	if err != nil {
		return SyncEntry{}, false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read sync journal").
			WithDetail("store", storeID)
	}

	e := SyncEntry{StoreID: storeID, SyncedAt: time.UnixMilli(syncedAt).UTC()}
	if datasets != "" {
		e.Datasets = strings.Split(datasets, "\n")
	}
	return e, true, nil
}

func (s *SQLiteJournal) Mark(ctx context.Context, entry SyncEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_journal (store_id, synced_at, datasets) VALUES (?, ?, ?)
		 ON CONFLICT(store_id) DO UPDATE SET synced_at = excluded.synced_at, datasets = excluded.datasets`,
		entry.StoreID, entry.SyncedAt.UnixMilli(), strings.Join(entry.Datasets, "\n"),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write sync journal").
			WithDetail("store", entry.StoreID)
	}
	return nil
}

// Invalidate deletes the store's row. When the table is missing or the
// database is corrupt, the table is dropped and recreated empty. Any other
// failure, such as a canceled context or a busy database, is returned and
// leaves the other stores' entries in place.
func (s *SQLiteJournal) Invalidate(ctx context.Context, storeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_journal WHERE store_id = ?`, storeID)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || !isSchemaOrCorruptError(err) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to invalidate sync journal entry").
			WithDetail("store", storeID)
	}

	s.logger.Warn("journal table unusable, recreating it", zap.String("store", storeID), zap.Error(err))
	if _, dropErr := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS sync_journal`); dropErr != nil {
		return errors.Wrap(dropErr, errors.ErrorTypeStorage, "failed to wipe sync journal")
	}
	if _, createErr := s.db.ExecContext(ctx, sqliteSchema); createErr != nil {
		return errors.Wrap(createErr, errors.ErrorTypeStorage, "failed to recreate sync journal")
	}
	return nil
}

// isSchemaOrCorruptError reports whether err means the journal table itself
// is unusable: it is missing, has the wrong shape, or the file is damaged.
func isSchemaOrCorruptError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3lib.SQLITE_CORRUPT, sqlite3lib.SQLITE_NOTADB:
		return true
	case sqlite3lib.SQLITE_ERROR:
		msg := sqliteErr.Error()
		return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
	}
	return false
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
