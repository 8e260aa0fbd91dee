// Package sheetdb is a typed data-access layer over a remote spreadsheet.
//
// Entities described by a schema.Entry are read from and written to sheet
// rows. Reads go through a shared TTL cache; every successful write clears
// the whole cache and invalidates the store's sync journal entry. Update
// and Delete locate their row with a fresh read immediately before the
// mutation, because sheet rows have no stable identifiers.
//
// Two concurrent structural mutations (for example two deletes) on the same
// sheet can race: a row number computed before the other delete lands may
// point at a shifted row afterwards. No lock or version check prevents it.
package sheetdb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/cache"
	"github.com/ajitpratap0/sheetdb/pkg/clients"
	"github.com/ajitpratap0/sheetdb/pkg/config"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
	"github.com/ajitpratap0/sheetdb/pkg/sheets"
)

// Transport operation names, also used as metric labels.
const (
	opGet       = "get"
	opBatchGet  = "batch_get"
	opAppend    = "append"
	opUpdate    = "update"
	opDeleteRow = "delete_row"
	opMetadata  = "metadata"
)

// DefaultCacheTTL is how long reads stay cached when no cache is supplied.
const DefaultCacheTTL = 5 * time.Minute

// DB binds a Store to its transport, read cache and sync journal.
type DB struct {
	store          sheets.Store
	transport      *clients.Transport
	cache          *cache.Cache
	journal        cache.Journal
	logger         *zap.Logger
	maxConcurrency int
	now            func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithCache shares an existing cache.
func WithCache(c *cache.Cache) Option {
	return func(db *DB) { db.cache = c }
}

// WithJournal sets the sync journal. The default keeps it in memory.
func WithJournal(j cache.Journal) Option {
	return func(db *DB) { db.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) { db.logger = logger.OrGlobal(l).With(zap.String("component", "sheetdb")) }
}

// WithMaxConcurrency bounds how many stores FetchStores reads at once.
func WithMaxConcurrency(n int) Option {
	return func(db *DB) { db.maxConcurrency = n }
}

// WithClock sets the clock used for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// New creates a DB over store. Every remote call goes through transport.
func New(store sheets.Store, transport *clients.Transport, opts ...Option) *DB {
	db := &DB{
		store:          store,
		transport:      transport,
		logger:         zap.NewNop(),
		maxConcurrency: 4,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.cache == nil {
		db.cache = cache.New(DefaultCacheTTL)
	}
	if db.journal == nil {
		db.journal = cache.NewMemoryJournal()
	}
	return db
}

// Open wires a DB from configuration: a GoogleStore authenticated by creds,
// a transport with the configured retry policy, the read cache and the
// configured journal backend.
func Open(ctx context.Context, cfg *config.BaseConfig, creds auth.CredentialSource, l *zap.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	l = logger.OrGlobal(l)

	store, err := sheets.NewGoogleStore(ctx, creds, sheets.OptionsFromConfig(cfg.Store, l))
	if err != nil {
		return nil, err
	}
	journal, err := cache.OpenJournal(ctx, cfg.Journal, l)
	if err != nil {
		return nil, err
	}

	return New(store, clients.NewTransportFromConfig(creds, cfg, l),
		WithCache(cache.New(cfg.Cache.TTL)),
		WithJournal(journal),
		WithLogger(l),
		WithMaxConcurrency(cfg.Performance.MaxConcurrency),
	), nil
}

// Close releases the journal.
func (db *DB) Close() error {
	return db.journal.Close()
}

// ClearCache drops every cached read.
func (db *DB) ClearCache() {
	db.cache.Clear()
}

// InvalidateJournal removes the sync journal entry of storeID.
func (db *DB) InvalidateJournal(ctx context.Context, storeID string) error {
	if err := db.journal.Invalidate(ctx, storeID); err != nil {
		return errors.WrapKeep(err, errors.ErrorTypeStorage, "failed to invalidate sync journal").
			WithDetail("store", storeID)
	}
	return nil
}

// LastSync returns the journal entry recorded by the last SyncStore of storeID.
func (db *DB) LastSync(ctx context.Context, storeID string) (cache.SyncEntry, bool, error) {
	return db.journal.Get(ctx, storeID)
}

// afterWrite runs the invalidation every successful mutation requires.
func (db *DB) afterWrite(ctx context.Context, storeID string) error {
	db.cache.Clear()
	if err := db.InvalidateJournal(ctx, storeID); err != nil {
		logger.WithContext(ctx, db.logger).Error("write applied but journal invalidation failed", zap.Error(err))
		return errors.WrapKeep(err, errors.ErrorTypeStorage, "write applied but sync journal was not invalidated")
	}
	return nil
}
