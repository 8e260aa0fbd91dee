package sheetdb

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/sheetdb/pkg/cache"
	"github.com/ajitpratap0/sheetdb/pkg/clients"
	"github.com/ajitpratap0/sheetdb/pkg/codec"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
	"github.com/ajitpratap0/sheetdb/pkg/metrics"
	"github.com/ajitpratap0/sheetdb/pkg/schema"
	"github.com/ajitpratap0/sheetdb/pkg/sheets"
)

// Fetch reads every row of entry's range and decodes it. The raw read is
// cached; the first row of the range is the header row and is skipped.
func Fetch[T any](ctx context.Context, db *DB, entry *schema.Entry[T]) ([]T, error) {
	if err := checkEntry(entry); err != nil {
		return nil, err
	}
	sheet := entry.SheetName()
	ctx = logger.ContextWith(ctx, entry.StoreID, sheet, "fetch")

	values, err := db.values(ctx, entry.StoreID, entry.SheetRange)
	if err != nil {
		return nil, err
	}
	headers, err := db.HeaderMap(ctx, entry.StoreID, sheet)
	if err != nil {
		return nil, err
	}
	return decodeRows(values, entry, headers)
}

func (db *DB) values(ctx context.Context, storeID, a1 string) ([][]any, error) {
	key := cache.ValuesKey(storeID, a1)
	if v, ok := db.cache.Get(key); ok {
		return v.([][]any), nil
	}

	vr, err := db.readRange(ctx, storeID, a1)
	if err != nil {
		return nil, err
	}
	db.cache.Put(key, vr.Values)
	return vr.Values, nil
}

// readRange always goes to the remote store.
func (db *DB) readRange(ctx context.Context, storeID, a1 string) (sheets.ValueRange, error) {
	vr, err := clients.Execute(ctx, db.transport, opGet, func(ctx context.Context) (sheets.ValueRange, error) {
		return db.store.Get(ctx, storeID, a1)
	})
	if err != nil {
		return sheets.ValueRange{}, errors.WrapKeep(err, errors.ErrorTypeInternal, "failed to read range").
			WithDetail("store", storeID).
			WithDetail("range", a1)
	}
	return vr, nil
}

func decodeRows[T any](values [][]any, entry *schema.Entry[T], headers codec.HeaderMap) ([]T, error) {
	if len(values) <= 1 {
		return []T{}, nil
	}
	out := make([]T, 0, len(values)-1)
	for i, row := range values[1:] {
		entity, err := codec.Decode(row, entry.Columns, headers, entry.Validator)
		if err != nil {
			return nil, errors.WrapKeep(err, errors.ErrorTypeValidation, "failed to decode row").
				WithDetail("store", entry.StoreID).
				WithDetail("range", entry.SheetRange).
				WithDetail("row", codec.PhysicalRow(i))
		}
		out = append(out, entity)
	}
	metrics.RowsDecoded.WithLabelValues(entry.SheetName()).Add(float64(len(out)))
	return out, nil
}

func checkEntry[T any](entry *schema.Entry[T]) error {
	if entry == nil {
		return errors.New(errors.ErrorTypeConfig, "schema entry is nil")
	}
	if err := entry.Check(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid schema entry")
	}
	return nil
}

// Dataset is one entity type requested in a batch read. Build it with
// NewDataset so the decoder keeps the entity type.
type Dataset struct {
	Key     string
	StoreID string
	Range   string
	Sheet   string

	check  func() error
	decode func(values [][]any, headers codec.HeaderMap) (any, error)
}

// NewDataset describes entry under key for BatchFetch.
func NewDataset[T any](key string, entry *schema.Entry[T]) Dataset {
	return Dataset{
		Key:     key,
		StoreID: entry.StoreID,
		Range:   entry.SheetRange,
		Sheet:   entry.SheetName(),
		check:   func() error { return checkEntry(entry) },
		decode: func(values [][]any, headers codec.HeaderMap) (any, error) {
			return decodeRows(values, entry, headers)
		},
	}
}

// BatchResult holds the decoded rows of each dataset by key.
type BatchResult map[string]any

// Rows returns the entities decoded for key. It returns nil when key was not
// requested or holds another entity type.
func Rows[T any](r BatchResult, key string) []T {
	rows, _ := r[key].([]T)
	return rows
}

// Keys returns the dataset keys present in r, sorted.
func (r BatchResult) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BatchFetch reads every dataset of one store with a single multi-range
// request. The raw response is cached as one unit under the sorted range
// set. Any failure, including a single row failing validation, fails the
// whole call.
func (db *DB) BatchFetch(ctx context.Context, storeID string, datasets []Dataset) (BatchResult, error) {
	return db.batchFetch(ctx, storeID, datasets, false)
}

func (db *DB) batchFetch(ctx context.Context, storeID string, datasets []Dataset, fresh bool) (BatchResult, error) {
	ctx = logger.ContextWith(ctx, storeID, "", "batch_fetch")
	if len(datasets) == 0 {
		return BatchResult{}, nil
	}

	ranges := make([]string, len(datasets))
	seen := make(map[string]bool, len(datasets))
	for i, ds := range datasets {
		if ds.decode == nil {
			return nil, errors.New(errors.ErrorTypeConfig, "dataset was not built with NewDataset").
				WithDetail("dataset", ds.Key)
		}
		if err := ds.check(); err != nil {
			return nil, errors.WrapKeep(err, errors.ErrorTypeConfig, "invalid dataset").WithDetail("dataset", ds.Key)
		}
		if ds.StoreID != storeID {
			return nil, errors.New(errors.ErrorTypeConfig, "dataset belongs to another store").
				WithDetail("dataset", ds.Key).
				WithDetail("store", storeID)
		}
		if seen[ds.Key] {
			return nil, errors.New(errors.ErrorTypeConfig, "duplicate dataset key").WithDetail("dataset", ds.Key)
		}
		seen[ds.Key] = true
		ranges[i] = ds.Range
	}

	key := cache.BatchKey(storeID, ranges)
	var valueRanges []sheets.ValueRange
	if v, ok := db.cache.Get(key); ok && !fresh {
		valueRanges = v.([]sheets.ValueRange)
	} else {
		var err error
		valueRanges, err = clients.Execute(ctx, db.transport, opBatchGet, func(ctx context.Context) ([]sheets.ValueRange, error) {
			return db.store.BatchGet(ctx, storeID, ranges)
		})
		if err != nil {
			return nil, errors.WrapKeep(err, errors.ErrorTypeInternal, "batch read failed").
				WithDetail("store", storeID).
				WithDetail("ranges", len(ranges))
		}
		db.cache.Put(key, valueRanges)
	}

	matched, err := matchRanges(datasets, valueRanges)
	if err != nil {
		return nil, err
	}

	result := make(BatchResult, len(datasets))
	for i, ds := range datasets {
		headers, err := db.headerMap(ctx, storeID, ds.Sheet, fresh)
		if err != nil {
			return nil, err
		}
		rows, err := ds.decode(matched[i].Values, headers)
		if err != nil {
			return nil, errors.WrapKeep(err, errors.ErrorTypeValidation, "failed to decode dataset").
				WithDetail("dataset", ds.Key)
		}
		result[ds.Key] = rows
	}

	logger.WithContext(ctx, db.logger).Debug("batch fetched", zap.Int("datasets", len(datasets)))
	return result, nil
}

// matchRanges pairs each dataset with the returned value range of its
// sheet. The range at the same position is preferred; otherwise the first
// unclaimed range naming the same sheet is used.
func matchRanges(datasets []Dataset, valueRanges []sheets.ValueRange) ([]sheets.ValueRange, error) {
	out := make([]sheets.ValueRange, len(datasets))
	done := make([]bool, len(datasets))
	claimed := make([]bool, len(valueRanges))

	for i, ds := range datasets {
		if i < len(valueRanges) && schema.SheetOf(valueRanges[i].Range) == ds.Sheet {
			out[i], done[i], claimed[i] = valueRanges[i], true, true
		}
	}
	for i, ds := range datasets {
		if done[i] {
			continue
		}
		for j, vr := range valueRanges {
			if !claimed[j] && schema.SheetOf(vr.Range) == ds.Sheet {
				out[i], done[i], claimed[j] = vr, true, true
				break
			}
		}
		if !done[i] {
			return nil, errors.New(errors.ErrorTypeRemote, "no value range returned for dataset").
				WithDetail("dataset", ds.Key).
				WithDetail("sheet", ds.Sheet)
		}
	}
	return out, nil
}

// StoreResult is the outcome of one store in FetchStores.
type StoreResult struct {
	Result BatchResult
	Err    error
}

// FetchStores runs one BatchFetch per store concurrently and waits for all
// of them. A failing store does not cancel or affect the others.
func (db *DB) FetchStores(ctx context.Context, requests map[string][]Dataset) map[string]StoreResult {
	results := make(map[string]StoreResult, len(requests))
	var mu sync.Mutex

	var g errgroup.Group
	if db.maxConcurrency > 0 {
		g.SetLimit(db.maxConcurrency)
	}
	for storeID, datasets := range requests {
		storeID, datasets := storeID, datasets
		g.Go(func() error {
			res, err := db.BatchFetch(ctx, storeID, datasets)
			if err != nil {
				logger.WithContext(logger.ContextWith(ctx, storeID, "", "fetch_stores"), db.logger).
					Warn("store fetch failed", zap.Error(err))
			}
			mu.Lock()
			results[storeID] = StoreResult{Result: res, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SyncStore re-reads every dataset of storeID, bypassing the cache, and
// records the full resync in the journal.
func (db *DB) SyncStore(ctx context.Context, storeID string, datasets []Dataset) (BatchResult, error) {
	result, err := db.batchFetch(ctx, storeID, datasets, true)
	if err != nil {
		return nil, err
	}

	entry := cache.SyncEntry{StoreID: storeID, SyncedAt: db.now().UTC(), Datasets: result.Keys()}
	if err := db.journal.Mark(ctx, entry); err != nil {
		return nil, errors.WrapKeep(err, errors.ErrorTypeStorage, "failed to record sync").
			WithDetail("store", storeID)
	}
	return result, nil
}
