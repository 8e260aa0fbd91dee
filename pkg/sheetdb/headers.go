package sheetdb

import (
	"context"

	"github.com/ajitpratap0/sheetdb/pkg/cache"
	"github.com/ajitpratap0/sheetdb/pkg/clients"
	"github.com/ajitpratap0/sheetdb/pkg/codec"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/sheets"
)

// HeaderMap resolves the first row of sheet. The result is cached with the
// other reads; a sheet without a header row yields an empty map.
func (db *DB) HeaderMap(ctx context.Context, storeID, sheet string) (codec.HeaderMap, error) {
	return db.headerMap(ctx, storeID, sheet, false)
}

func (db *DB) headerMap(ctx context.Context, storeID, sheet string, fresh bool) (codec.HeaderMap, error) {
	key := cache.HeadersKey(storeID, sheet)
	if !fresh {
		if v, ok := db.cache.Get(key); ok {
			return v.(codec.HeaderMap), nil
		}
	}

	vr, err := clients.Execute(ctx, db.transport, opGet, func(ctx context.Context) (sheets.ValueRange, error) {
		return db.store.Get(ctx, storeID, codec.HeaderRange(sheet))
	})
	if err != nil {
		return codec.HeaderMap{}, errors.WrapKeep(err, errors.ErrorTypeInternal, "failed to load headers for "+sheet).
			WithDetail("store", storeID).
			WithDetail("sheet", sheet)
	}

	var row []any
	if len(vr.Values) > 0 {
		row = vr.Values[0]
	}
	headers := codec.NewHeaderMap(row)
	db.cache.Put(key, headers)
	return headers, nil
}

// SheetNames lists the sheet titles of storeID in display order.
func (db *DB) SheetNames(ctx context.Context, storeID string) ([]string, error) {
	infos, err := db.sheetInfos(ctx, storeID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Title
	}
	return names, nil
}

func (db *DB) sheetInfos(ctx context.Context, storeID string) ([]sheets.SheetInfo, error) {
	infos, err := clients.Execute(ctx, db.transport, opMetadata, func(ctx context.Context) ([]sheets.SheetInfo, error) {
		return db.store.Sheets(ctx, storeID)
	})
	if err != nil {
		return nil, errors.WrapKeep(err, errors.ErrorTypeInternal, "failed to list sheets").
			WithDetail("store", storeID)
	}
	return infos, nil
}

// sheetID resolves a sheet title to the grid id structural requests need.
func (db *DB) sheetID(ctx context.Context, storeID, sheet string) (int64, error) {
	infos, err := db.sheetInfos(ctx, storeID)
	if err != nil {
		return 0, err
	}
	for _, info := range infos {
		if info.Title == sheet {
			return info.ID, nil
		}
	}
	return 0, errors.New(errors.ErrorTypeNotFound, "sheet not found").
		WithDetail("store", storeID).
		WithDetail("sheet", sheet)
}
