package sheetdb

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sheetdb/pkg/clients"
	"github.com/ajitpratap0/sheetdb/pkg/codec"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
	"github.com/ajitpratap0/sheetdb/pkg/metrics"
	"github.com/ajitpratap0/sheetdb/pkg/schema"
)

// Append writes entity as a new row after the last row of its sheet.
func Append[T any](ctx context.Context, db *DB, entry *schema.Entry[T], entity T) error {
	if err := checkEntry(entry); err != nil {
		return err
	}
	sheet := entry.SheetName()
	ctx = logger.ContextWith(ctx, entry.StoreID, sheet, opAppend)

	headers, err := db.HeaderMap(ctx, entry.StoreID, sheet)
	if err != nil {
		return err
	}
	if headers.Empty() {
		return errors.New(errors.ErrorTypeValidation, "sheet has no header row").
			WithDetail("store", entry.StoreID).
			WithDetail("sheet", sheet)
	}

	row, err := codec.EncodeEntity(entry, entity, headers)
	if err != nil {
		return err
	}

	_, err = clients.Execute(ctx, db.transport, opAppend, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, db.store.Append(ctx, entry.StoreID, codec.AppendRange(sheet), [][]any{row})
	})
	if err != nil {
		return errors.WrapKeep(err, errors.ErrorTypeInternal, "failed to append row").
			WithDetail("store", entry.StoreID).
			WithDetail("sheet", sheet)
	}

	metrics.Writes.WithLabelValues(opAppend).Inc()
	logger.WithContext(ctx, db.logger).Debug("row appended")
	return db.afterWrite(ctx, entry.StoreID)
}

// Create assigns a new random key to entity, appends it and returns the
// stored entity.
func Create[T any](ctx context.Context, db *DB, entry *schema.Entry[T], entity T) (T, error) {
	var zero T
	if err := checkEntry(entry); err != nil {
		return zero, err
	}
	if entry.KeyField == "" {
		return zero, errors.New(errors.ErrorTypeConfig, "schema entry has no key field").
			WithDetail("range", entry.SheetRange)
	}

	fields, err := entry.FieldsOf(entity)
	if err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeValidation, "entity cannot be encoded")
	}
	fields[entry.KeyField] = uuid.NewString()

	created, err := entry.Validator.Validate(fields)
	if err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeValidation, "entity failed schema validation")
	}
	if err := Append(ctx, db, entry, created); err != nil {
		return zero, err
	}
	return created, nil
}

// Update overwrites the row whose key column matches entity's key.
func Update[T any](ctx context.Context, db *DB, entry *schema.Entry[T], entity T) error {
	if err := checkEntry(entry); err != nil {
		return err
	}
	sheet := entry.SheetName()
	ctx = logger.ContextWith(ctx, entry.StoreID, sheet, opUpdate)

	fields, err := entry.FieldsOf(entity)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "entity cannot be encoded")
	}
	key := codec.CellText(fields[entry.KeyField])

	loc, err := db.locate(ctx, entry.StoreID, entry.SheetRange, entry.KeyField, entry.Columns, key)
	if err != nil {
		return err
	}

	row := codec.Encode(fields, entry.Columns, loc.headers)
	target := codec.RowRange(sheet, loc.row, loc.headers.Len())
	_, err = clients.Execute(ctx, db.transport, opUpdate, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, db.store.Update(ctx, entry.StoreID, target, [][]any{row})
	})
	if err != nil {
		return errors.WrapKeep(err, errors.ErrorTypeInternal, "failed to update row").
			WithDetail("store", entry.StoreID).
			WithDetail("range", target)
	}

	metrics.Writes.WithLabelValues(opUpdate).Inc()
	logger.WithContext(ctx, db.logger).Debug("row updated", zap.Int("row", loc.row), zap.String("key", key))
	return db.afterWrite(ctx, entry.StoreID)
}

// Delete removes the row whose key column equals key, shifting later rows up.
func Delete[T any](ctx context.Context, db *DB, entry *schema.Entry[T], key string) error {
	if err := checkEntry(entry); err != nil {
		return err
	}
	sheet := entry.SheetName()
	ctx = logger.ContextWith(ctx, entry.StoreID, sheet, "delete")

	loc, err := db.locate(ctx, entry.StoreID, entry.SheetRange, entry.KeyField, entry.Columns, key)
	if err != nil {
		return err
	}
	gridID, err := db.sheetID(ctx, entry.StoreID, sheet)
	if err != nil {
		return err
	}

	_, err = clients.Execute(ctx, db.transport, opDeleteRow, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, db.store.DeleteRow(ctx, entry.StoreID, gridID, loc.row)
	})
	if err != nil {
		return errors.WrapKeep(err, errors.ErrorTypeInternal, "failed to delete row").
			WithDetail("store", entry.StoreID).
			WithDetail("sheet", sheet).
			WithDetail("row", loc.row)
	}

	metrics.Writes.WithLabelValues("delete").Inc()
	logger.WithContext(ctx, db.logger).Debug("row deleted", zap.Int("row", loc.row), zap.String("key", key))
	return db.afterWrite(ctx, entry.StoreID)
}

// Get reads the entity whose key column equals key, bypassing the cache.
func Get[T any](ctx context.Context, db *DB, entry *schema.Entry[T], key string) (T, error) {
	var zero T
	if err := checkEntry(entry); err != nil {
		return zero, err
	}
	ctx = logger.ContextWith(ctx, entry.StoreID, entry.SheetName(), "get")

	loc, err := db.locate(ctx, entry.StoreID, entry.SheetRange, entry.KeyField, entry.Columns, key)
	if err != nil {
		return zero, err
	}
	entity, err := codec.Decode(loc.values, entry.Columns, loc.headers, entry.Validator)
	if err != nil {
		return zero, errors.WrapKeep(err, errors.ErrorTypeValidation, "failed to decode row").
			WithDetail("store", entry.StoreID).
			WithDetail("row", loc.row)
	}
	return entity, nil
}

type location struct {
	// row is the 1-based physical sheet row
	row     int
	values  []any
	headers codec.HeaderMap
}

// locate finds the data row whose key column holds key. It always reads the
// range from the remote store, so the row number reflects the sheet as it
// is right before the caller mutates it.
func (db *DB) locate(ctx context.Context, storeID, a1, keyField string, columns map[string]schema.Column, key string) (location, error) {
	if keyField == "" {
		return location{}, errors.New(errors.ErrorTypeConfig, "schema entry has no key field").
			WithDetail("range", a1)
	}
	if key == "" {
		return location{}, errors.New(errors.ErrorTypeValidation, "entity key is empty").
			WithDetail("field", keyField)
	}

	vr, err := db.readRange(ctx, storeID, a1)
	if err != nil {
		return location{}, err
	}
	if len(vr.Values) == 0 {
		return location{}, notFound(storeID, a1, key)
	}

	headers := codec.NewHeaderMap(vr.Values[0])
	keyHeader := columns[keyField].Header
	col, ok := headers.Index(keyHeader)
	if !ok {
		return location{}, errors.New(errors.ErrorTypeValidation, "key column missing from header row").
			WithDetail("store", storeID).
			WithDetail("range", a1).
			WithDetail("header", keyHeader)
	}

	for i, row := range vr.Values[1:] {
		if col < len(row) && codec.CellText(row[col]) == key {
			return location{row: codec.PhysicalRow(i), values: row, headers: headers}, nil
		}
	}
	return location{}, notFound(storeID, a1, key)
}

func notFound(storeID, a1, key string) error {
	return errors.New(errors.ErrorTypeNotFound, "entity not found").
		WithDetail("store", storeID).
		WithDetail("range", a1).
		WithDetail("key", key)
}
