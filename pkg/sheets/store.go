// Package sheets talks to the spreadsheet service.
//
// A Store performs exactly one remote request per call and never retries;
// retries, rate limiting and credential checks belong to clients.Execute.
package sheets

import (
	"context"
)

// Value input modes accepted by Append and Update.
const (
	InputUserEntered = "USER_ENTERED"
	InputRaw         = "RAW"
)

// ValueRange is a block of cells returned for one requested range.
type ValueRange struct {
	// Range is the A1 range as echoed back by the service
	Range  string
	Values [][]any
}

// SheetInfo describes one sheet (tab) of a spreadsheet.
type SheetInfo struct {
	// ID is the numeric grid id used by structural requests
	ID    int64
	Title string
	Index int
}

// Store is the remote spreadsheet API.
type Store interface {
	// Get reads a single range.
	Get(ctx context.Context, storeID, a1 string) (ValueRange, error)
	// BatchGet reads several ranges in one request. Results may come back
	// in any order and must be matched by their Range.
	BatchGet(ctx context.Context, storeID string, ranges []string) ([]ValueRange, error)
	// Append adds rows after the last non-empty row of the table at a1.
	Append(ctx context.Context, storeID, a1 string, rows [][]any) error
	// Update overwrites the cells of a1.
	Update(ctx context.Context, storeID, a1 string, rows [][]any) error
	// DeleteRow removes one physical row (1-based) and shifts later rows up.
	DeleteRow(ctx context.Context, storeID string, sheetID int64, row int) error
	// Sheets lists the sheets of a spreadsheet in display order.
	Sheets(ctx context.Context, storeID string) ([]SheetInfo, error)
}
