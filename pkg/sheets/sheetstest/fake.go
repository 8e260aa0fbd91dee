// Package sheetstest provides an in-memory sheets.Store for tests.
package sheetstest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"

	"github.com/ajitpratap0/sheetdb/pkg/sheets"
)

// Operation names recorded in the request log and used for fault injection.
const (
	OpGet       = "get"
	OpBatchGet  = "batch_get"
	OpAppend    = "append"
	OpUpdate    = "update"
	OpDeleteRow = "delete_row"
	OpSheets    = "sheets"
)

// Request is one call received by the fake.
type Request struct {
	Op      string
	StoreID string
	Ranges  []string
	Rows    [][]any
	SheetID int64
	Row     int
}

type sheet struct {
	id    int64
	title string
	rows  [][]any
}

// Store is an in-memory sheets.Store. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	books    map[string][]*sheet
	nextID   int64
	requests []Request
	faults   map[string][]error

	// ReverseBatch returns BatchGet results in reverse request order.
	ReverseBatch bool
}

var _ sheets.Store = (*Store)(nil)

// New creates an empty fake.
func New() *Store {
	return &Store{
		books:  make(map[string][]*sheet),
		faults: make(map[string][]error),
	}
}

// AddSheet creates a sheet holding rows (header row first) and returns its
// grid id.
func (s *Store) AddSheet(storeID, title string, rows ...[]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := &sheet{id: s.nextID, title: title, rows: copyRows(rows)}
	s.nextID++
	s.books[storeID] = append(s.books[storeID], sh)
	return sh.id
}

// Rows returns a copy of every row of a sheet, header included.
func (s *Store) Rows(storeID, title string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.find(storeID, title)
	if sh == nil {
		return nil
	}
	return copyRows(sh.rows)
}

// SetRows replaces the content of a sheet, simulating another writer.
func (s *Store) SetRows(storeID, title string, rows ...[]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sh := s.find(storeID, title); sh != nil {
		sh.rows = copyRows(rows)
	}
}

// FailNext makes the next len(errs) calls of op return errs in order.
func (s *Store) FailNext(op string, errs ...error) {
	s.mu.Lock()
	s.faults[op] = append(s.faults[op], errs...)
	s.mu.Unlock()
}

// Requests returns the request log.
func (s *Store) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls of op were received, failed ones included.
func (s *Store) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Op == op {
			n++
		}
	}
	return n
}

// ResetRequests clears the request log.
func (s *Store) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// Status builds the error the real client returns for an HTTP status.
func Status(code int) error {
	return &googleapi.Error{Code: code, Message: http.StatusText(code)}
}

func (s *Store) Get(_ context.Context, storeID, a1 string) (sheets.ValueRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Request{Op: OpGet, StoreID: storeID, Ranges: []string{a1}}); err != nil {
		return sheets.ValueRange{}, err
	}
	return s.read(storeID, a1)
}

func (s *Store) BatchGet(_ context.Context, storeID string, ranges []string) ([]sheets.ValueRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Request{Op: OpBatchGet, StoreID: storeID, Ranges: append([]string(nil), ranges...)}); err != nil {
		return nil, err
	}
	out := make([]sheets.ValueRange, 0, len(ranges))
	for _, a1 := range ranges {
		vr, err := s.read(storeID, a1)
		if err != nil {
			return nil, err
		}
		out = append(out, vr)
	}
	if s.ReverseBatch {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, storeID, a1 string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Request{Op: OpAppend, StoreID: storeID, Ranges: []string{a1}, Rows: copyRows(rows)}); err != nil {
		return err
	}
	ref, err := parseA1(a1)
	if err != nil {
		return err
	}
	sh, err := s.lookup(storeID, ref.sheet)
	if err != nil {
		return err
	}
	last := len(sh.rows)
	for last > 0 && isEmpty(sh.rows[last-1]) {
		last--
	}
	sh.rows = append(sh.rows[:last], copyRows(rows)...)
	return nil
}

func (s *Store) Update(_ context.Context, storeID, a1 string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Request{Op: OpUpdate, StoreID: storeID, Ranges: []string{a1}, Rows: copyRows(rows)}); err != nil {
		return err
	}
	ref, err := parseA1(a1)
	if err != nil {
		return err
	}
	sh, err := s.lookup(storeID, ref.sheet)
	if err != nil {
		return err
	}
	start := ref.startRow
	if start < 1 {
		start = 1
	}
	for i, row := range rows {
		idx := start - 1 + i
		for len(sh.rows) <= idx {
			sh.rows = append(sh.rows, []any{})
		}
		target := sh.rows[idx]
		for c, v := range row {
			col := ref.startCol + c
			for len(target) <= col {
				target = append(target, "")
			}
			target[col] = v
		}
		sh.rows[idx] = target
	}
	return nil
}

func (s *Store) DeleteRow(_ context.Context, storeID string, sheetID int64, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Request{Op: OpDeleteRow, StoreID: storeID, SheetID: sheetID, Row: row}); err != nil {
		return err
	}
	book, ok := s.books[storeID]
	if !ok {
		return Status(http.StatusNotFound)
	}
	for _, sh := range book {
		if sh.id != sheetID {
			continue
		}
		if row < 1 || row > len(sh.rows) {
			return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("row %d out of range", row)}
		}
		sh.rows = append(sh.rows[:row-1], sh.rows[row:]...)
		return nil
	}
	return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("no grid with id: %d", sheetID)}
}

func (s *Store) Sheets(_ context.Context, storeID string) ([]sheets.SheetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Request{Op: OpSheets, StoreID: storeID}); err != nil {
		return nil, err
	}
	book, ok := s.books[storeID]
	if !ok {
		return nil, Status(http.StatusNotFound)
	}
	out := make([]sheets.SheetInfo, 0, len(book))
	for i, sh := range book {
		out = append(out, sheets.SheetInfo{ID: sh.id, Title: sh.title, Index: i})
	}
	return out, nil
}

// record logs r and pops a pending fault for its op. Callers hold s.mu.
func (s *Store) record(r Request) error {
	s.requests = append(s.requests, r)
	queue := s.faults[r.Op]
	if len(queue) == 0 {
		return nil
	}
	s.faults[r.Op] = queue[1:]
	return queue[0]
}

func (s *Store) find(storeID, title string) *sheet {
	for _, sh := range s.books[storeID] {
		if sh.title == title {
			return sh
		}
	}
	return nil
}

func (s *Store) lookup(storeID, title string) (*sheet, error) {
	if _, ok := s.books[storeID]; !ok {
		return nil, Status(http.StatusNotFound)
	}
	sh := s.find(storeID, title)
	if sh == nil {
		return nil, &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: " + title}
	}
	return sh, nil
}

func (s *Store) read(storeID, a1 string) (sheets.ValueRange, error) {
	ref, err := parseA1(a1)
	if err != nil {
		return sheets.ValueRange{}, err
	}
	sh, err := s.lookup(storeID, ref.sheet)
	if err != nil {
		return sheets.ValueRange{}, err
	}

	first := ref.startRow
	if first < 1 {
		first = 1
	}
	last := len(sh.rows)
	if ref.endRow > 0 && ref.endRow < last {
		last = ref.endRow
	}

	var values [][]any
	for r := first; r <= last; r++ {
		row := sh.rows[r-1]
		lo := ref.startCol
		hi := len(row)
		if ref.endCol >= 0 && ref.endCol+1 < hi {
			hi = ref.endCol + 1
		}
		var out []any
		if lo < hi {
			out = append([]any(nil), row[lo:hi]...)
		}
		for len(out) > 0 && (out[len(out)-1] == nil || out[len(out)-1] == "") {
			out = out[:len(out)-1]
		}
		values = append(values, out)
	}
	for len(values) > 0 && len(values[len(values)-1]) == 0 {
		values = values[:len(values)-1]
	}

	return sheets.ValueRange{Range: echoRange(ref), Values: values}, nil
}

type a1Ref struct {
	sheet    string
	startRow int
	endRow   int
	startCol int
	endCol   int
	cells    string
}

func parseA1(a1 string) (a1Ref, error) {
	ref := a1Ref{endCol: -1}
	name, cells := a1, ""
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		name, cells = a1[:i], a1[i+1:]
	}
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	ref.sheet = name
	ref.cells = cells
	if cells == "" {
		return ref, nil
	}

	start, end, hasEnd := strings.Cut(cells, ":")
	col, row, err := splitCell(start)
	if err != nil {
		return ref, err
	}
	if col >= 0 {
		ref.startCol = col
	}
	ref.startRow = row
	if !hasEnd {
		return ref, nil
	}
	col, row, err = splitCell(end)
	if err != nil {
		return ref, err
	}
	ref.endCol = col
	ref.endRow = row
	return ref, nil
}

// splitCell parses "AB12", "AB" or "12" into a zero-based column (-1 when
// absent) and a 1-based row (0 when absent).
func splitCell(cell string) (int, int, error) {
	i := 0
	col := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	row := 0
	if i < len(cell) {
		n, err := strconv.Atoi(cell[i:])
		if err != nil {
			return 0, 0, &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: " + cell}
		}
		row = n
	}
	return col - 1, row, nil
}

func echoRange(ref a1Ref) string {
	name := ref.sheet
	if strings.ContainsAny(name, " '!") {
		name = "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	if ref.cells == "" {
		return name
	}
	return name + "!" + ref.cells
}

func isEmpty(row []any) bool {
	for _, v := range row {
		if v != nil && v != "" {
			return false
		}
	}
	return true
}

func copyRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
