package codec

import (
	"fmt"
	"strings"
)

// HeaderMap resolves header names of one sheet, at one point in time, to
// zero-based column indexes. It is rebuilt from the header row on every
// refresh and never patched in place.
type HeaderMap struct {
	names []string
	index map[string]int
}

// NewHeaderMap builds a HeaderMap from a raw header row. Header text is
// trimmed; when a header repeats, the last column wins.
func NewHeaderMap(row []any) HeaderMap {
	h := HeaderMap{
		names: make([]string, len(row)),
		index: make(map[string]int, len(row)),
	}
	for i, cell := range row {
		name := strings.TrimSpace(CellText(cell))
		h.names[i] = name
		if name != "" {
			h.index[name] = i
		}
	}
	return h
}

// Index returns the column of header name.
func (h HeaderMap) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Names returns the header row, one entry per column.
func (h HeaderMap) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of columns in the header row.
func (h HeaderMap) Len() int {
	return len(h.names)
}

// Empty reports whether the sheet had no header row.
func (h HeaderMap) Empty() bool {
	return len(h.index) == 0
}

// CellText renders a raw cell value as text.
func CellText(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
