// Package schema describes how typed entities map onto spreadsheet rows.
//
// An Entry is authored once per entity type at startup and never mutated:
// it names the store and sheet range holding the rows, the field used as the
// row key, the column map (field -> header + coercion kind) and the validator
// that turns a loosely typed field map into a fully populated entity.
package schema

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag read when converting between entities and field maps.
const TagName = "sheet"

// Kind selects the coercion applied to a cell.
type Kind string

const (
	// KindString keeps the cell text; empty text is treated as absent
	KindString Kind = "string"
	// KindNumber parses the cell as a float; unparsable cells are treated as absent
	KindNumber Kind = "number"
	// KindBoolean is true iff the cell reads "true" in any case
	KindBoolean Kind = "boolean"
	// KindStringArray splits the cell on commas or pipes
	KindStringArray Kind = "string_array"
)

// Column maps one entity field to a header in the sheet.
type Column struct {
	Header string
	Kind   Kind
}

// EffectiveKind returns the column kind, defaulting to KindString.
func (c Column) EffectiveKind() Kind {
	if c.Kind == "" {
		return KindString
	}
	return c.Kind
}

// Entry is the descriptor of one entity type stored in one sheet.
type Entry[T any] struct {
	// StoreID is the spreadsheet id
	StoreID string
	// SheetRange is an A1 range that starts at the header row, e.g. "People!A:F"
	SheetRange string
	// KeyField is the entity field used to locate rows for update and delete
	KeyField string
	// Columns maps entity field names to sheet headers
	Columns map[string]Column
	// Validator builds a T from a decoded field map
	Validator Validator[T]
	// Fields converts a T back into a field map; nil uses ToFields
	Fields func(T) (map[string]any, error)
}

// SheetName returns the sheet part of SheetRange without quoting.
func (e *Entry[T]) SheetName() string {
	return SheetOf(e.SheetRange)
}

// KeyColumn returns the column holding the key field.
func (e *Entry[T]) KeyColumn() (Column, bool) {
	c, ok := e.Columns[e.KeyField]
	return c, ok
}

// FieldsOf converts an entity into a field map for encoding.
func (e *Entry[T]) FieldsOf(v T) (map[string]any, error) {
	if e.Fields != nil {
		return e.Fields(v)
	}
	return ToFields(v)
}

// Check reports configuration mistakes that would otherwise surface as
// confusing runtime errors.
func (e *Entry[T]) Check() error {
	switch {
	case e.StoreID == "":
		return fmt.Errorf("schema entry: store id is required")
	case e.SheetRange == "":
		return fmt.Errorf("schema entry: sheet range is required")
	case e.Validator == nil:
		return fmt.Errorf("schema entry %s: validator is required", e.SheetRange)
	case len(e.Columns) == 0:
		return fmt.Errorf("schema entry %s: at least one column is required", e.SheetRange)
	}
	if !StartsAtOrigin(e.SheetRange) {
		return fmt.Errorf("schema entry %s: range must start at column A of row 1", e.SheetRange)
	}
	if e.KeyField != "" {
		if _, ok := e.Columns[e.KeyField]; !ok {
			return fmt.Errorf("schema entry %s: key field %q has no column", e.SheetRange, e.KeyField)
		}
	}
	for field, col := range e.Columns {
		if col.Header == "" {
			return fmt.Errorf("schema entry %s: field %q has no header", e.SheetRange, field)
		}
		switch col.EffectiveKind() {
		case KindString, KindNumber, KindBoolean, KindStringArray:
		default:
			return fmt.Errorf("schema entry %s: field %q has unknown kind %q", e.SheetRange, field, col.Kind)
		}
	}
	return nil
}

// SheetOf extracts the unquoted sheet name from an A1 range.
func SheetOf(a1 string) string {
	name := a1
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		name = a1[:i]
	}
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

// StartsAtOrigin reports whether the cell part of an A1 range begins at
// column A of row 1, as in "People!A:E" or "People!A1:E50". A bare sheet
// name covers the whole sheet and qualifies.
func StartsAtOrigin(a1 string) bool {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return true
	}
	start := a1[i+1:]
	if j := strings.Index(start, ":"); j >= 0 {
		start = start[:j]
	}
	start = strings.ToUpper(strings.ReplaceAll(start, "$", ""))

	col := strings.TrimRight(start, "0123456789")
	row := start[len(col):]
	return col == "A" && (row == "" || row == "1")
}

// ToFields converts a struct (or map) entity into a field map using the
// `sheet` struct tags.
func ToFields(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	}

	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: TagName,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("convert entity to fields: %w", err)
	}
	return out, nil
}
