// Package codec maps raw spreadsheet rows to typed entities and back.
//
// Decoding is lenient per cell and strict at the boundary: a cell that is
// missing, empty or unparsable is omitted from the field map so the schema
// validator can fill a default, and the validator then decides whether the
// assembled entity is acceptable.
package codec

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/schema"
)

// Empty is the value written to cells that have nothing to hold.
const Empty = ""

// Fields extracts a field map from a raw row without validating it.
func Fields(row []any, columns map[string]schema.Column, headers HeaderMap) map[string]any {
	fields := make(map[string]any, len(columns))
	for field, col := range columns {
		idx, ok := headers.Index(col.Header)
		if !ok || idx >= len(row) || row[idx] == nil {
			continue
		}
		if v, ok := coerce(row[idx], col.EffectiveKind()); ok {
			fields[field] = v
		}
	}
	return fields
}

// Decode turns a raw row into a validated entity.
func Decode[T any](row []any, columns map[string]schema.Column, headers HeaderMap, validator schema.Validator[T]) (T, error) {
	entity, err := validator.Validate(Fields(row, columns, headers))
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, errors.ErrorTypeValidation, "row failed schema validation")
	}
	return entity, nil
}

// coerce converts one cell according to kind. ok is false when the cell
// should be treated as absent.
func coerce(cell any, kind schema.Kind) (any, bool) {
	switch kind {
	case schema.KindNumber:
		switch v := cell.(type) {
		case float64:
			return v, !math.IsNaN(v)
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
		text := strings.TrimSpace(CellText(cell))
		if text == "" {
			return nil, false
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(n) {
			return nil, false
		}
		return n, true

	case schema.KindBoolean:
		if b, ok := cell.(bool); ok {
			return b, true
		}
		text := strings.TrimSpace(CellText(cell))
		if text == "" {
			return nil, false
		}
		return strings.EqualFold(text, "true"), true

	case schema.KindStringArray:
		parts := strings.FieldsFunc(CellText(cell), func(r rune) bool { return r == ',' || r == '|' })
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true

	default:
		text := CellText(cell)
		if text == "" {
			return nil, false
		}
		return text, true
	}
}

// Encode lays out fields as a row as wide as the header row. Cells whose
// header has no mapped field, and fields that are nil, get Empty.
func Encode(fields map[string]any, columns map[string]schema.Column, headers HeaderMap) []any {
	row := make([]any, headers.Len())
	for i := range row {
		row[i] = Empty
	}

	for field, col := range columns {
		idx, ok := headers.Index(col.Header)
		if !ok {
			continue
		}
		row[idx] = encodeValue(fields[field], col.EffectiveKind())
	}
	return row
}

// EncodeEntity converts entity through the entry's field mapping and encodes it.
func EncodeEntity[T any](entry *schema.Entry[T], entity T, headers HeaderMap) ([]any, error) {
	fields, err := entry.FieldsOf(entity)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "entity cannot be encoded").
			WithDetail("range", entry.SheetRange)
	}
	return Encode(fields, entry.Columns, headers), nil
}

func encodeValue(v any, kind schema.Kind) any {
	if v == nil {
		return Empty
	}
	switch kind {
	case schema.KindStringArray:
		switch arr := v.(type) {
		case []string:
			return strings.Join(arr, ", ")
		case []any:
			parts := make([]string, 0, len(arr))
			for _, item := range arr {
				parts = append(parts, CellText(item))
			}
			return strings.Join(parts, ", ")
		}
		return CellText(v)

	case schema.KindBoolean:
		switch b := v.(type) {
		case bool:
			if b {
				return "TRUE"
			}
			return "FALSE"
		case string:
			if strings.EqualFold(b, "true") {
				return "TRUE"
			}
			return "FALSE"
		}
		return CellText(v)

	case schema.KindNumber:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64)
		case float32:
			return strconv.FormatFloat(float64(n), 'f', -1, 32)
		case *float64:
			if n == nil {
				return Empty
			}
			return strconv.FormatFloat(*n, 'f', -1, 64)
		}
		return CellText(v)

	default:
		if s, ok := v.(*string); ok {
			if s == nil {
				return Empty
			}
			return *s
		}
		return CellText(v)
	}
}
