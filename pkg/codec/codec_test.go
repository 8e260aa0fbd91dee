package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/schema"
)

type person struct {
	ID     string   `sheet:"id" validate:"required"`
	Name   string   `sheet:"name" validate:"required"`
	Age    int      `sheet:"age"`
	Active bool     `sheet:"active"`
	Tags   []string `sheet:"tags"`
}

var personColumns = map[string]schema.Column{
	"id":     {Header: "ID"},
	"name":   {Header: "Name"},
	"age":    {Header: "Age", Kind: schema.KindNumber},
	"active": {Header: "Active", Kind: schema.KindBoolean},
	"tags":   {Header: "Tags", Kind: schema.KindStringArray},
}

func personEntry() *schema.Entry[person] {
	return &schema.Entry[person]{
		StoreID:    "store-1",
		SheetRange: "People!A:E",
		KeyField:   "id",
		Columns:    personColumns,
		Validator:  schema.NewStructValidator(person{Age: 18}),
	}
}

func headers(names ...string) HeaderMap {
	row := make([]any, len(names))
	for i, n := range names {
		row[i] = n
	}
	return NewHeaderMap(row)
}

func TestNewHeaderMap(t *testing.T) {
	h := NewHeaderMap([]any{" ID ", "Name", "", "Name"})

	idx, ok := h.Index("ID")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = h.Index("Name")
	require.True(t, ok)
	assert.Equal(t, 3, idx, "repeated header resolves to the last column")

	assert.Equal(t, 4, h.Len())
	assert.Equal(t, []string{"ID", "Name", "", "Name"}, h.Names())
	assert.False(t, h.Empty())
	assert.True(t, NewHeaderMap(nil).Empty())
}

func TestDecodeUsesHeaderPositions(t *testing.T) {
	h := headers("Name", "ID", "Age")
	entry := personEntry()

	got, err := Decode([]any{"Ada", "p1", "30"}, entry.Columns, h, entry.Validator)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, 30, got.Age)
}

func TestDecodeEmptyCellFallsBackToDefault(t *testing.T) {
	h := headers("ID", "Name", "Age")
	entry := personEntry()

	got, err := Decode([]any{"p1", "Ada", ""}, entry.Columns, h, entry.Validator)
	require.NoError(t, err)
	assert.Equal(t, 18, got.Age)

	got, err = Decode([]any{"p1", "Ada", "not a number"}, entry.Columns, h, entry.Validator)
	require.NoError(t, err)
	assert.Equal(t, 18, got.Age)
}

func TestDecodeEmptyCellsKeepNonZeroDefaults(t *testing.T) {
	h := headers("ID", "Name", "Active", "Tags")
	validator := schema.NewStructValidator(person{Active: true, Tags: []string{"default"}})

	got, err := Decode([]any{"p1", "Ada", "", ""}, personColumns, h, validator)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, []string{"default"}, got.Tags)

	got, err = Decode([]any{"p1", "Ada", "false", "x"}, personColumns, h, validator)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestDecodeShortRow(t *testing.T) {
	h := headers("ID", "Name", "Age", "Active", "Tags")
	entry := personEntry()

	got, err := Decode([]any{"p1", "Ada"}, entry.Columns, h, entry.Validator)
	require.NoError(t, err)
	assert.Equal(t, person{ID: "p1", Name: "Ada", Age: 18}, got)
}

func TestDecodeValidationFailure(t *testing.T) {
	h := headers("ID", "Name")
	entry := personEntry()

	_, err := Decode([]any{"p1", ""}, entry.Columns, h, entry.Validator)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestFieldsCoercion(t *testing.T) {
	h := headers("ID", "Active", "Tags", "Age")

	fields := Fields([]any{"p1", "TRUE", "a, b|c,,", "4.5"}, personColumns, h)
	assert.Equal(t, "p1", fields["id"])
	assert.Equal(t, true, fields["active"])
	assert.Equal(t, []string{"a", "b", "c"}, fields["tags"])
	assert.Equal(t, 4.5, fields["age"])

	fields = Fields([]any{"p1", "yes", "", float64(7)}, personColumns, h)
	assert.Equal(t, false, fields["active"])
	assert.Equal(t, float64(7), fields["age"])
	_, hasTags := fields["tags"]
	assert.False(t, hasTags, "empty array cell is absent")

	fields = Fields([]any{"p1", "  ", " , |", ""}, personColumns, h)
	_, hasActive := fields["active"]
	assert.False(t, hasActive, "blank boolean cell is absent")
	_, hasTags = fields["tags"]
	assert.False(t, hasTags, "separator-only array cell is absent")
	_, hasName := fields["name"]
	assert.False(t, hasName, "unmapped header is absent")
}

func TestEncode(t *testing.T) {
	h := headers("ID", "Notes", "Name", "Tags", "Active", "Age")

	row := Encode(map[string]any{
		"id":     "p1",
		"name":   "Ada",
		"tags":   []string{"math", "engines"},
		"active": true,
		"age":    nil,
	}, personColumns, h)

	assert.Equal(t, []any{"p1", "", "Ada", "math, engines", "TRUE", ""}, row)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := headers("ID", "Name", "Age", "Active", "Tags")
	entry := personEntry()
	in := person{ID: "p7", Name: "Grace", Age: 85, Active: true, Tags: []string{"navy", "cobol"}}

	row, err := EncodeEntity(entry, in, h)
	require.NoError(t, err)

	out, err := Decode(row, entry.Columns, h, entry.Validator)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestA1Helpers(t *testing.T) {
	assert.Equal(t, "A", ColumnLetter(0))
	assert.Equal(t, "Z", ColumnLetter(25))
	assert.Equal(t, "AA", ColumnLetter(26))
	assert.Equal(t, "AZ", ColumnLetter(51))
	assert.Equal(t, "BA", ColumnLetter(52))

	assert.Equal(t, "'People'!1:1", HeaderRange("People"))
	assert.Equal(t, "'Bob''s'!A1", AppendRange("Bob's"))
	assert.Equal(t, "'People'!A4:E4", RowRange("People", 4, 5))
	assert.Equal(t, 2, PhysicalRow(0))
}
