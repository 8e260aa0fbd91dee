package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	ID     string   `sheet:"id" validate:"required"`
	Name   string   `sheet:"name" validate:"required"`
	Age    int      `sheet:"age" validate:"gte=0"`
	Active bool     `sheet:"active"`
	Tags   []string `sheet:"tags"`
}

func memberEntry() *Entry[member] {
	return &Entry[member]{
		StoreID:    "store-1",
		SheetRange: "Members!A:E",
		KeyField:   "id",
		Columns: map[string]Column{
			"id":     {Header: "ID"},
			"name":   {Header: "Name"},
			"age":    {Header: "Age", Kind: KindNumber},
			"active": {Header: "Active", Kind: KindBoolean},
			"tags":   {Header: "Tags", Kind: KindStringArray},
		},
		Validator: NewStructValidator(member{Age: 18}),
	}
}

func TestStructValidatorAppliesDefaults(t *testing.T) {
	v := NewStructValidator(member{Age: 18, Tags: []string{"default"}})

	got, err := v.Validate(map[string]any{"id": "m1", "name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, member{ID: "m1", Name: "Ada", Age: 18, Tags: []string{"default"}}, got)

	got, err = v.Validate(map[string]any{"id": "m2", "name": "Grace", "age": float64(30), "tags": []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, 30, got.Age)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestStructValidatorDoesNotMutateDefaults(t *testing.T) {
	defaults := member{Tags: []string{"a", "b"}}
	v := NewStructValidator(defaults)

	_, err := v.Validate(map[string]any{"id": "m1", "name": "Ada", "tags": []string{"z"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, defaults.Tags)
}

func TestStructValidatorRejectsMissingRequired(t *testing.T) {
	v := NewStructValidator(member{})

	_, err := v.Validate(map[string]any{"id": "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name failed required")
}

func TestMapValidator(t *testing.T) {
	v := MapValidator{Required: []string{"id"}, Defaults: map[string]any{"status": "open"}}

	got, err := v.Validate(map[string]any{"id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "t1", "status": "open"}, got)

	_, err = v.Validate(map[string]any{"status": "closed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
}

func TestValidatorFunc(t *testing.T) {
	var v Validator[string] = ValidatorFunc[string](func(fields map[string]any) (string, error) {
		return fields["name"].(string), nil
	})
	got, err := v.Validate(map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)
}

func TestToFields(t *testing.T) {
	fields, err := ToFields(member{ID: "m1", Name: "Ada", Age: 36, Active: true, Tags: []string{"math"}})
	require.NoError(t, err)
	assert.Equal(t, "m1", fields["id"])
	assert.Equal(t, 36, fields["age"])
	assert.Equal(t, true, fields["active"])
	assert.Equal(t, []string{"math"}, fields["tags"])

	src := map[string]any{"id": "x"}
	copied, err := ToFields(src)
	require.NoError(t, err)
	copied["id"] = "y"
	assert.Equal(t, "x", src["id"])
}

func TestEntryCheck(t *testing.T) {
	require.NoError(t, memberEntry().Check())

	e := memberEntry()
	e.KeyField = "email"
	assert.ErrorContains(t, e.Check(), "key field")

	e = memberEntry()
	e.Columns["age"] = Column{Header: "Age", Kind: "date"}
	assert.ErrorContains(t, e.Check(), "unknown kind")

	e = memberEntry()
	e.Validator = nil
	assert.ErrorContains(t, e.Check(), "validator")

	e = memberEntry()
	e.SheetRange = "Members!B:E"
	assert.ErrorContains(t, e.Check(), "must start at column A of row 1")
}

func TestStartsAtOrigin(t *testing.T) {
	tests := map[string]bool{
		"Members!A:E":        true,
		"Members!A1:E40":     true,
		"'My Sheet'!a1:c":    true,
		"Members!$A$1:$E$9":  true,
		"Members":            true,
		"Members!B:E":        false,
		"Members!A2:E":       false,
		"Members!AA1:AC":     false,
		"Members!1:1":        false,
		"'Bang!Sheet'!C1:D2": false,
	}
	for in, want := range tests {
		assert.Equal(t, want, StartsAtOrigin(in), in)
	}
}

func TestSheetOf(t *testing.T) {
	tests := map[string]string{
		"People!A:E":        "People",
		"'My Sheet'!A1:C10": "My Sheet",
		"'Bob''s'!A:A":      "Bob's",
		"Plain":             "Plain",
		"'Quoted Only'":     "Quoted Only",
	}
	for in, want := range tests {
		assert.Equal(t, want, SheetOf(in), in)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, Register(r, "members", memberEntry()))
	assert.ErrorContains(t, Register(r, "members", memberEntry()), "already registered")

	got, err := Lookup[member](r, "members")
	require.NoError(t, err)
	assert.Equal(t, "Members", got.SheetName())

	_, err = Lookup[map[string]any](r, "members")
	assert.ErrorContains(t, err, "not the requested entity type")

	_, err = Lookup[member](r, "unknown")
	assert.ErrorContains(t, err, "not found")

	assert.Equal(t, []string{"members"}, r.Names())
}
