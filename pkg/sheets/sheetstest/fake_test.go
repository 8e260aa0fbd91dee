package sheetstest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseA1(t *testing.T) {
	ref, err := parseA1("'Bob''s'!B2:D")
	require.NoError(t, err)
	assert.Equal(t, a1Ref{sheet: "Bob's", startRow: 2, startCol: 1, endCol: 3, cells: "B2:D"}, ref)

	ref, err = parseA1("People!1:1")
	require.NoError(t, err)
	assert.Equal(t, 1, ref.startRow)
	assert.Equal(t, 1, ref.endRow)
	assert.Equal(t, -1, ref.endCol)

	_, err = parseA1("People!A1:Bx")
	assert.Error(t, err)
}

func TestFakeReadWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	gid := s.AddSheet("s1", "My People", []any{"ID", "Name"}, []any{"p1", "Ada"})

	vr, err := s.Get(ctx, "s1", "'My People'!A:B")
	require.NoError(t, err)
	assert.Equal(t, "'My People'!A:B", vr.Range)
	assert.Equal(t, [][]any{{"ID", "Name"}, {"p1", "Ada"}}, vr.Values)

	require.NoError(t, s.Append(ctx, "s1", "'My People'!A1", [][]any{{"p2", "Grace"}}))
	require.NoError(t, s.Update(ctx, "s1", "'My People'!A2:B2", [][]any{{"p1", "Ada L"}}))
	require.NoError(t, s.DeleteRow(ctx, "s1", gid, 3))

	assert.Equal(t, [][]any{{"ID", "Name"}, {"p1", "Ada L"}}, s.Rows("s1", "My People"))
	assert.Equal(t, 1, s.Count(OpDeleteRow))
}

func TestFakeFaults(t *testing.T) {
	s := New()
	s.AddSheet("s1", "People", []any{"ID"})
	s.FailNext(OpGet, Status(http.StatusServiceUnavailable))

	_, err := s.Get(context.Background(), "s1", "People!A:A")
	require.Error(t, err)
	_, err = s.Get(context.Background(), "s1", "People!A:A")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count(OpGet))

	_, err = s.Get(context.Background(), "missing", "People!A:A")
	assert.Error(t, err)
}
