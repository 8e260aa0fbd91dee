package codec

import (
	"fmt"
	"strings"
)

// QuoteSheet quotes a sheet name for use in an A1 range.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// HeaderRange addresses the first row of a sheet.
func HeaderRange(sheet string) string {
	return QuoteSheet(sheet) + "!1:1"
}

// AppendRange addresses the table anchored at A1 for append requests.
func AppendRange(sheet string) string {
	return QuoteSheet(sheet) + "!A1"
}

// RowRange addresses a single physical row (1-based), width columns wide.
func RowRange(sheet string, row, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s!A%d:%s%d", QuoteSheet(sheet), row, ColumnLetter(width-1), row)
}

// ColumnLetter converts a zero-based column index into its A1 letters
// (0 -> A, 25 -> Z, 26 -> AA).
func ColumnLetter(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// PhysicalRow converts a zero-based position in a fetched data list into the
// 1-based sheet row, skipping the header row.
func PhysicalRow(position int) int {
	return position + 2
}
