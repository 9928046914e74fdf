package sheetbridge

import "context"

// RangeValues pairs an A1 range with its cell values.
type RangeValues struct {
	Range  string
	Values [][]any
}

// ValuesAPI is the narrow slice of the spreadsheet API the bridge needs.
// The production implementation wraps the Google Sheets service; tests
// use in-memory fakes.
type ValuesAPI interface {
	// Get reads a range. Rows may be ragged; trailing empty cells are
	// omitted by the backend.
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
	// Update overwrites a range.
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]any) error
	// Append adds rows after the last data row of a range.
	Append(ctx context.Context, spreadsheetID, writeRange string, values [][]any) error
	// BatchUpdate writes several ranges in one call.
	BatchUpdate(ctx context.Context, spreadsheetID string, data []RangeValues) error
	// Create makes a new spreadsheet and returns its ID and share URL.
	Create(ctx context.Context, title string) (spreadsheetID, url string, err error)
}
