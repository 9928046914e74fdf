package sheetbridge

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// googleValues adapts *sheets.Service to ValuesAPI. All writes use RAW
// input so cells land exactly as rendered by the registries.
type googleValues struct {
	srv *sheets.Service
}

// NewGoogle wraps a Sheets service in the ValuesAPI the bridge consumes.
func NewGoogle(srv *sheets.Service) ValuesAPI {
	return &googleValues{srv: srv}
}

func (g *googleValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", readRange, err)
	}
	return resp.Values, nil
}

func (g *googleValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]any) error {
	_, err := g.srv.Spreadsheets.Values.
		Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets update %s: %w", writeRange, err)
	}
	return nil
}

func (g *googleValues) Append(ctx context.Context, spreadsheetID, writeRange string, values [][]any) error {
	_, err := g.srv.Spreadsheets.Values.
		Append(spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets append %s: %w", writeRange, err)
	}
	return nil
}

func (g *googleValues) BatchUpdate(ctx context.Context, spreadsheetID string, data []RangeValues) error {
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	for _, rv := range data {
		req.Data = append(req.Data, &sheets.ValueRange{Range: rv.Range, Values: rv.Values})
	}
	_, err := g.srv.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets batch update: %w", err)
	}
	return nil
}

func (g *googleValues) Create(ctx context.Context, title string) (string, string, error) {
	sp, err := g.srv.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("sheets create: %w", err)
	}
	return sp.SpreadsheetId, sp.SpreadsheetUrl, nil
}
