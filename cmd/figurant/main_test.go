package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/figurant/persona"
	"github.com/hazyhaar/figurant/sheetbridge"
)

type fakeValues struct {
	rows    [][]any
	getErr  error
	created string

	updates  []string
	batched  int
	appended int
}

func (f *fakeValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rows, nil
}

func (f *fakeValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]any) error {
	f.updates = append(f.updates, writeRange)
	return nil
}

func (f *fakeValues) Append(ctx context.Context, spreadsheetID, writeRange string, values [][]any) error {
	f.appended++
	return nil
}

func (f *fakeValues) BatchUpdate(ctx context.Context, spreadsheetID string, data []sheetbridge.RangeValues) error {
	f.batched++
	return nil
}

func (f *fakeValues) Create(ctx context.Context, title string) (string, string, error) {
	f.created = title
	return "fresh_sheet_id_0123456789", sheetbridge.SheetURL("fresh_sheet_id_0123456789"), nil
}

const bridgeShareURL = "https://docs.google.com/spreadsheets/d/source_sheet_id"

// WHAT: a healthy sheet is written back in place and keeps its URL.
func TestBridgePort_WriteBack_InPlace(t *testing.T) {
	api := &fakeValues{rows: [][]any{
		{"Name", "Age"},
		{"Maria Santos", "42"},
	}}
	port := &bridgePort{bridge: sheetbridge.New(api, nil)}

	url, err := port.WriteBack(context.Background(), bridgeShareURL,
		[]persona.Persona{{Name: "Maria Santos", Status: persona.StatusReadyForTesting}})
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	if !strings.Contains(url, "source_sheet_id") {
		t.Errorf("url = %q, want the source sheet", url)
	}
	if api.batched == 0 {
		t.Error("no enrichment cells were written")
	}
	if api.created != "" {
		t.Errorf("in-place write must not create a sheet, created %q", api.created)
	}
}

// WHAT: when the in-place write fails, the batch lands in a freshly
// created spreadsheet instead of being lost.
func TestBridgePort_WriteBack_ExportFallback(t *testing.T) {
	api := &fakeValues{getErr: errors.New("permission denied")}
	port := &bridgePort{bridge: sheetbridge.New(api, nil)}

	url, err := port.WriteBack(context.Background(), bridgeShareURL,
		[]persona.Persona{{Name: "Maria Santos"}})
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	if !strings.Contains(url, "fresh_sheet_id") {
		t.Errorf("url = %q, want the exported sheet", url)
	}
	if api.created == "" {
		t.Error("fallback did not create a spreadsheet")
	}
	if len(api.updates) == 0 {
		t.Error("fallback did not write the export rows")
	}
}

// WHAT: an unparseable share URL fails before any write is attempted.
func TestBridgePort_WriteBack_BadURL(t *testing.T) {
	api := &fakeValues{}
	port := &bridgePort{bridge: sheetbridge.New(api, nil)}

	if _, err := port.WriteBack(context.Background(), "not a sheet", nil); !errors.Is(err, sheetbridge.ErrInvalidSheetURL) {
		t.Fatalf("error = %v, want ErrInvalidSheetURL", err)
	}
	if api.created != "" || api.batched != 0 {
		t.Error("no writes expected for an invalid URL")
	}
}
