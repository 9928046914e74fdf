package sheetbridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/figurant/persona"
)

// ExportResult reports where personas were written.
type ExportResult struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	URL           string `json:"url"`
	RowsExported  int    `json:"rows_exported"`
}

// ExportPersonas writes the full export registry to a spreadsheet,
// creating a titled one when spreadsheetID is empty. Nested blocks
// flatten into "k: v; k: v" cells.
func (b *Bridge) ExportPersonas(ctx context.Context, personas []persona.Persona, campaign persona.CampaignContext, spreadsheetID string) (*ExportResult, error) {
	var url string
	if spreadsheetID == "" {
		id, u, err := b.api.Create(ctx, exportTitle(campaign))
		if err != nil {
			return nil, fmt.Errorf("create spreadsheet: %w", err)
		}
		spreadsheetID, url = id, u
	} else {
		url = SheetURL(spreadsheetID)
	}

	values := make([][]any, 0, len(personas)+1)
	values = append(values, headerRow(exportColumns))
	for i := range personas {
		values = append(values, rowFor(&personas[i], exportColumns))
	}

	if err := b.api.Update(ctx, spreadsheetID, rangeRef(b.tab, "A1"), values); err != nil {
		return nil, fmt.Errorf("write personas: %w", err)
	}

	b.log.Info("personas exported", "spreadsheet_id", spreadsheetID, "rows", len(personas))
	return &ExportResult{
		SpreadsheetID: spreadsheetID,
		URL:           url,
		RowsExported:  len(personas),
	}, nil
}

// AppendPersonas adds storage-registry rows to an existing sheet without
// touching what is already there.
func (b *Bridge) AppendPersonas(ctx context.Context, spreadsheetID string, personas []persona.Persona) error {
	if len(personas) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(personas))
	for i := range personas {
		rows = append(rows, rowFor(&personas[i], storageColumns))
	}
	if err := b.api.Append(ctx, spreadsheetID, rangeRef(b.tab, "A1"), rows); err != nil {
		return fmt.Errorf("append personas: %w", err)
	}
	b.log.Info("personas appended", "spreadsheet_id", spreadsheetID, "rows", len(rows))
	return nil
}

// UpdateResult reports an in-place enrichment write-back.
type UpdateResult struct {
	RowsMatched     int      `json:"rows_matched"`
	PersonasSkipped []string `json:"personas_skipped,omitempty"`
	ColumnsAdded    []string `json:"columns_added,omitempty"`
}

// UpdateInPlace writes enrichment columns back into the sheet the
// personas came from. Columns are located by header name and appended
// when missing, so repeated runs reuse them; rows are matched by the
// name column. Only enrichment cells are written.
func (b *Bridge) UpdateInPlace(ctx context.Context, spreadsheetID string, personas []persona.Persona) (*UpdateResult, error) {
	rows, err := b.api.Get(ctx, spreadsheetID, rangeRef(b.tab, ""))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cellString(cell)
	}

	nameCol := -1
	for i, h := range header {
		if headerSynonyms[sanitizeHeader(h)] == "name" {
			nameCol = i
			break
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("sheet has no name column")
	}

	result := &UpdateResult{}

	// Locate or append each enrichment column.
	colIndex := make(map[string]int, len(enrichmentHeaders))
	for _, want := range enrichmentHeaders {
		idx := -1
		for i, h := range header {
			if sanitizeHeader(h) == sanitizeHeader(want) {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = len(header)
			header = append(header, want)
			result.ColumnsAdded = append(result.ColumnsAdded, want)
		}
		colIndex[want] = idx
	}

	if len(result.ColumnsAdded) > 0 {
		headerAny := make([]any, len(header))
		for i, h := range header {
			headerAny[i] = h
		}
		if err := b.api.Update(ctx, spreadsheetID, rangeRef(b.tab, "1:1"), [][]any{headerAny}); err != nil {
			return nil, fmt.Errorf("extend header: %w", err)
		}
	}

	// Index data rows by normalized name; first occurrence wins.
	rowByName := make(map[string]int)
	for i, row := range rows[1:] {
		if nameCol >= len(row) {
			continue
		}
		name := strings.ToLower(cellString(row[nameCol]))
		if name == "" {
			continue
		}
		if _, seen := rowByName[name]; !seen {
			rowByName[name] = i + 2 // 1-based sheet row, after the header
		}
	}

	var data []RangeValues
	for i := range personas {
		p := &personas[i]
		rowNum, ok := rowByName[strings.ToLower(strings.TrimSpace(p.Name))]
		if !ok {
			b.log.Warn("persona has no sheet row, skipping", "name", p.Name)
			result.PersonasSkipped = append(result.PersonasSkipped, p.Name)
			continue
		}
		for _, h := range enrichmentHeaders {
			col, _ := exportColumnByHeader(h)
			cell := columnLetter(colIndex[h]) + strconv.Itoa(rowNum)
			data = append(data, RangeValues{
				Range:  rangeRef(b.tab, cell),
				Values: [][]any{{col.Value(p)}},
			})
		}
		result.RowsMatched++
	}

	if len(data) > 0 {
		if err := b.api.BatchUpdate(ctx, spreadsheetID, data); err != nil {
			return nil, fmt.Errorf("write enrichment cells: %w", err)
		}
	}
	b.log.Info("sheet updated in place", "spreadsheet_id", spreadsheetID,
		"matched", result.RowsMatched, "skipped", len(result.PersonasSkipped),
		"columns_added", len(result.ColumnsAdded))
	return result, nil
}

func exportTitle(campaign persona.CampaignContext) string {
	title := "Personas"
	if campaign.Matter != "" {
		title += " - " + campaign.Matter
	}
	return title + " - " + time.Now().UTC().Format("2006-01-02")
}

func headerRow(cols []column) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c.Header
	}
	return row
}

func rowFor(p *persona.Persona, cols []column) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c.Value(p)
	}
	return row
}
