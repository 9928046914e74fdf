package sheetbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/figurant/persona"
)

// headerField is one resolved header slot: either a canonical persona
// field or an Extra key for headers outside the synonym table.
type headerField struct {
	canonical string
	extraKey  string
}

func resolveHeader(rawHeader string) headerField {
	sanitized := sanitizeHeader(rawHeader)
	if sanitized == "" {
		return headerField{}
	}
	if canonical, ok := headerSynonyms[sanitized]; ok {
		return headerField{canonical: canonical}
	}
	return headerField{extraKey: sanitized}
}

// ImportPersonas reads every persona row out of a spreadsheet. Rows
// without a resolvable name are dropped with a warning; a sheet with no
// usable rows is ErrEmptySheet.
func (b *Bridge) ImportPersonas(ctx context.Context, sheetURL string) ([]persona.Persona, error) {
	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return nil, err
	}

	rows, err := b.api.Get(ctx, id, rangeRef(b.tab, ""))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}

	fields := make([]headerField, len(rows[0]))
	for i, cell := range rows[0] {
		fields[i] = resolveHeader(cellString(cell))
	}

	now := time.Now().UTC()
	var personas []persona.Persona
	dropped := 0
	for i, row := range rows[1:] {
		p := importRow(row, fields, now)
		if p.Name == "" {
			b.log.Warn("persona row dropped: no name", "sheet_row", i+2)
			dropped++
			continue
		}
		personas = append(personas, p)
	}

	if len(personas) == 0 {
		return nil, ErrEmptySheet
	}
	b.log.Info("personas imported", "spreadsheet_id", id, "count", len(personas), "dropped", dropped)
	return personas, nil
}

func importRow(row []any, fields []headerField, now time.Time) persona.Persona {
	p := persona.Persona{
		Status:    persona.StatusImported,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for j, cell := range row {
		if j >= len(fields) {
			break
		}
		v := cellString(cell)
		if v == "" {
			continue
		}
		f := fields[j]
		switch {
		case f.canonical != "":
			setCanonical(&p, f.canonical, v)
		case f.extraKey != "":
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[f.extraKey] = v
		}
	}
	return p
}

func setCanonical(p *persona.Persona, field, v string) {
	if listFields[field] {
		items := splitList(v)
		switch field {
		case "interests":
			p.Interests = items
		case "motivations":
			p.Motivations = items
		case "barriers":
			p.Barriers = items
		}
		return
	}
	switch field {
	case "name":
		p.Name = v
	case "age":
		p.Age = parseAge(v)
	case "location":
		p.Location = v
	case "occupation":
		p.Occupation = v
	case "education":
		p.Education = v
	case "income":
		p.Income = v
	case "bio":
		p.Bio = v
	case "communication_style":
		p.CommunicationStyle = v
	case "example_quote":
		p.ExampleQuote = v
	}
}
