// Package sheetbridge moves personas between the domain model and Google
// Sheets.
//
// All row/column mapping is pure and runs against a narrow ValuesAPI
// interface, so the logic tests against in-memory fakes and the Google
// client stays a thin adapter. Columns are addressed through fixed
// registries looked up by header name; the bridge never hardcodes cell
// ranges.
package sheetbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var (
	// ErrEmptySheet means the spreadsheet holds no usable persona rows.
	ErrEmptySheet = errors.New("sheetbridge: no persona rows in sheet")
	// ErrInvalidSheetURL means a spreadsheet ID could not be parsed.
	ErrInvalidSheetURL = errors.New("sheetbridge: invalid spreadsheet url")
)

// DefaultTab is the sheet tab the bridge reads and writes.
const DefaultTab = "Sheet1"

// Bridge maps personas onto spreadsheet rows.
type Bridge struct {
	api ValuesAPI
	log *slog.Logger
	tab string
}

// Option adjusts a Bridge.
type Option func(*Bridge)

// WithTab overrides the sheet tab name.
func WithTab(tab string) Option {
	return func(b *Bridge) {
		if tab != "" {
			b.tab = tab
		}
	}
}

// New creates a Bridge. logger may be nil.
func New(api ValuesAPI, logger *slog.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{api: api, log: logger, tab: DefaultTab}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var sheetURLRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
var sheetIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)

// SpreadsheetID extracts the spreadsheet ID from a share URL. A bare ID
// is accepted as-is.
func SpreadsheetID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if m := sheetURLRe.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if sheetIDRe.MatchString(raw) {
		return raw, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSheetURL, raw)
}

// SheetURL builds the canonical share URL for a spreadsheet ID.
func SheetURL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

// rangeRef builds an A1 range reference, quoting tab names that need it.
func rangeRef(tab, ref string) string {
	if strings.ContainsAny(tab, " !'") {
		tab = "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	}
	if ref == "" {
		return tab
	}
	return tab + "!" + ref
}

// columnLetter converts a zero-based column index to A1 letters.
func columnLetter(idx int) string {
	s := ""
	for idx >= 0 {
		s = string(rune('A'+idx%26)) + s
		idx = idx/26 - 1
	}
	return s
}
