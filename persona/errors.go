package persona

import "errors"

// ErrInvalidInput is returned when a request is missing required campaign
// fields or carries values that fail validation.
var ErrInvalidInput = errors.New("persona: invalid input")

// ErrInsufficientData is returned when no generation-relevant source
// category holds any evidence. Generation fails fast rather than invent
// personas from nothing.
var ErrInsufficientData = errors.New("persona: insufficient source data")

// ErrNotFound is returned when a named persona cannot be located for chat.
var ErrNotFound = errors.New("persona: persona not found")

// ErrSheetsNotConfigured is returned when a sheet-driven operation runs
// without a spreadsheet bridge wired.
var ErrSheetsNotConfigured = errors.New("persona: spreadsheet access not configured")
