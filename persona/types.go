// Package persona generates and enriches synthetic audience personas for
// legal-advertising campaigns.
//
// The Service orchestrates a generative model (llm.Client), optional
// research queries, and a two-stage enrichment pipeline. Campaign sheets
// live in Google Sheets (sheetbridge); this package never talks to the
// spreadsheet directly.
package persona

import (
	"github.com/hazyhaar/figurant/persona/internal/enrich"
	"github.com/hazyhaar/figurant/persona/internal/model"
	"github.com/hazyhaar/figurant/persona/internal/research"
)

// Re-export model types for the public API.
type (
	Persona          = model.Persona
	EnrichmentRecord = model.EnrichmentRecord
	CampaignContext  = model.CampaignContext
	SourceContext    = model.SourceContext
	Evidence         = model.Evidence
	Patch            = model.Patch

	ResearchBundle = research.Bundle
	ResearchTopic  = research.Topic

	ProgressUpdate   = enrich.Update
	ProgressCallback = enrich.Callback
)

// Persona lifecycle states.
const (
	StatusGenerated        = model.StatusGenerated
	StatusImported         = model.StatusImported
	StatusValidated        = model.StatusValidated
	StatusSociallyEnriched = model.StatusSociallyEnriched
	StatusLegallyEnriched  = model.StatusLegallyEnriched
	StatusReadyForTesting  = model.StatusReadyForTesting
	StatusFailed           = model.StatusFailed
)

// Enrichment record statuses.
const (
	EnrichmentEnriched = model.EnrichmentEnriched
	EnrichmentFailed   = model.EnrichmentFailed
)
