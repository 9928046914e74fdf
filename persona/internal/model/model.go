// Package model defines the persona data model shared by the prompt,
// reply, research, and enrich subpackages. The parent persona package
// re-exports these types as its public API.
package model

import "time"

// Persona lifecycle states. Imported rows walk imported → validated →
// socially_enriched → legally_enriched; generated personas start at
// generated. Any stage failure collapses to failed while retaining all
// previously filled fields. ready_for_testing is the terminal success
// alias applied when personas are assembled for export.
const (
	StatusGenerated        = "generated"
	StatusImported         = "imported"
	StatusValidated        = "validated"
	StatusSociallyEnriched = "socially_enriched"
	StatusLegallyEnriched  = "legally_enriched"
	StatusReadyForTesting  = "ready_for_testing"
	StatusFailed           = "failed"
)

// EnrichmentRecord statuses.
const (
	EnrichmentEnriched = "enriched"
	EnrichmentFailed   = "failed"
)

// Persona is a synthetic audience member for a legal-advertising campaign.
// Name is the only identity; uniqueness is not enforced.
type Persona struct {
	Name               string   `json:"name"`
	Age                int      `json:"age"` // 0 = unknown
	Location           string   `json:"location,omitempty"`
	Occupation         string   `json:"occupation,omitempty"`
	Education          string   `json:"education,omitempty"`
	Income             string   `json:"income,omitempty"`
	Bio                string   `json:"bio,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	ExampleQuote       string   `json:"example_quote,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	Motivations        []string `json:"motivations,omitempty"`
	Barriers           []string `json:"barriers,omitempty"`
	Sources            []string `json:"sources,omitempty"`

	SocialMediaProfiles map[string]string `json:"social_media_profiles,omitempty"`
	ProfessionalDetails map[string]string `json:"professional_details,omitempty"`
	LegalProfile        map[string]string `json:"legal_profile,omitempty"`
	DocumentInsights    []string          `json:"document_insights,omitempty"`

	// Extra holds import columns that map to no known field, keyed by
	// sanitized header name. Carried through enrichment untouched.
	Extra map[string]string `json:"extra,omitempty"`

	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"` // canonical scale 0..1
	Error      string  `json:"error,omitempty"`

	Enrichment     *EnrichmentRecord `json:"enrichment,omitempty"`      // stage A (social)
	EnrichmentMeta *EnrichmentRecord `json:"enrichment_meta,omitempty"` // stage B (legal)

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnrichmentRecord documents one enrichment pass over a persona.
type EnrichmentRecord struct {
	Status         string    `json:"status"` // EnrichmentEnriched or EnrichmentFailed
	Sources        []string  `json:"sources,omitempty"`
	Confidence     float64   `json:"confidence"` // 0..1
	EnrichedFields []string  `json:"enriched_fields,omitempty"`
	Insights       string    `json:"insights,omitempty"`
	Error          string    `json:"error,omitempty"`
	EnrichedAt     time.Time `json:"enriched_at"`
}

// CampaignContext describes the legal matter a request works for.
// Immutable once built from the request.
type CampaignContext struct {
	Matter            string `json:"matter"`
	Keywords          string `json:"keywords"`
	TargetDescription string `json:"target_description"`
}

// Evidence is one sourced piece of input material.
type Evidence struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Type    string `json:"type"`
}

// SourceContext groups the evidence feeding a generation request into the
// four fixed categories the prompt builder labels. Built per request,
// never persisted.
type SourceContext struct {
	DemographicData  []Evidence `json:"demographic_data"`
	SocialInsights   []Evidence `json:"social_insights"`
	ConsumerBehavior []Evidence `json:"consumer_behavior"`
	ClientData       []Evidence `json:"client_data"`
}

// Populated returns the names of the generation-relevant categories that
// hold at least one piece of evidence. client_data informs prompts but
// does not count toward sufficiency.
func (s *SourceContext) Populated() []string {
	var names []string
	if len(s.DemographicData) > 0 {
		names = append(names, "demographic_data")
	}
	if len(s.SocialInsights) > 0 {
		names = append(names, "social_insights")
	}
	if len(s.ConsumerBehavior) > 0 {
		names = append(names, "consumer_behavior")
	}
	return names
}

// Sufficiency is the populated fraction of the three generation-relevant
// categories, in [0,1].
func (s *SourceContext) Sufficiency() float64 {
	return float64(len(s.Populated())) / 3.0
}

// Clamp01 clamps v to [0,1]. Model-reported confidences pass through here
// before they are stored anywhere.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampDelta clamps a confidence delta to [-1,1].
func ClampDelta(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
