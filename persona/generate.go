package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/figurant/docfetch"
	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/prompt"
	"github.com/hazyhaar/figurant/persona/internal/reply"
)

// Persona count bounds for one generation request.
const (
	DefaultPersonaCount = 3
	MaxPersonaCount     = 10
)

// GenerationResult is the outcome of one generation request.
type GenerationResult struct {
	Personas    []Persona         `json:"personas"`
	SourcesUsed []string          `json:"sources_used,omitempty"`
	Sufficiency float64           `json:"sufficiency"`
	Validation  ValidationSummary `json:"validation"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// GeneratePersonas creates count personas grounded in the uploaded
// excerpts and research bundle. Zero populated generation-relevant
// evidence categories fail fast with ErrInsufficientData; an empty or
// unparsable model array yields zero personas and a zero-valid summary,
// never an error.
func (s *Service) GeneratePersonas(ctx context.Context, campaign CampaignContext, uploaded []docfetch.Excerpt, bundle *ResearchBundle, count int) (*GenerationResult, error) {
	if s.client == nil {
		return nil, llm.ErrNotConfigured
	}
	if strings.TrimSpace(campaign.Matter) == "" {
		return nil, fmt.Errorf("%w: matter is required", ErrInvalidInput)
	}
	if count <= 0 {
		count = DefaultPersonaCount
	}
	if count > MaxPersonaCount {
		count = MaxPersonaCount
	}

	src := buildSourceContext(uploaded, bundle)
	populated := src.Populated()
	if len(populated) == 0 {
		return nil, fmt.Errorf("%w: no evidence in demographic_data, social_insights, or consumer_behavior", ErrInsufficientData)
	}

	text, err := s.client.Complete(ctx, prompt.Generation(campaign, src, count))
	if err != nil {
		return nil, fmt.Errorf("generate personas: %w", err)
	}

	seeds, fb := reply.ParsePersonaSeeds(text)
	if fb != nil {
		s.log.Warn("generation reply unparsable, returning zero personas", "note", fb.Note)
	}

	now := time.Now().UTC()
	provenance := bundle.Provenance()
	personas := make([]Persona, 0, len(seeds))
	for _, seed := range seeds {
		personas = append(personas, Persona{
			Name:               seed.Name,
			Age:                seed.Age.Int(),
			Location:           seed.Location,
			Occupation:         seed.Occupation,
			Education:          seed.Education,
			Income:             seed.Income,
			Bio:                seed.Bio,
			Interests:          seed.Interests,
			Motivations:        seed.Motivations,
			Barriers:           seed.Barriers,
			CommunicationStyle: seed.CommunicationStyle,
			ExampleQuote:       seed.ExampleQuote,
			Sources:            attachProvenance(seed.Sources, provenance),
			Confidence:         seed.Confidence,
			Status:             StatusGenerated,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	kept, summary := ValidateGenerated(personas)

	used := populated
	if len(src.ClientData) > 0 {
		used = append(used, "client_data")
	}

	s.log.Info("personas generated",
		"requested", count, "kept", len(kept), "dropped", summary.Invalid,
		"sufficiency", src.Sufficiency())

	return &GenerationResult{
		Personas:    kept,
		SourcesUsed: used,
		Sufficiency: src.Sufficiency(),
		Validation:  summary,
		GeneratedAt: now,
	}, nil
}

// buildSourceContext folds research evidence and uploaded excerpts into
// the categorized prompt material. Complaints ground client_data;
// research uploads ground demographic_data.
func buildSourceContext(uploaded []docfetch.Excerpt, bundle *ResearchBundle) *SourceContext {
	src := &SourceContext{}
	if bundle != nil {
		src = bundle.Evidence()
	}
	for _, ex := range uploaded {
		ev := Evidence{Content: ex.Text, Source: ex.URL, Type: string(ex.Kind)}
		switch ex.Kind {
		case docfetch.KindComplaint:
			src.ClientData = append(src.ClientData, ev)
		default:
			src.DemographicData = append(src.DemographicData, ev)
		}
	}
	return src
}

// ExcerptEvidence converts fetched document excerpts into prompt
// evidence for the legal enrichment stage.
func ExcerptEvidence(excerpts []docfetch.Excerpt) []Evidence {
	if len(excerpts) == 0 {
		return nil
	}
	out := make([]Evidence, 0, len(excerpts))
	for _, ex := range excerpts {
		out = append(out, Evidence{Content: ex.Text, Source: ex.URL, Type: string(ex.Kind)})
	}
	return out
}

// attachProvenance appends the research provenance entries a seed did not
// already cite.
func attachProvenance(cited, provenance []string) []string {
	if len(provenance) == 0 {
		return cited
	}
	seen := make(map[string]bool, len(cited))
	for _, s := range cited {
		seen[s] = true
	}
	out := cited
	for _, s := range provenance {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}
