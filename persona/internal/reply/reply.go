// Package reply parses generative-model output into typed results.
//
// Models wrap JSON in prose, code fences, and apologies; every parser here
// locates the first balanced JSON payload and decodes it against an
// explicit schema. Parse failures never surface as errors: each parser
// returns a documented fallback so one bad reply degrades a single item
// instead of faulting a batch.
package reply

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hazyhaar/figurant/persona/internal/model"
)

// FallbackConfidence is the confidence substituted when a reply cannot be
// parsed.
const FallbackConfidence = 0.3

// ExtractObject returns the first balanced {...} substring of text,
// respecting string literals and escapes. ok is false when none exists.
func ExtractObject(text string) (string, bool) {
	return extract(text, '{', '}')
}

// ExtractArray returns the first balanced [...] substring of text.
func ExtractArray(text string) (string, bool) {
	return extract(text, '[', ']')
}

func extract(text string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case open:
			if start < 0 {
				start = i
			}
			depth++
		case close:
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// Enrichment is the parsed stage A (social) reply.
type Enrichment struct {
	Fields     model.Patch
	Confidence float64 // clamped to [0,1]
	Insights   string
	Sources    []string
	Fallback   bool // true when defaults were substituted for a bad reply
}

// ParseEnrichment decodes a stage A reply. On any failure it returns the
// fallback enrichment (FallbackConfidence, explanatory insights) rather
// than an error.
func ParseEnrichment(text string) Enrichment {
	raw, ok := ExtractObject(text)
	if !ok {
		return enrichmentFallback("no JSON object found in model reply")
	}

	var wire struct {
		EnrichedFields *model.Patch `json:"enrichedFields"`
		Confidence     *float64     `json:"confidence"`
		Insights       string       `json:"insights"`
		Sources        []string     `json:"sources"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return enrichmentFallback("model reply was not valid JSON")
	}
	if wire.EnrichedFields == nil || wire.Confidence == nil {
		return enrichmentFallback("model reply missing enrichedFields or confidence")
	}

	return Enrichment{
		Fields:     *wire.EnrichedFields,
		Confidence: model.Clamp01(*wire.Confidence),
		Insights:   wire.Insights,
		Sources:    wire.Sources,
	}
}

func enrichmentFallback(note string) Enrichment {
	return Enrichment{
		Confidence: FallbackConfidence,
		Insights:   note,
		Fallback:   true,
	}
}

// Additions is the parsed stage B (legal) reply.
type Additions struct {
	LegalMotivations       []string `json:"legal_motivations"`
	LegalBarriers          []string `json:"legal_barriers"`
	CaseConcerns           []string `json:"case_concerns"`
	PreferredCommunication string   `json:"preferred_communication"`
	DecisionTimeline       string   `json:"decision_timeline"`
	TrustFactors           []string `json:"trust_factors"`
	ConfidenceDelta        float64  `json:"confidence_delta"` // clamped to [-1,1]
	Insights               string   `json:"insights"`
	Fallback               bool     `json:"-"`
}

// Empty reports whether the additions carry no usable content.
func (a Additions) Empty() bool {
	return len(a.LegalMotivations) == 0 && len(a.LegalBarriers) == 0 &&
		len(a.CaseConcerns) == 0 && a.PreferredCommunication == "" &&
		a.DecisionTimeline == "" && len(a.TrustFactors) == 0
}

// ParseAdditions decodes a stage B reply. On failure it returns empty
// additions with a zero delta and an explanatory insights note.
func ParseAdditions(text string) Additions {
	raw, ok := ExtractObject(text)
	if !ok {
		return Additions{Insights: "no JSON object found in model reply", Fallback: true}
	}
	var a Additions
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Additions{Insights: "model reply was not valid JSON", Fallback: true}
	}
	a.ConfidenceDelta = model.ClampDelta(a.ConfidenceDelta)
	return a
}

// Seed is one generated persona record as the model reports it.
type Seed struct {
	Name               string   `json:"name"`
	Age                flexInt  `json:"age"`
	Location           string   `json:"location"`
	Occupation         string   `json:"occupation"`
	Education          string   `json:"education"`
	Income             string   `json:"income"`
	Bio                string   `json:"bio"`
	Interests          []string `json:"interests"`
	Motivations        []string `json:"motivations"`
	Barriers           []string `json:"barriers"`
	CommunicationStyle string   `json:"communication_style"`
	ExampleQuote       string   `json:"example_quote"`
	Sources            []string `json:"sources"`
	Confidence         float64  `json:"confidence"`
}

// Fallback describes a generation reply that could not be parsed.
type Fallback struct {
	Note string
}

// ParsePersonaSeeds decodes a generation reply into seeds. A malformed
// reply yields an empty slice plus a Fallback note; a well-formed empty
// array yields an empty slice and no fallback. Per-seed confidence is
// clamped to [0,1].
func ParsePersonaSeeds(text string) ([]Seed, *Fallback) {
	raw, ok := ExtractArray(text)
	if !ok {
		return nil, &Fallback{Note: "no JSON array found in model reply"}
	}
	var seeds []Seed
	if err := json.Unmarshal([]byte(raw), &seeds); err != nil {
		return nil, &Fallback{Note: "model reply was not a valid persona array"}
	}
	for i := range seeds {
		seeds[i].Confidence = model.Clamp01(seeds[i].Confidence)
	}
	return seeds, nil
}

// ParseChat passes a chat reply through with whitespace trimmed. Chat
// replies are free text, never JSON.
func ParseChat(text string) string {
	return strings.TrimSpace(text)
}

// flexInt decodes a JSON number or a numeric string. Models asked for an
// integer age still sometimes quote it.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Non-numeric age degrades to unknown rather than failing the seed.
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// Int returns the decoded value as a plain int.
func (f flexInt) Int() int { return int(f) }
