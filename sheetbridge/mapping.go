package sheetbridge

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/figurant/persona"
)

// headerSynonyms maps sanitized sheet headers to canonical persona
// fields. Unknown headers land in Extra under their sanitized name.
var headerSynonyms = map[string]string{
	"name":         "name",
	"persona":      "name",
	"persona_name": "name",
	"full_name":    "name",

	"age": "age",

	"location": "location",
	"city":     "location",
	"region":   "location",

	"occupation": "occupation",
	"job":        "occupation",
	"profession": "occupation",

	"education": "education",
	"degree":    "education",

	"income": "income",
	"salary": "income",

	"bio":         "bio",
	"about":       "bio",
	"description": "bio",

	"interests": "interests",
	"hobbies":   "interests",

	"motivations": "motivations",
	"goals":       "motivations",
	"drivers":     "motivations",

	"barriers":   "barriers",
	"objections": "barriers",
	"challenges": "barriers",

	"communication_style": "communication_style",
	"comm_style":          "communication_style",

	"example_quote": "example_quote",
	"quote":         "example_quote",
}

// listFields are the canonical fields whose cells split into lists.
var listFields = map[string]bool{
	"interests":   true,
	"motivations": true,
	"barriers":    true,
}

// sanitizeHeader normalizes a sheet header for synonym lookup: lowered,
// non-alphanumerics collapsed to single underscores.
func sanitizeHeader(h string) string {
	var sb strings.Builder
	prevUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				sb.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(sb.String(), "_")
}

// cellString renders a sheet cell value as trimmed text. Numeric cells
// come back from the API as float64.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// splitList breaks a cell into list items on commas and semicolons.
func splitList(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(items []string) string {
	return strings.Join(items, "; ")
}

// joinMap flattens a map as "k: v; k: v" with sorted keys.
func joinMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+": "+m[k])
	}
	return strings.Join(pairs, "; ")
}

// parseAge tolerates integer and decimal cells; anything else is zero.
func parseAge(cell string) int {
	if n, err := strconv.Atoi(cell); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return int(f)
	}
	return 0
}

func ageString(age int) string {
	if age <= 0 {
		return ""
	}
	return strconv.Itoa(age)
}

func confidenceString(c float64) string {
	return strconv.FormatFloat(c, 'f', 2, 64)
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func legalField(p *persona.Persona, key string) string {
	if p.LegalProfile == nil {
		return ""
	}
	return p.LegalProfile[key]
}

// latestRecord prefers the stage B record over stage A.
func latestRecord(p *persona.Persona) *persona.EnrichmentRecord {
	if p.EnrichmentMeta != nil {
		return p.EnrichmentMeta
	}
	return p.Enrichment
}

func enrichmentStatus(p *persona.Persona) string {
	if r := latestRecord(p); r != nil {
		return r.Status
	}
	return ""
}

func enrichedAt(p *persona.Persona) string {
	if r := latestRecord(p); r != nil {
		return timeString(r.EnrichedAt)
	}
	return ""
}

// column binds a sheet header to its persona value.
type column struct {
	Header string
	Value  func(p *persona.Persona) string
}

// exportColumns is the full export registry. Order defines the sheet.
var exportColumns = []column{
	{"Name", func(p *persona.Persona) string { return p.Name }},
	{"Age", func(p *persona.Persona) string { return ageString(p.Age) }},
	{"Location", func(p *persona.Persona) string { return p.Location }},
	{"Occupation", func(p *persona.Persona) string { return p.Occupation }},
	{"Education", func(p *persona.Persona) string { return p.Education }},
	{"Income", func(p *persona.Persona) string { return p.Income }},
	{"Bio", func(p *persona.Persona) string { return p.Bio }},
	{"Interests", func(p *persona.Persona) string { return joinList(p.Interests) }},
	{"Motivations", func(p *persona.Persona) string { return joinList(p.Motivations) }},
	{"Barriers", func(p *persona.Persona) string { return joinList(p.Barriers) }},
	{"Communication Style", func(p *persona.Persona) string { return p.CommunicationStyle }},
	{"Example Quote", func(p *persona.Persona) string { return p.ExampleQuote }},
	{"Sources", func(p *persona.Persona) string { return joinList(p.Sources) }},
	{"Confidence", func(p *persona.Persona) string { return confidenceString(p.Confidence) }},
	{"Status", func(p *persona.Persona) string { return p.Status }},
	{"Social Media Profiles", func(p *persona.Persona) string { return joinMap(p.SocialMediaProfiles) }},
	{"Professional Details", func(p *persona.Persona) string { return joinMap(p.ProfessionalDetails) }},
	{"Legal Motivations", func(p *persona.Persona) string { return legalField(p, "legal_motivations") }},
	{"Legal Barriers", func(p *persona.Persona) string { return legalField(p, "legal_barriers") }},
	{"Case Concerns", func(p *persona.Persona) string { return legalField(p, "case_concerns") }},
	{"Preferred Communication", func(p *persona.Persona) string { return legalField(p, "preferred_communication") }},
	{"Decision Timeline", func(p *persona.Persona) string { return legalField(p, "decision_timeline") }},
	{"Trust Factors", func(p *persona.Persona) string { return legalField(p, "trust_factors") }},
	{"Legal Insights", func(p *persona.Persona) string {
		if p.EnrichmentMeta != nil {
			return p.EnrichmentMeta.Insights
		}
		return ""
	}},
	{"Document Insights", func(p *persona.Persona) string { return joinList(p.DocumentInsights) }},
	{"Enrichment Status", enrichmentStatus},
	{"Enriched At", enrichedAt},
	{"Error", func(p *persona.Persona) string { return p.Error }},
}

// storageColumns is the append-only storage registry.
var storageColumns = []column{
	{"Name", func(p *persona.Persona) string { return p.Name }},
	{"Age", func(p *persona.Persona) string { return ageString(p.Age) }},
	{"Location", func(p *persona.Persona) string { return p.Location }},
	{"Occupation", func(p *persona.Persona) string { return p.Occupation }},
	{"Education", func(p *persona.Persona) string { return p.Education }},
	{"Income", func(p *persona.Persona) string { return p.Income }},
	{"Bio", func(p *persona.Persona) string { return p.Bio }},
	{"Interests", func(p *persona.Persona) string { return joinList(p.Interests) }},
	{"Motivations", func(p *persona.Persona) string { return joinList(p.Motivations) }},
	{"Barriers", func(p *persona.Persona) string { return joinList(p.Barriers) }},
	{"Communication Style", func(p *persona.Persona) string { return p.CommunicationStyle }},
	{"Example Quote", func(p *persona.Persona) string { return p.ExampleQuote }},
	{"Sources", func(p *persona.Persona) string { return joinList(p.Sources) }},
	{"Confidence", func(p *persona.Persona) string { return confidenceString(p.Confidence) }},
	{"Status", func(p *persona.Persona) string { return p.Status }},
	{"Created At", func(p *persona.Persona) string { return timeString(p.CreatedAt) }},
}

// enrichmentHeaders names the columns UpdateInPlace is allowed to write.
// Identity columns (Name and the imported core fields) stay untouched.
var enrichmentHeaders = []string{
	"Status",
	"Confidence",
	"Social Media Profiles",
	"Professional Details",
	"Legal Motivations",
	"Legal Barriers",
	"Case Concerns",
	"Preferred Communication",
	"Decision Timeline",
	"Trust Factors",
	"Legal Insights",
	"Document Insights",
	"Enrichment Status",
	"Enriched At",
	"Error",
}

// exportColumnByHeader resolves a registry entry by header name.
func exportColumnByHeader(header string) (column, bool) {
	for _, c := range exportColumns {
		if c.Header == header {
			return c, true
		}
	}
	return column{}, false
}
