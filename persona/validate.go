package persona

import (
	"fmt"
	"strings"
	"time"
)

// Generation quality scoring. The weighted score caps at 100; personas
// under the keep threshold are excluded from generation results.
const (
	scoreCitations     = 30
	scoreConfidence    = 25
	scoreRequired      = 25
	scoreBioDepth      = 20
	generationKeepBar  = 50
	confidenceScoreBar = 0.70
	bioDepthChars      = 100
)

// RowReport is the per-persona outcome of a validation pass.
type RowReport struct {
	Name     string   `json:"name"`
	Score    int      `json:"score,omitempty"` // generation passes only
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ValidationSummary aggregates a batch validation. Valid counts every
// kept row, Warned the kept rows that raised warnings, Invalid the
// excluded rows.
type ValidationSummary struct {
	Valid   int         `json:"valid_personas"`
	Warned  int         `json:"warned_personas"`
	Invalid int         `json:"invalid_personas"`
	Reports []RowReport `json:"reports,omitempty"`
}

// missingRequired lists the required generation fields p lacks.
func missingRequired(p *Persona) []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if p.Age <= 0 {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(p.Bio) == "" {
		missing = append(missing, "bio")
	}
	if len(p.Motivations) == 0 {
		missing = append(missing, "motivations")
	}
	if len(p.Barriers) == 0 {
		missing = append(missing, "barriers")
	}
	if strings.TrimSpace(p.CommunicationStyle) == "" {
		missing = append(missing, "communication_style")
	}
	return missing
}

// scoreGenerated computes the weighted 0-100 quality score.
func scoreGenerated(p *Persona) int {
	score := 0
	if len(p.Sources) > 0 {
		score += scoreCitations
	}
	if p.Confidence > confidenceScoreBar {
		score += scoreConfidence
	}
	if len(missingRequired(p)) == 0 {
		score += scoreRequired
	}
	if len(p.Bio) > bioDepthChars {
		score += scoreBioDepth
	}
	return score
}

// ValidateGenerated filters a generated batch by required fields and the
// weighted quality score. Exclusion is silent: dropped personas appear in
// the summary reports, never as an error.
func ValidateGenerated(personas []Persona) ([]Persona, ValidationSummary) {
	var kept []Persona
	var summary ValidationSummary
	for i := range personas {
		p := &personas[i]
		report := RowReport{Name: p.Name, Score: scoreGenerated(p)}

		if missing := missingRequired(p); len(missing) > 0 {
			report.Errors = append(report.Errors, "missing required fields: "+strings.Join(missing, ", "))
		} else if report.Score < generationKeepBar {
			report.Errors = append(report.Errors, fmt.Sprintf("quality score %d below %d", report.Score, generationKeepBar))
		} else {
			report.Valid = true
		}

		if report.Valid {
			kept = append(kept, *p)
			summary.Valid++
		} else {
			summary.Invalid++
		}
		summary.Reports = append(summary.Reports, report)
	}
	return kept, summary
}

// objectShaped reports whether a list cell held serialized object text
// instead of a comma/semicolon list. Import splits on those separators,
// so a {...} or [...] cell leaves its opening brace on the first item.
func objectShaped(items []string) bool {
	if len(items) == 0 {
		return false
	}
	first := strings.TrimSpace(items[0])
	return strings.HasPrefix(first, "{") || strings.HasPrefix(first, "[")
}

// ValidateImported checks an imported roster. An empty name excludes the
// row; everything else is a soft warning that keeps it. Kept rows advance
// to StatusValidated.
func ValidateImported(personas []Persona) ([]Persona, ValidationSummary) {
	var kept []Persona
	var summary ValidationSummary
	now := time.Now().UTC()
	for i := range personas {
		p := &personas[i]
		report := RowReport{Name: p.Name}

		if strings.TrimSpace(p.Name) == "" {
			report.Errors = append(report.Errors, "name is required")
			summary.Invalid++
			summary.Reports = append(summary.Reports, report)
			continue
		}

		switch {
		case p.Age == 0:
			report.Warnings = append(report.Warnings, "age missing")
		case p.Age < 0 || p.Age > 120:
			report.Warnings = append(report.Warnings, fmt.Sprintf("age %d outside 0-120", p.Age))
		}
		if p.Location == "" {
			report.Warnings = append(report.Warnings, "location missing")
		}
		if p.Occupation == "" {
			report.Warnings = append(report.Warnings, "occupation missing")
		}
		if p.Bio == "" {
			report.Warnings = append(report.Warnings, "bio missing")
		}
		if len(p.Interests) == 0 {
			report.Warnings = append(report.Warnings, "interests missing")
		}
		for _, list := range []struct {
			field string
			items []string
		}{
			{"interests", p.Interests},
			{"motivations", p.Motivations},
			{"barriers", p.Barriers},
		} {
			if objectShaped(list.items) {
				report.Warnings = append(report.Warnings, list.field+" looks like an object, expected a list")
			}
		}

		report.Valid = true
		p.Status = StatusValidated
		p.UpdatedAt = now
		kept = append(kept, *p)
		summary.Valid++
		if len(report.Warnings) > 0 {
			summary.Warned++
		}
		summary.Reports = append(summary.Reports, report)
	}
	return kept, summary
}
