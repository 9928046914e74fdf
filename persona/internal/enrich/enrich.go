// Package enrich walks persona rosters through the two model-backed
// enrichment stages. Stage A (social/professional) merges reply fields
// additively; stage B (legal/document) records additions only. Both
// stages isolate per-item failures: a bad persona is marked and kept,
// never dropped, and the walk continues.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/model"
	"github.com/hazyhaar/figurant/persona/internal/prompt"
	"github.com/hazyhaar/figurant/persona/internal/reply"
)

// Per-item progress statuses.
const (
	StatusEnriching = "enriching"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Update is one progress report, emitted before and after each item.
type Update struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	PersonaName string `json:"persona_name"`
	Status      string `json:"status"`
}

// Callback receives progress updates. Updates feed UI progress only and
// never influence control flow.
type Callback func(Update)

// Config wires a Pipeline.
type Config struct {
	// Client should already be paced (llm.NewPaced). The pipeline walks
	// personas strictly one at a time and relies on the client for
	// inter-call spacing.
	Client   llm.Client
	Progress Callback
}

// Pipeline runs the enrichment stages.
type Pipeline struct {
	client   llm.Client
	progress Callback
	log      *slog.Logger
}

// New creates a Pipeline. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{client: cfg.Client, progress: cfg.Progress, log: logger}
}

func (pl *Pipeline) report(u Update) {
	if pl.progress != nil {
		pl.progress(u)
	}
}

// EnrichSocial runs stage A over the roster in order, one model call per
// persona. Parsed fields merge additively onto the persona, the stage A
// record lands in Enrichment, and the persona's confidence takes the
// reply's measurement. The roster is mutated in place and returned.
func (pl *Pipeline) EnrichSocial(ctx context.Context, personas []model.Persona, campaign model.CampaignContext) []model.Persona {
	total := len(personas)
	for i := range personas {
		if ctx.Err() != nil {
			pl.log.Warn("social enrichment aborted", "done", i, "total", total, "error", ctx.Err())
			break
		}
		p := &personas[i]
		pl.report(Update{Current: i + 1, Total: total, PersonaName: p.Name, Status: StatusEnriching})

		text, err := pl.client.Complete(ctx, prompt.SocialEnrichment(p, campaign))
		now := time.Now().UTC()
		if err != nil {
			pl.log.Warn("social enrichment failed", "persona", p.Name, "error", err)
			p.Enrichment = failedRecord(err, now)
			p.Status = model.StatusFailed
			p.Error = err.Error()
			p.UpdatedAt = now
			pl.report(Update{Current: i + 1, Total: total, PersonaName: p.Name, Status: StatusFailed})
			continue
		}

		enr := reply.ParseEnrichment(text)
		if enr.Fallback {
			pl.log.Warn("social enrichment degraded to fallback", "persona", p.Name, "note", enr.Insights)
		}
		changed := enr.Fields.Apply(p)
		p.Enrichment = &model.EnrichmentRecord{
			Status:         model.EnrichmentEnriched,
			Sources:        enr.Sources,
			Confidence:     enr.Confidence,
			EnrichedFields: changed,
			Insights:       enr.Insights,
			EnrichedAt:     now,
		}
		p.Status = model.StatusSociallyEnriched
		p.Confidence = enr.Confidence
		p.UpdatedAt = now
		pl.report(Update{Current: i + 1, Total: total, PersonaName: p.Name, Status: StatusCompleted})
	}
	return personas
}

// EnrichLegal runs stage B over the roster: additions only, folded into
// LegalProfile and recorded in EnrichmentMeta alongside stage A's record.
// The reply's confidence delta adjusts the persona's confidence, clamped
// to [0,1]. Personas already failed are still attempted so their
// additions are kept, but the failed status is not overwritten.
func (pl *Pipeline) EnrichLegal(ctx context.Context, personas []model.Persona, campaign model.CampaignContext, excerpts []model.Evidence) []model.Persona {
	total := len(personas)
	for i := range personas {
		if ctx.Err() != nil {
			pl.log.Warn("legal enrichment aborted", "done", i, "total", total, "error", ctx.Err())
			break
		}
		p := &personas[i]
		pl.report(Update{Current: i + 1, Total: total, PersonaName: p.Name, Status: StatusEnriching})

		text, err := pl.client.Complete(ctx, prompt.LegalEnrichment(p, campaign, excerpts))
		now := time.Now().UTC()
		if err != nil {
			pl.log.Warn("legal enrichment failed", "persona", p.Name, "error", err)
			p.EnrichmentMeta = failedRecord(err, now)
			p.Status = model.StatusFailed
			p.Error = err.Error()
			p.UpdatedAt = now
			pl.report(Update{Current: i + 1, Total: total, PersonaName: p.Name, Status: StatusFailed})
			continue
		}

		adds := reply.ParseAdditions(text)
		if adds.Fallback {
			pl.log.Warn("legal enrichment degraded to fallback", "persona", p.Name, "note", adds.Insights)
		}
		applied := applyAdditions(p, adds)
		p.Confidence = model.Clamp01(p.Confidence + adds.ConfidenceDelta)
		p.EnrichmentMeta = &model.EnrichmentRecord{
			Status:         model.EnrichmentEnriched,
			Confidence:     p.Confidence,
			EnrichedFields: applied,
			Insights:       adds.Insights,
			EnrichedAt:     now,
		}
		if p.Status != model.StatusFailed {
			p.Status = model.StatusLegallyEnriched
		}
		p.UpdatedAt = now
		pl.report(Update{Current: i + 1, Total: total, PersonaName: p.Name, Status: StatusCompleted})
	}
	return personas
}

func failedRecord(err error, now time.Time) *model.EnrichmentRecord {
	return &model.EnrichmentRecord{
		Status:     model.EnrichmentFailed,
		Error:      err.Error(),
		EnrichedAt: now,
	}
}

// applyAdditions folds stage B additions into the persona's LegalProfile.
// Keys are written only when the reply provides content, so reruns never
// blank an earlier value. Returns the keys written, in prompt order.
func applyAdditions(p *model.Persona, a reply.Additions) []string {
	var applied []string
	put := func(key, v string) {
		if v == "" {
			return
		}
		if p.LegalProfile == nil {
			p.LegalProfile = make(map[string]string)
		}
		if p.LegalProfile[key] != v {
			p.LegalProfile[key] = v
			applied = append(applied, key)
		}
	}
	put("legal_motivations", joinItems(a.LegalMotivations))
	put("legal_barriers", joinItems(a.LegalBarriers))
	put("case_concerns", joinItems(a.CaseConcerns))
	put("preferred_communication", a.PreferredCommunication)
	put("decision_timeline", a.DecisionTimeline)
	put("trust_factors", joinItems(a.TrustFactors))
	return applied
}

func joinItems(items []string) string {
	return strings.Join(items, "; ")
}
