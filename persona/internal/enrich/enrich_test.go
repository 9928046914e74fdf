package enrich

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/model"
	"github.com/hazyhaar/figurant/persona/internal/reply"
)

var testCampaign = model.CampaignContext{
	Matter:            "defective hip implant recall",
	Keywords:          "hip implant, revision surgery",
	TargetDescription: "adults 45-70 who received the recalled implant",
}

const socialReply = `Here is the enrichment you asked for:
{
  "enrichedFields": {
    "occupation": "shift supervisor at a distribution center",
    "interests": ["youth soccer", "true crime podcasts"],
    "social_media_profiles": {"facebook": "daily user, local groups"}
  },
  "confidence": 0.75,
  "insights": "Works rotating shifts, reachable evenings.",
  "sources": ["inference from occupation and region"]
}`

const legalReply = `{
  "legal_motivations": ["recover lost wages", "hold manufacturer accountable"],
  "legal_barriers": ["fear of retaliation"],
  "case_concerns": ["statute of limitations"],
  "preferred_communication": "evening phone calls",
  "decision_timeline": "30-60 days",
  "trust_factors": ["local attorney"],
  "confidence_delta": 0.1,
  "insights": "Excerpts align with the persona's situation."
}`

func roster(names ...string) []model.Persona {
	ps := make([]model.Persona, len(names))
	for i, n := range names {
		ps[i] = model.Persona{
			Name:      n,
			Age:       40 + i,
			Interests: []string{"youth soccer"},
			Status:    model.StatusValidated,
		}
	}
	return ps
}

// WHAT: stage A merges reply fields additively, attaches the Enrichment
// record, moves status to socially_enriched, and reports progress around
// every item.
// WHY: the enrichment contract is append-only; imported attributes must
// survive and the caller needs per-item progress for UI.
func TestEnrichSocial(t *testing.T) {
	var calls, active atomic.Int32
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		if active.Add(1) != 1 {
			t.Error("stage A must process personas one at a time")
		}
		defer active.Add(-1)
		calls.Add(1)
		return socialReply, nil
	})

	var updates []Update
	pl := New(Config{Client: client, Progress: func(u Update) { updates = append(updates, u) }}, nil)

	got := pl.EnrichSocial(context.Background(), roster("Maria Santos", "James Okafor"), testCampaign)

	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}
	for i := range got {
		p := &got[i]
		if p.Status != model.StatusSociallyEnriched {
			t.Errorf("%s status = %q", p.Name, p.Status)
		}
		if p.Enrichment == nil || p.Enrichment.Status != model.EnrichmentEnriched {
			t.Fatalf("%s enrichment record: %+v", p.Name, p.Enrichment)
		}
		if p.Occupation != "shift supervisor at a distribution center" {
			t.Errorf("%s occupation = %q", p.Name, p.Occupation)
		}
		// "youth soccer" was already present; only the new interest lands.
		if len(p.Interests) != 2 || p.Interests[1] != "true crime podcasts" {
			t.Errorf("%s interests = %v", p.Name, p.Interests)
		}
		if p.SocialMediaProfiles["facebook"] == "" {
			t.Errorf("%s social profiles = %v", p.Name, p.SocialMediaProfiles)
		}
		if p.Confidence != 0.75 || p.Enrichment.Confidence != 0.75 {
			t.Errorf("%s confidence = %v / %v", p.Name, p.Confidence, p.Enrichment.Confidence)
		}
		if len(p.Enrichment.EnrichedFields) == 0 {
			t.Errorf("%s enriched fields empty", p.Name)
		}
		if p.Enrichment.EnrichedAt.IsZero() || p.UpdatedAt.IsZero() {
			t.Errorf("%s timestamps not stamped", p.Name)
		}
	}

	want := []Update{
		{Current: 1, Total: 2, PersonaName: "Maria Santos", Status: StatusEnriching},
		{Current: 1, Total: 2, PersonaName: "Maria Santos", Status: StatusCompleted},
		{Current: 2, Total: 2, PersonaName: "James Okafor", Status: StatusEnriching},
		{Current: 2, Total: 2, PersonaName: "James Okafor", Status: StatusCompleted},
	}
	if len(updates) != len(want) {
		t.Fatalf("updates = %+v", updates)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Errorf("update[%d] = %+v, want %+v", i, updates[i], want[i])
		}
	}
}

// WHAT: a model failure marks that one persona failed with its original
// fields intact and the walk continues to the rest.
func TestEnrichSocial_PerItemFailure(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		if strings.Contains(pr.User, "Edna Failing") {
			return "", errors.New("rate limited")
		}
		return socialReply, nil
	})
	var updates []Update
	pl := New(Config{Client: client, Progress: func(u Update) { updates = append(updates, u) }}, nil)

	got := pl.EnrichSocial(context.Background(), roster("Edna Failing", "Maria Santos"), testCampaign)

	bad := got[0]
	if bad.Status != model.StatusFailed {
		t.Errorf("failed persona status = %q", bad.Status)
	}
	if bad.Enrichment == nil || bad.Enrichment.Status != model.EnrichmentFailed {
		t.Fatalf("failed record: %+v", bad.Enrichment)
	}
	if bad.Enrichment.Error == "" || bad.Error == "" {
		t.Error("error text must be recorded")
	}
	if bad.Occupation != "" || len(bad.Interests) != 1 {
		t.Errorf("failure must not touch fields: %q %v", bad.Occupation, bad.Interests)
	}

	if got[1].Status != model.StatusSociallyEnriched {
		t.Errorf("walk did not continue: %q", got[1].Status)
	}
	if updates[1].Status != StatusFailed {
		t.Errorf("progress for failed item = %+v", updates[1])
	}
}

// WHAT: an unparsable reply degrades to the fallback record: confidence
// capped at the documented floor, fields untouched, status still
// socially_enriched.
// WHY: parse errors resolve locally to a defined fallback, never to a
// batch failure.
func TestEnrichSocial_ParseFallback(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "I am sorry, I cannot produce JSON today.", nil
	})
	pl := New(Config{Client: client}, nil)

	got := pl.EnrichSocial(context.Background(), roster("Maria Santos"), testCampaign)
	p := got[0]

	if p.Status != model.StatusSociallyEnriched {
		t.Errorf("status = %q", p.Status)
	}
	if p.Enrichment.Status != model.EnrichmentEnriched {
		t.Errorf("record status = %q", p.Enrichment.Status)
	}
	if p.Confidence > reply.FallbackConfidence {
		t.Errorf("fallback confidence = %v, want <= %v", p.Confidence, reply.FallbackConfidence)
	}
	if p.Occupation != "" || len(p.Enrichment.EnrichedFields) != 0 {
		t.Errorf("fallback must not invent fields: %q %v", p.Occupation, p.Enrichment.EnrichedFields)
	}
	if p.Enrichment.Insights == "" {
		t.Error("fallback must carry an explanatory note")
	}
}

// WHAT: after stage A every persona has an enrichment record in a
// terminal state and its name is untouched.
func TestEnrichSocial_RecordInvariant(t *testing.T) {
	var n atomic.Int32
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		if n.Add(1)%2 == 0 {
			return "", errors.New("intermittent upstream failure")
		}
		return socialReply, nil
	})
	pl := New(Config{Client: client}, nil)

	names := []string{"Ana", "Ben", "Cleo", "Dev"}
	got := pl.EnrichSocial(context.Background(), roster(names...), testCampaign)

	for i, p := range got {
		if p.Enrichment == nil {
			t.Fatalf("%s has no enrichment record", p.Name)
		}
		if s := p.Enrichment.Status; s != model.EnrichmentEnriched && s != model.EnrichmentFailed {
			t.Errorf("%s record status = %q", p.Name, s)
		}
		if p.Name != names[i] {
			t.Errorf("name changed: %q -> %q", names[i], p.Name)
		}
	}
}

func TestEnrichSocial_ContextCanceled(t *testing.T) {
	var calls atomic.Int32
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		calls.Add(1)
		return socialReply, nil
	})
	pl := New(Config{Client: client}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := pl.EnrichSocial(ctx, roster("Maria Santos"), testCampaign)

	if calls.Load() != 0 {
		t.Fatalf("calls after cancel = %d", calls.Load())
	}
	if got[0].Status != model.StatusValidated {
		t.Errorf("canceled walk must leave personas untouched, status = %q", got[0].Status)
	}
}

// WHAT: stage B folds additions into LegalProfile, applies the clamped
// confidence delta, and keeps stage A's record alongside its own.
func TestEnrichLegal(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return legalReply, nil
	})
	pl := New(Config{Client: client}, nil)

	ps := roster("Maria Santos")
	ps[0].Status = model.StatusSociallyEnriched
	ps[0].Confidence = 0.75
	ps[0].Enrichment = &model.EnrichmentRecord{Status: model.EnrichmentEnriched}

	excerpts := []model.Evidence{{Content: "Amended complaint, count II.", Source: "complaint.pdf", Type: "complaint"}}
	got := pl.EnrichLegal(context.Background(), ps, testCampaign, excerpts)
	p := got[0]

	if p.Status != model.StatusLegallyEnriched {
		t.Errorf("status = %q", p.Status)
	}
	if p.LegalProfile["legal_motivations"] != "recover lost wages; hold manufacturer accountable" {
		t.Errorf("legal_motivations = %q", p.LegalProfile["legal_motivations"])
	}
	if p.LegalProfile["preferred_communication"] != "evening phone calls" {
		t.Errorf("preferred_communication = %q", p.LegalProfile["preferred_communication"])
	}
	if math.Abs(p.Confidence-0.85) > 1e-9 {
		t.Errorf("confidence = %v, want 0.85", p.Confidence)
	}
	if p.EnrichmentMeta == nil || p.EnrichmentMeta.Status != model.EnrichmentEnriched {
		t.Fatalf("stage B record: %+v", p.EnrichmentMeta)
	}
	if len(p.EnrichmentMeta.EnrichedFields) != 6 {
		t.Errorf("enriched fields = %v", p.EnrichmentMeta.EnrichedFields)
	}
	// Both stage records coexist.
	if p.Enrichment == nil || p.Enrichment.Status != model.EnrichmentEnriched {
		t.Errorf("stage A record lost: %+v", p.Enrichment)
	}
}

func TestEnrichLegal_DeltaClamped(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return `{"legal_motivations": ["x"], "confidence_delta": 0.9, "insights": "n"}`, nil
	})
	pl := New(Config{Client: client}, nil)

	ps := roster("Maria Santos")
	ps[0].Confidence = 0.95
	got := pl.EnrichLegal(context.Background(), ps, testCampaign, nil)
	if got[0].Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamp to 1.0", got[0].Confidence)
	}

	client = llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return `{"legal_motivations": ["x"], "confidence_delta": -0.5, "insights": "n"}`, nil
	})
	pl = New(Config{Client: client}, nil)
	ps = roster("Maria Santos")
	ps[0].Confidence = 0.2
	got = pl.EnrichLegal(context.Background(), ps, testCampaign, nil)
	if got[0].Confidence != 0.0 {
		t.Errorf("confidence = %v, want clamp to 0.0", got[0].Confidence)
	}
}

// WHAT: a persona that failed stage A is still processed for additions
// but keeps its failed status.
func TestEnrichLegal_FailedPersonaKeepsStatus(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return legalReply, nil
	})
	pl := New(Config{Client: client}, nil)

	ps := roster("Edna Failing")
	ps[0].Status = model.StatusFailed
	ps[0].Error = "rate limited"
	ps[0].Enrichment = &model.EnrichmentRecord{Status: model.EnrichmentFailed, Error: "rate limited"}

	got := pl.EnrichLegal(context.Background(), ps, testCampaign, nil)
	p := got[0]

	if p.Status != model.StatusFailed {
		t.Errorf("status = %q, failed must stick", p.Status)
	}
	if p.LegalProfile["legal_motivations"] == "" {
		t.Error("best-effort additions must still be recorded")
	}
	if p.EnrichmentMeta == nil || p.EnrichmentMeta.Status != model.EnrichmentEnriched {
		t.Errorf("stage B record: %+v", p.EnrichmentMeta)
	}
}

func TestEnrichLegal_PerItemFailure(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "", errors.New("timeout")
	})
	pl := New(Config{Client: client}, nil)

	ps := roster("Maria Santos")
	ps[0].Status = model.StatusSociallyEnriched
	ps[0].Enrichment = &model.EnrichmentRecord{Status: model.EnrichmentEnriched}

	got := pl.EnrichLegal(context.Background(), ps, testCampaign, nil)
	p := got[0]

	if p.Status != model.StatusFailed {
		t.Errorf("status = %q", p.Status)
	}
	if p.EnrichmentMeta == nil || p.EnrichmentMeta.Status != model.EnrichmentFailed {
		t.Fatalf("stage B record: %+v", p.EnrichmentMeta)
	}
	if p.Enrichment.Status != model.EnrichmentEnriched {
		t.Error("stage A record must survive a stage B failure")
	}
}

// WHAT: an unparsable stage B reply records an explanatory note, leaves
// the profile and confidence alone, and still completes the stage.
func TestEnrichLegal_ParseFallback(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "no json here", nil
	})
	pl := New(Config{Client: client}, nil)

	ps := roster("Maria Santos")
	ps[0].Status = model.StatusSociallyEnriched
	ps[0].Confidence = 0.6
	got := pl.EnrichLegal(context.Background(), ps, testCampaign, nil)
	p := got[0]

	if p.Status != model.StatusLegallyEnriched {
		t.Errorf("status = %q", p.Status)
	}
	if len(p.LegalProfile) != 0 {
		t.Errorf("profile must stay empty: %v", p.LegalProfile)
	}
	if p.Confidence != 0.6 {
		t.Errorf("confidence = %v, want unchanged", p.Confidence)
	}
	if p.EnrichmentMeta.Insights == "" {
		t.Error("fallback must carry an explanatory note")
	}
}

func TestApplyAdditions_NoBlanking(t *testing.T) {
	p := &model.Persona{LegalProfile: map[string]string{"decision_timeline": "already known"}}
	applied := applyAdditions(p, reply.Additions{LegalMotivations: []string{"a"}})
	if p.LegalProfile["decision_timeline"] != "already known" {
		t.Errorf("existing key blanked: %v", p.LegalProfile)
	}
	if len(applied) != 1 || applied[0] != "legal_motivations" {
		t.Errorf("applied = %v", applied)
	}
}
