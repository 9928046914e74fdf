package persona

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hazyhaar/figurant/docfetch"
	"github.com/hazyhaar/figurant/llm"
)

var testCampaign = CampaignContext{
	Matter:            "defective hip implant recall",
	Keywords:          "hip implant, revision surgery",
	TargetDescription: "adults 45-70 who received the recalled implant",
}

const generationReply = "Here are the personas:\n```json\n" + `[
  {
    "name": "Maria Santos",
    "age": 42,
    "location": "San Antonio, TX",
    "occupation": "warehouse supervisor",
    "bio": "Maria raised three kids on night shifts and overtime, and the recall notice arrived the week her hip pain forced her onto light duty.",
    "interests": ["church", "gardening"],
    "motivations": ["cover medical bills"],
    "barriers": ["distrust of lawyers"],
    "communication_style": "plain-spoken, prefers text messages",
    "example_quote": "I just want answers.",
    "sources": ["demographic_data: census brief"],
    "confidence": 0.8
  },
  {
    "name": "James Okafor",
    "age": "55",
    "location": "Houston, TX",
    "occupation": "rig inspector",
    "bio": "James put off the revision surgery twice because the rig schedule never let up, and now the stairs to the platform are the hardest part of his day.",
    "interests": ["fishing"],
    "motivations": ["get the surgery covered"],
    "barriers": ["fear of being benched at work"],
    "communication_style": "direct, phone calls",
    "example_quote": "Tell it to me straight.",
    "sources": [],
    "confidence": 0.75
  }
]` + "\n```"

func demographicsBundle() *ResearchBundle {
	return &ResearchBundle{
		Topics: map[string]ResearchTopic{
			"demographics": {
				RequestType: "demographics",
				Query:       "Provide current demographic data",
				Content:     "Recipients skew 45-70, working class, concentrated in Texas and Florida.",
			},
		},
	}
}

func generatorService(client llm.Client) *Service {
	return New(ServiceConfig{Client: client}, nil)
}

// WHAT: a generation request grounds the prompt in the evidence, builds
// personas from the reply, attaches research provenance, and validates
// the batch.
func TestGeneratePersonas(t *testing.T) {
	var captured llm.Prompt
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		captured = pr
		return generationReply, nil
	})
	s := generatorService(client)

	res, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.Contains(captured.User, "Create exactly 2 distinct personas") {
		t.Errorf("prompt count missing: %q", captured.User)
	}
	if !strings.Contains(captured.User, "Recipients skew 45-70") {
		t.Error("prompt must carry the research evidence")
	}

	if len(res.Personas) != 2 {
		t.Fatalf("personas = %d; validation = %+v", len(res.Personas), res.Validation)
	}
	maria := res.Personas[0]
	if maria.Status != StatusGenerated {
		t.Errorf("status = %q", maria.Status)
	}
	// Quoted age still coerces.
	if res.Personas[1].Age != 55 {
		t.Errorf("james age = %d", res.Personas[1].Age)
	}
	// Seed citations stay first; research provenance is appended.
	if maria.Sources[0] != "demographic_data: census brief" {
		t.Errorf("sources = %v", maria.Sources)
	}
	hasProv := false
	for _, src := range maria.Sources {
		if src == "research:demographics" {
			hasProv = true
		}
	}
	if !hasProv {
		t.Errorf("research provenance missing: %v", maria.Sources)
	}

	if res.Validation.Valid != 2 || res.Validation.Invalid != 0 {
		t.Errorf("validation = %+v", res.Validation)
	}
	if res.Sufficiency < 0.3 || res.Sufficiency > 0.34 {
		t.Errorf("sufficiency = %v, want 1/3", res.Sufficiency)
	}
	found := false
	for _, u := range res.SourcesUsed {
		if u == "demographic_data" {
			found = true
		}
	}
	if !found {
		t.Errorf("sources used = %v", res.SourcesUsed)
	}
	if res.GeneratedAt.IsZero() {
		t.Error("generated_at not stamped")
	}
}

// WHAT: zero populated generation-relevant categories fail fast naming
// them, before any model call.
func TestGeneratePersonas_InsufficientData(t *testing.T) {
	var calls atomic.Int32
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		calls.Add(1)
		return generationReply, nil
	})
	s := generatorService(client)

	_, err := s.GeneratePersonas(context.Background(), testCampaign, nil, nil, 3)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "demographic_data") {
		t.Errorf("error should name the missing categories: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("model calls = %d, want 0", calls.Load())
	}
}

// WHAT: a complaint upload informs prompts but does not count toward
// sufficiency; a research upload does.
func TestGeneratePersonas_ClientDataExcluded(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return generationReply, nil
	})
	s := generatorService(client)

	complaint := docfetch.Excerpt{URL: "https://cdn.example.com/complaint.pdf", Kind: docfetch.KindComplaint, Text: "Count II: strict liability."}
	if _, err := s.GeneratePersonas(context.Background(), testCampaign, []docfetch.Excerpt{complaint}, nil, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("complaint-only err = %v, want ErrInsufficientData", err)
	}

	research := docfetch.Excerpt{URL: "https://cdn.example.com/market.pdf", Kind: docfetch.KindResearch, Text: "Survey of implant recipients."}
	res, err := s.GeneratePersonas(context.Background(), testCampaign, []docfetch.Excerpt{research}, nil, 3)
	if err != nil {
		t.Fatalf("research-upload err = %v", err)
	}
	if len(res.Personas) == 0 {
		t.Fatal("expected personas from a sufficient request")
	}
}

// WHAT: an empty model array is zero personas and a zero-valid summary,
// not an error.
func TestGeneratePersonas_EmptyArray(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "[]", nil
	})
	s := generatorService(client)

	res, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(res.Personas) != 0 || res.Validation.Valid != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestGeneratePersonas_UnparsableReply(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "I cannot help with that.", nil
	})
	s := generatorService(client)

	res, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(res.Personas) != 0 {
		t.Fatalf("personas = %d", len(res.Personas))
	}
}

// WHAT: the requested count defaults to 3 and caps at 10.
func TestGeneratePersonas_CountBounds(t *testing.T) {
	var captured llm.Prompt
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		captured = pr
		return "[]", nil
	})
	s := generatorService(client)

	if _, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(captured.User, "exactly 3 distinct") {
		t.Errorf("default count prompt: %q", captured.User)
	}

	if _, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 99); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(captured.User, "exactly 10 distinct") {
		t.Errorf("capped count prompt: %q", captured.User)
	}
}

// WHAT: weak seeds are excluded silently; the summary carries the drop.
func TestGeneratePersonas_DropsWeakSeeds(t *testing.T) {
	weak := `[
  {"name": "No Bio", "age": 30, "motivations": ["m"], "barriers": ["b"], "communication_style": "curt", "confidence": 0.9, "sources": ["x"]},
  {
    "name": "Maria Santos", "age": 42,
    "bio": "Maria raised three kids on night shifts and overtime, and the recall notice arrived the week her hip pain forced her onto light duty.",
    "motivations": ["cover medical bills"], "barriers": ["distrust of lawyers"],
    "communication_style": "plain-spoken", "confidence": 0.8, "sources": ["demographic_data"]
  }
]`
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return weak, nil
	})
	s := generatorService(client)

	res, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(res.Personas) != 1 || res.Personas[0].Name != "Maria Santos" {
		t.Fatalf("personas = %+v", res.Personas)
	}
	if res.Validation.Invalid != 1 {
		t.Errorf("validation = %+v", res.Validation)
	}
}

func TestGeneratePersonas_NotConfigured(t *testing.T) {
	s := New(ServiceConfig{}, nil)
	if _, err := s.GeneratePersonas(context.Background(), testCampaign, nil, demographicsBundle(), 3); !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestGeneratePersonas_MatterRequired(t *testing.T) {
	client := llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "[]", nil
	})
	s := generatorService(client)
	if _, err := s.GeneratePersonas(context.Background(), CampaignContext{}, nil, demographicsBundle(), 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}
