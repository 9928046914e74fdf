package model

import (
	"testing"
)

// WHAT: Verifies Clamp01 pins out-of-range confidences to the [0,1] edges
// and passes in-range values through.
// WHY: Model replies routinely report confidence 1.4 or -0.2; stored
// confidence must stay on the canonical scale.
func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.4, 1.0},
		{-0.2, 0.0},
		{0.0, 0.0},
		{1.0, 1.0},
		{0.75, 0.75},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampDelta(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.0, 1.0},
		{-3.0, -1.0},
		{0.15, 0.15},
		{-0.4, -0.4},
	}
	for _, tt := range tests {
		if got := ClampDelta(tt.in); got != tt.want {
			t.Errorf("ClampDelta(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// WHAT: Applies a patch to a partially filled persona and checks merge
// rules: scalars fill only when provided, lists union without duplicates,
// maps merge per key, nothing pre-existing is dropped.
// WHY: Enrichment must be additive; a reply that omits a field must not
// blank what an import already knew.
func TestPatch_Apply(t *testing.T) {
	p := &Persona{
		Name:      "Maria Santos",
		Location:  "Phoenix, AZ",
		Interests: []string{"church", "family"},
		SocialMediaProfiles: map[string]string{
			"facebook": "daily user",
		},
	}

	patch := Patch{
		Occupation: "warehouse worker",
		Location:   "", // absent: must not blank the import value
		Interests:  []string{"family", "telenovelas"},
		SocialMediaProfiles: map[string]string{
			"facebook":  "daily user, groups",
			"instagram": "occasional",
		},
	}

	changed := patch.Apply(p)

	if p.Location != "Phoenix, AZ" {
		t.Errorf("Location overwritten: %q", p.Location)
	}
	if p.Occupation != "warehouse worker" {
		t.Errorf("Occupation = %q", p.Occupation)
	}
	wantInterests := []string{"church", "family", "telenovelas"}
	if len(p.Interests) != len(wantInterests) {
		t.Fatalf("Interests = %v, want %v", p.Interests, wantInterests)
	}
	for i, v := range wantInterests {
		if p.Interests[i] != v {
			t.Errorf("Interests[%d] = %q, want %q", i, p.Interests[i], v)
		}
	}
	if p.SocialMediaProfiles["facebook"] != "daily user, groups" {
		t.Errorf("facebook = %q", p.SocialMediaProfiles["facebook"])
	}
	if p.SocialMediaProfiles["instagram"] != "occasional" {
		t.Errorf("instagram = %q", p.SocialMediaProfiles["instagram"])
	}

	wantChanged := map[string]bool{
		"occupation":            true,
		"interests":             true,
		"social_media_profiles": true,
	}
	if len(changed) != len(wantChanged) {
		t.Fatalf("changed = %v", changed)
	}
	for _, name := range changed {
		if !wantChanged[name] {
			t.Errorf("unexpected changed field %q", name)
		}
	}
}

func TestPatch_ApplyEmpty(t *testing.T) {
	p := &Persona{Name: "Jim", Bio: "retired"}
	changed := Patch{}.Apply(p)
	if len(changed) != 0 {
		t.Fatalf("empty patch changed %v", changed)
	}
	if p.Bio != "retired" {
		t.Fatalf("Bio = %q", p.Bio)
	}
}

// WHAT: Checks SourceContext sufficiency counts only the three
// generation-relevant categories.
// WHY: client_data (complaint excerpts) informs prompts but must not make
// an otherwise evidence-free request look sufficient.
func TestSourceContext_Sufficiency(t *testing.T) {
	ev := Evidence{Content: "x", Source: "s", Type: "t"}

	empty := &SourceContext{}
	if got := empty.Sufficiency(); got != 0 {
		t.Errorf("empty sufficiency = %v", got)
	}

	clientOnly := &SourceContext{ClientData: []Evidence{ev}}
	if got := clientOnly.Sufficiency(); got != 0 {
		t.Errorf("client-only sufficiency = %v, want 0", got)
	}

	two := &SourceContext{
		DemographicData: []Evidence{ev},
		SocialInsights:  []Evidence{ev},
	}
	if got := two.Sufficiency(); got < 0.66 || got > 0.67 {
		t.Errorf("two-category sufficiency = %v, want 2/3", got)
	}

	full := &SourceContext{
		DemographicData:  []Evidence{ev},
		SocialInsights:   []Evidence{ev},
		ConsumerBehavior: []Evidence{ev},
	}
	if got := full.Sufficiency(); got != 1 {
		t.Errorf("full sufficiency = %v", got)
	}
}
