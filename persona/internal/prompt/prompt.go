// Package prompt builds the model instructions for every persona
// operation. All functions are pure string construction; absent persona
// attributes render as "Unknown" so prompts never leak empty braces.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/model"
)

// Unknown is the placeholder rendered for absent attributes.
const Unknown = "Unknown"

// Generation asks for exactly count personas as a JSON array grounded in
// the supplied evidence.
func Generation(campaign model.CampaignContext, src *model.SourceContext, count int) llm.Prompt {
	var sb strings.Builder
	sb.WriteString("You are an expert audience researcher for legal-advertising campaigns.\n")
	sb.WriteString("Create realistic consumer personas strictly grounded in the evidence provided.\n\n")

	writeCampaign(&sb, campaign)

	sb.WriteString("EVIDENCE:\n")
	writeEvidence(&sb, "Demographic data", src.DemographicData)
	writeEvidence(&sb, "Social insights", src.SocialInsights)
	writeEvidence(&sb, "Consumer behavior", src.ConsumerBehavior)
	writeEvidence(&sb, "Client data", src.ClientData)

	fmt.Fprintf(&sb, "\nCreate exactly %d distinct personas of likely claimants for this matter.\n", count)
	sb.WriteString("Each persona must cite which evidence sources informed it.\n\n")
	sb.WriteString("Respond ONLY with a JSON array shaped exactly like this example:\n")
	sb.WriteString(`[
  {
    "name": "Maria Santos",
    "age": 42,
    "location": "Phoenix, AZ",
    "occupation": "warehouse worker",
    "education": "high school",
    "income": "$35,000",
    "bio": "A two-sentence life story grounded in the evidence.",
    "interests": ["family", "church"],
    "motivations": ["medical bills piling up", "fear of losing work"],
    "barriers": ["distrust of lawyers", "cost uncertainty"],
    "communication_style": "plain-spoken, prefers text messages",
    "example_quote": "I just want someone to tell me straight what my options are.",
    "sources": ["demographic_data: census brief", "social_insights: forum threads"],
    "confidence": 0.8
  }
]`)
	sb.WriteString("\nNo prose before or after the array.")

	return llm.Prompt{
		System: "You respond only with valid JSON. Never include explanations outside the JSON payload.",
		User:   sb.String(),
	}
}

// SocialEnrichment asks for social/professional additions to one persona.
func SocialEnrichment(p *model.Persona, campaign model.CampaignContext) llm.Prompt {
	var sb strings.Builder
	sb.WriteString("Enrich the following consumer persona for a legal-advertising campaign.\n\n")

	writeCampaign(&sb, campaign)
	writeAttributes(&sb, p)

	sb.WriteString("\nResearch and infer the following categories:\n")
	sb.WriteString("1. Social media presence (platforms, usage patterns)\n")
	sb.WriteString("2. Professional background and work environment\n")
	sb.WriteString("3. Interests and affiliations\n")
	sb.WriteString("4. Communication preferences\n")
	sb.WriteString("5. Attitudes toward legal services\n\n")

	sb.WriteString("Respond ONLY with a JSON object shaped exactly like this example:\n")
	sb.WriteString(`{
  "enrichedFields": {
    "occupation": "shift supervisor at a distribution center",
    "interests": ["youth soccer", "true crime podcasts"],
    "communication_style": "direct, responds best to voice calls",
    "social_media_profiles": {"facebook": "daily user, local groups"},
    "professional_details": {"schedule": "rotating shifts", "union_member": "yes"}
  },
  "confidence": 0.75,
  "insights": "One short paragraph of observations.",
  "sources": ["inference from occupation and region"]
}`)
	sb.WriteString("\nOmit any field you cannot support; never invent contradictions with the known attributes.")

	return llm.Prompt{
		System: "You respond only with valid JSON. Never include explanations outside the JSON payload.",
		User:   sb.String(),
	}
}

// LegalEnrichment asks for legal-context additions only, derived from the
// supplied document and research excerpts.
func LegalEnrichment(p *model.Persona, campaign model.CampaignContext, excerpts []model.Evidence) llm.Prompt {
	var sb strings.Builder
	sb.WriteString("Add legal-context attributes to the following persona.\n")
	sb.WriteString("Provide ADDITIONS ONLY; do not restate or modify existing attributes.\n\n")

	writeCampaign(&sb, campaign)
	writeAttributes(&sb, p)

	if len(excerpts) > 0 {
		sb.WriteString("\nCASE MATERIAL EXCERPTS:\n")
		for _, ev := range excerpts {
			fmt.Fprintf(&sb, "--- %s (%s)\n%s\n", ev.Source, ev.Type, ev.Content)
		}
	}

	sb.WriteString("\nDerive, strictly from the material above and the campaign matter:\n")
	sb.WriteString("- legal motivations and legal barriers specific to this persona\n")
	sb.WriteString("- case-specific concerns\n")
	sb.WriteString("- preferred communication for legal outreach\n")
	sb.WriteString("- decision timeline\n")
	sb.WriteString("- trust factors\n\n")

	sb.WriteString("Respond ONLY with a JSON object shaped exactly like this example:\n")
	sb.WriteString(`{
  "legal_motivations": ["recover lost wages"],
  "legal_barriers": ["fear of retaliation"],
  "case_concerns": ["statute of limitations"],
  "preferred_communication": "evening phone calls",
  "decision_timeline": "30-60 days, consults spouse first",
  "trust_factors": ["local attorney", "no-win-no-fee"],
  "confidence_delta": 0.1,
  "insights": "One short paragraph tying the additions to the excerpts."
}`)
	sb.WriteString("\nUse a negative confidence_delta when the material contradicts the persona.")

	return llm.Prompt{
		System: "You respond only with valid JSON. Never include explanations outside the JSON payload.",
		User:   sb.String(),
	}
}

// Chat frames a single in-character reply from the persona.
func Chat(p *model.Persona, message string) llm.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a real person, not an assistant.\n", orUnknown(p.Name))
	sb.WriteString("Stay fully in character and answer from your own life and circumstances.\n\n")
	writeAttributes(&sb, p)
	sb.WriteString("\nAnswer in your own voice, one reply, no meta commentary about being a persona.")

	return llm.Prompt{
		System: sb.String(),
		User:   message,
	}
}

// Research topics queried by the collector.
const (
	TopicDemographics     = "demographics"
	TopicSocialSentiment  = "social_sentiment"
	TopicLegalTrends      = "legal_trends"
	TopicConsumerBehavior = "consumer_behavior"
)

// ResearchTopic builds the query for one research topic.
func ResearchTopic(topic string, campaign model.CampaignContext) llm.Prompt {
	target := orUnknown(campaign.TargetDescription)
	matter := orUnknown(campaign.Matter)

	var user string
	switch topic {
	case TopicDemographics:
		user = fmt.Sprintf(
			"Provide current demographic data about people affected by %s. Focus on: %s. Include age ranges, income levels, geographic concentration, and education. Cite sources.",
			matter, target)
	case TopicSocialSentiment:
		user = fmt.Sprintf(
			"Summarize public sentiment and social media discussion about %s. What do affected people (%s) say, fear, and ask online? Cite sources.",
			matter, target)
	case TopicLegalTrends:
		user = fmt.Sprintf(
			"Summarize recent legal trends, filings, and settlements related to %s. Keywords: %s. Cite sources.",
			matter, orUnknown(campaign.Keywords))
	case TopicConsumerBehavior:
		user = fmt.Sprintf(
			"Describe how people like %s research and choose legal services for matters such as %s. Include decision factors and typical timelines. Cite sources.",
			target, matter)
	default:
		user = fmt.Sprintf("Research %s in the context of %s. Cite sources.", topic, matter)
	}

	return llm.Prompt{
		System: "You are a research assistant. Answer factually and concisely, citing sources.",
		User:   user,
	}
}

func writeCampaign(sb *strings.Builder, c model.CampaignContext) {
	sb.WriteString("CAMPAIGN:\n")
	fmt.Fprintf(sb, "- Matter: %s\n", orUnknown(c.Matter))
	fmt.Fprintf(sb, "- Keywords: %s\n", orUnknown(c.Keywords))
	fmt.Fprintf(sb, "- Target audience: %s\n", orUnknown(c.TargetDescription))
}

func writeAttributes(sb *strings.Builder, p *model.Persona) {
	sb.WriteString("KNOWN ATTRIBUTES:\n")
	fmt.Fprintf(sb, "- Name: %s\n", orUnknown(p.Name))
	fmt.Fprintf(sb, "- Age: %s\n", ageOrUnknown(p.Age))
	fmt.Fprintf(sb, "- Location: %s\n", orUnknown(p.Location))
	fmt.Fprintf(sb, "- Occupation: %s\n", orUnknown(p.Occupation))
	fmt.Fprintf(sb, "- Education: %s\n", orUnknown(p.Education))
	fmt.Fprintf(sb, "- Income: %s\n", orUnknown(p.Income))
	fmt.Fprintf(sb, "- Bio: %s\n", orUnknown(p.Bio))
	fmt.Fprintf(sb, "- Interests: %s\n", listOrUnknown(p.Interests))
	fmt.Fprintf(sb, "- Motivations: %s\n", listOrUnknown(p.Motivations))
	fmt.Fprintf(sb, "- Barriers: %s\n", listOrUnknown(p.Barriers))
	fmt.Fprintf(sb, "- Communication style: %s\n", orUnknown(p.CommunicationStyle))
	fmt.Fprintf(sb, "- Example quote: %s\n", orUnknown(p.ExampleQuote))
}

func writeEvidence(sb *strings.Builder, label string, items []model.Evidence) {
	fmt.Fprintf(sb, "%s:\n", label)
	if len(items) == 0 {
		sb.WriteString("  (none provided)\n")
		return
	}
	for _, ev := range items {
		fmt.Fprintf(sb, "  - [%s] %s\n", ev.Source, ev.Content)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

func ageOrUnknown(age int) string {
	if age <= 0 {
		return Unknown
	}
	return fmt.Sprintf("%d", age)
}

func listOrUnknown(items []string) string {
	if len(items) == 0 {
		return Unknown
	}
	return strings.Join(items, ", ")
}
