// Package research gathers background evidence for persona generation.
//
// A Collector fans one campaign out into four fixed research topics,
// queries the configured completion provider for each, and folds the
// results into source-context evidence. Topic failures degrade to an
// error note on that topic; the bundle itself always comes back.
package research

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/model"
	"github.com/hazyhaar/figurant/persona/internal/prompt"
)

// NotConfigured is the bundle-level error recorded when no research
// provider is wired. Callers branch on bundle.Err, not on a Go error.
const NotConfigured = "Research API not configured"

// Topics lists the research request types in query order.
var Topics = []string{
	prompt.TopicDemographics,
	prompt.TopicSocialSentiment,
	prompt.TopicLegalTrends,
	prompt.TopicConsumerBehavior,
}

// DefaultTimeout bounds each topic query.
const DefaultTimeout = 30 * time.Second

// Config wires a Collector.
type Config struct {
	Client  llm.Client
	Enabled bool
	Timeout time.Duration // per topic; DefaultTimeout when zero
	Model   string        // recorded on the bundle for provenance
}

// Collector runs the four-topic research fan-out.
type Collector struct {
	client  llm.Client
	enabled bool
	timeout time.Duration
	model   string
	log     *slog.Logger
}

// New builds a Collector. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Collector{
		client:  cfg.Client,
		enabled: cfg.Enabled,
		timeout: timeout,
		model:   cfg.Model,
		log:     logger,
	}
}

// Enabled reports whether the collector has a research provider wired.
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Topic is one topic's research result.
type Topic struct {
	RequestType string `json:"request_type"`
	Query       string `json:"query"`
	Content     string `json:"content,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Bundle is the joined result of a research fan-out.
type Bundle struct {
	Topics       map[string]Topic `json:"topics,omitempty"`
	Model        string           `json:"model,omitempty"`
	Err          string           `json:"error,omitempty"`
	ResearchedAt time.Time        `json:"researched_at"`
}

// Collect queries every topic concurrently and joins the results. A nil
// or unconfigured collector returns a bundle carrying NotConfigured
// without touching the provider.
func (c *Collector) Collect(ctx context.Context, campaign model.CampaignContext) *Bundle {
	bundle := &Bundle{ResearchedAt: time.Now().UTC()}
	if c == nil || !c.enabled || c.client == nil {
		bundle.Err = NotConfigured
		return bundle
	}
	bundle.Model = c.model

	results := make([]Topic, len(Topics))
	var wg sync.WaitGroup
	for i, name := range Topics {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = c.collectTopic(ctx, name, campaign)
		}(i, name)
	}
	wg.Wait()

	bundle.Topics = make(map[string]Topic, len(results))
	for _, t := range results {
		bundle.Topics[t.RequestType] = t
	}
	return bundle
}

func (c *Collector) collectTopic(ctx context.Context, name string, campaign model.CampaignContext) Topic {
	p := prompt.ResearchTopic(name, campaign)
	t := Topic{RequestType: name, Query: p.User}

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.client.Complete(tctx, p)
	if err != nil {
		c.log.Warn("research topic failed", "topic", name, "error", err)
		t.Err = err.Error()
		return t
	}
	out = strings.TrimSpace(out)
	if out == "" {
		t.Err = "empty research reply"
		return t
	}
	t.Content = out
	return t
}

// Evidence folds successful topics into source-context categories.
// Legal-trend findings feed client_data: they inform prompts but never
// count toward source sufficiency.
func (b *Bundle) Evidence() *model.SourceContext {
	src := &model.SourceContext{}
	if b == nil {
		return src
	}
	for _, name := range Topics {
		t, ok := b.Topics[name]
		if !ok || t.Content == "" {
			continue
		}
		ev := model.Evidence{
			Content: t.Content,
			Source:  "research:" + t.RequestType,
			Type:    "research",
		}
		switch t.RequestType {
		case prompt.TopicDemographics:
			src.DemographicData = append(src.DemographicData, ev)
		case prompt.TopicSocialSentiment:
			src.SocialInsights = append(src.SocialInsights, ev)
		case prompt.TopicConsumerBehavior:
			src.ConsumerBehavior = append(src.ConsumerBehavior, ev)
		case prompt.TopicLegalTrends:
			src.ClientData = append(src.ClientData, ev)
		}
	}
	return src
}

// Provenance lists the topics that produced content, for citation
// attachment on generated personas.
func (b *Bundle) Provenance() []string {
	if b == nil {
		return nil
	}
	var out []string
	for _, name := range Topics {
		if t, ok := b.Topics[name]; ok && t.Content != "" {
			out = append(out, "research:"+t.RequestType)
		}
	}
	return out
}
