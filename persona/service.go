package persona

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/figurant/docfetch"
	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/enrich"
	"github.com/hazyhaar/figurant/persona/internal/research"
)

// DefaultEnrichInterval spaces enrichment model calls.
const DefaultEnrichInterval = time.Second

// SheetPort is the narrow spreadsheet seam sheet-driven operations need.
// The sheetbridge package provides the production implementation; the
// caller adapts it when wiring the service.
type SheetPort interface {
	// ImportPersonas reads the roster from a spreadsheet share URL.
	ImportPersonas(ctx context.Context, sheetURL string) ([]Persona, error)
	// WriteBack stores enriched personas in the sheet they came from and
	// returns the sheet's canonical URL.
	WriteBack(ctx context.Context, sheetURL string, personas []Persona) (string, error)
}

// ServiceConfig wires a Service. Client is required for generation,
// enrichment, and chat; everything else is optional.
type ServiceConfig struct {
	Client llm.Client

	// ResearchClient queries the research provider. nil leaves research
	// disabled; the collector degrades to its not-configured bundle.
	ResearchClient  llm.Client
	ResearchModel   string
	ResearchTimeout time.Duration

	// Sheets enables EnrichSheet and sheet-backed chat lookup.
	Sheets SheetPort

	// EnrichInterval spaces enrichment model calls; EnrichConcurrency
	// caps in-flight calls. Zero values take the defaults.
	EnrichInterval    time.Duration
	EnrichConcurrency int64

	// Progress receives per-item enrichment updates.
	Progress ProgressCallback
}

// Service orchestrates persona generation, enrichment, and chat.
type Service struct {
	client   llm.Client
	research *research.Collector
	pipeline *enrich.Pipeline
	sheets   SheetPort
	log      *slog.Logger
}

// New creates a Service. logger may be nil.
func New(cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EnrichInterval <= 0 {
		cfg.EnrichInterval = DefaultEnrichInterval
	}
	if cfg.EnrichConcurrency < 1 {
		cfg.EnrichConcurrency = 1
	}

	collector := research.New(research.Config{
		Client:  cfg.ResearchClient,
		Enabled: cfg.ResearchClient != nil,
		Timeout: cfg.ResearchTimeout,
		Model:   cfg.ResearchModel,
	}, logger)

	var paced llm.Client
	if cfg.Client != nil {
		paced = llm.NewPaced(cfg.Client, cfg.EnrichInterval, cfg.EnrichConcurrency)
	}
	pipeline := enrich.New(enrich.Config{Client: paced, Progress: cfg.Progress}, logger)

	return &Service{
		client:   cfg.Client,
		research: collector,
		pipeline: pipeline,
		sheets:   cfg.Sheets,
		log:      logger,
	}
}

// Configured reports whether a generative model is wired.
func (s *Service) Configured() bool { return s.client != nil }

// ResearchConfigured reports whether a research provider is wired.
func (s *Service) ResearchConfigured() bool { return s.research.Enabled() }

// Research collects the four research topics for a campaign. Always
// returns a bundle; an unconfigured collector reports its error inside.
func (s *Service) Research(ctx context.Context, campaign CampaignContext) *ResearchBundle {
	return s.research.Collect(ctx, campaign)
}

// LookupPersona imports the roster behind sheetURL and finds name in it.
func (s *Service) LookupPersona(ctx context.Context, sheetURL, name string) (*Persona, error) {
	if s.sheets == nil {
		return nil, ErrSheetsNotConfigured
	}
	roster, err := s.sheets.ImportPersonas(ctx, sheetURL)
	if err != nil {
		return nil, err
	}
	return FindPersona(roster, name)
}

// EnrichSheetResult summarizes a sheet enrichment run.
type EnrichSheetResult struct {
	Personas   []Persona         `json:"personas"`
	SheetURL   string            `json:"sheet_url"`
	Validation ValidationSummary `json:"validation"`
	EnrichedAt time.Time         `json:"enriched_at"`
}

// EnrichSheet runs the full enrichment workflow against a shared sheet:
// import, validate, social then legal enrichment, write-back. Uploaded
// excerpts ground the legal stage. Personas that survive both stages
// move to StatusReadyForTesting before the write-back.
func (s *Service) EnrichSheet(ctx context.Context, sheetURL string, campaign CampaignContext, uploaded []docfetch.Excerpt) (*EnrichSheetResult, error) {
	if s.client == nil {
		return nil, llm.ErrNotConfigured
	}
	if s.sheets == nil {
		return nil, ErrSheetsNotConfigured
	}

	roster, err := s.sheets.ImportPersonas(ctx, sheetURL)
	if err != nil {
		return nil, err
	}
	valid, summary := ValidateImported(roster)
	s.log.Info("sheet roster validated",
		"valid", summary.Valid, "warned", summary.Warned, "invalid", summary.Invalid)

	personas := s.pipeline.EnrichSocial(ctx, valid, campaign)
	personas = s.pipeline.EnrichLegal(ctx, personas, campaign, ExcerptEvidence(uploaded))

	now := time.Now().UTC()
	for i := range personas {
		if personas[i].Status != StatusFailed {
			personas[i].Status = StatusReadyForTesting
			personas[i].UpdatedAt = now
		}
	}

	url, err := s.sheets.WriteBack(ctx, sheetURL, personas)
	if err != nil {
		return nil, fmt.Errorf("store enriched personas: %w", err)
	}

	return &EnrichSheetResult{
		Personas:   personas,
		SheetURL:   url,
		Validation: summary,
		EnrichedAt: now,
	}, nil
}
