package persona

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/figurant/kit"
)

// RegisterMCP registers all persona tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerGenerate(srv)
	s.registerResearch(srv)
	s.registerEnrichSheet(srv)
	s.registerChat(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

func mcpContext(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

type campaignReq struct {
	Matter            string `json:"matter"`
	Keywords          string `json:"keywords"`
	TargetDescription string `json:"target_description"`
}

func (r *campaignReq) campaign() CampaignContext {
	return CampaignContext{
		Matter:            r.Matter,
		Keywords:          r.Keywords,
		TargetDescription: r.TargetDescription,
	}
}

var campaignProperties = map[string]any{
	"matter":             map[string]any{"type": "string", "description": "Case or campaign description"},
	"keywords":           map[string]any{"type": "string", "description": "Campaign keywords"},
	"target_description": map[string]any{"type": "string", "description": "Target audience description"},
}

func (s *Service) registerGenerate(srv *mcp.Server) {
	type req struct {
		campaignReq
		PersonaCount int `json:"persona_count"`
	}

	props := map[string]any{
		"persona_count": map[string]any{"type": "integer", "description": "Number of personas to generate (default 3, max 10)"},
	}
	for k, v := range campaignProperties {
		props[k] = v
	}
	tool := &mcp.Tool{
		Name:        "persona_generate",
		Description: "Generate synthetic campaign personas grounded in research data",
		InputSchema: inputSchema(props, []string{"matter"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		campaign := p.campaign()
		bundle := s.Research(ctx, campaign)
		return s.GeneratePersonas(ctx, campaign, nil, bundle, p.PersonaCount)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpContext}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerResearch(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "persona_research",
		Description: "Collect demographic, social, legal, and consumer research for a campaign",
		InputSchema: inputSchema(campaignProperties, []string{"matter"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*campaignReq)
		return s.Research(ctx, p.campaign()), nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p campaignReq
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpContext}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerEnrichSheet(srv *mcp.Server) {
	type req struct {
		campaignReq
		SheetURL string `json:"sheet_url"`
	}

	props := map[string]any{
		"sheet_url": map[string]any{"type": "string", "description": "Google Sheets share URL holding the persona roster"},
	}
	for k, v := range campaignProperties {
		props[k] = v
	}
	tool := &mcp.Tool{
		Name:        "persona_enrich_sheet",
		Description: "Run social and legal enrichment over a spreadsheet persona roster",
		InputSchema: inputSchema(props, []string{"sheet_url", "matter"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.EnrichSheet(ctx, p.SheetURL, p.campaign(), nil)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpContext}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerChat(srv *mcp.Server) {
	type req struct {
		SheetURL    string `json:"sheet_url"`
		PersonaName string `json:"persona_name"`
		Message     string `json:"message"`
	}

	tool := &mcp.Tool{
		Name:        "persona_chat",
		Description: "Ask a spreadsheet persona a question and get an in-character reply",
		InputSchema: inputSchema(map[string]any{
			"sheet_url":    map[string]any{"type": "string", "description": "Google Sheets share URL holding the persona roster"},
			"persona_name": map[string]any{"type": "string", "description": "Name of the persona to speak as"},
			"message":      map[string]any{"type": "string", "description": "Message to send the persona"},
		}, []string{"sheet_url", "persona_name", "message"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		found, err := s.LookupPersona(ctx, p.SheetURL, p.PersonaName)
		if err != nil {
			return nil, err
		}
		return s.Chat(ctx, found, p.Message)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpContext}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
