package persona

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/figurant/llm"
)

var testMCPImpl = &mcp.Implementation{Name: "figurant-test", Version: "0.1.0"}

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("call %s returned tool error: %v", name, result.Content)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("call %s: content is %T, want TextContent", name, result.Content[0])
	}
	return text.Text
}

// WHAT: every persona operation is exposed as an MCP tool.
func TestMCP_ToolsRegistered(t *testing.T) {
	session := mcpSession(t, generatorService(llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
		return "{}", nil
	})))

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	want := map[string]bool{
		"persona_generate":     false,
		"persona_research":     false,
		"persona_enrich_sheet": false,
		"persona_chat":         false,
	}
	for _, tool := range tools.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %s not registered", name)
		}
	}
}

// WHAT: persona_generate runs research before generation and returns the
// validated batch as JSON text.
func TestMCP_Generate(t *testing.T) {
	var researchCalls atomic.Int64
	svc := New(ServiceConfig{
		Client: llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
			return generationReply, nil
		}),
		ResearchClient: llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
			researchCalls.Add(1)
			return "Recipients skew 45-70, working class.", nil
		}),
	}, nil)
	session := mcpSession(t, svc)

	text := callTool(t, session, "persona_generate", map[string]any{
		"matter":        "defective hip implant recall",
		"keywords":      "hip implant",
		"persona_count": 2,
	})

	var res GenerationResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.Personas) != 2 {
		t.Fatalf("personas: got %d, want 2", len(res.Personas))
	}
	if researchCalls.Load() == 0 {
		t.Error("research was not invoked before generation")
	}
}

// WHAT: persona_chat looks the persona up in the sheet roster and
// replies in character.
func TestMCP_Chat(t *testing.T) {
	sheets := &fakeSheets{roster: sheetRoster()}
	svc := New(ServiceConfig{
		Client: llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
			return "I just want someone to tell me straight what my options are.", nil
		}),
		Sheets:         sheets,
		EnrichInterval: time.Millisecond,
	}, nil)
	session := mcpSession(t, svc)

	text := callTool(t, session, "persona_chat", map[string]any{
		"sheet_url":    shareURL,
		"persona_name": "maria santos",
		"message":      "What is holding you back from calling a lawyer?",
	})

	var reply ChatReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.PersonaName != "Maria Santos" {
		t.Errorf("persona_name: got %q", reply.PersonaName)
	}
	if !strings.Contains(reply.Reply, "options") {
		t.Errorf("reply: got %q", reply.Reply)
	}
	if sheets.importedURL != shareURL {
		t.Errorf("imported URL: got %q", sheets.importedURL)
	}
}

// WHAT: a chat for an unknown persona surfaces as a tool error, not a
// transport failure.
func TestMCP_Chat_NotFound(t *testing.T) {
	svc := New(ServiceConfig{
		Client: llm.Func(func(ctx context.Context, pr llm.Prompt) (string, error) {
			return "hello", nil
		}),
		Sheets:         &fakeSheets{roster: sheetRoster()},
		EnrichInterval: time.Millisecond,
	}, nil)
	session := mcpSession(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "persona_chat",
		Arguments: map[string]any{
			"sheet_url":    shareURL,
			"persona_name": "Nobody Here",
			"message":      "hi",
		},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown persona")
	}
}
