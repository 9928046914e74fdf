// Package llm abstracts chat-completion providers behind a single Client
// interface so the persona pipeline can run against OpenAI, Gemini, or a
// test double without caring which.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by New when no provider is configured.
var ErrNotConfigured = errors.New("llm: no provider configured")

// Client is a chat-completion provider.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is a single completion request. History carries prior chat turns
// for conversational use; generation and enrichment leave it empty.
type Prompt struct {
	System  string
	User    string
	History []Turn
}

// Turn is one prior exchange in a chat conversation.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Settings selects and configures a provider.
type Settings struct {
	Provider    string // "openai" or "gemini"
	Model       string
	APIKey      string
	BaseURL     string // optional override, used by OpenAI-compatible gateways
	Temperature float64
	MaxTokens   int
}

// New builds a Client from settings. Returns ErrNotConfigured when
// Provider is empty so callers can degrade instead of failing at boot.
func New(cfg Settings) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAI(cfg)
	case "gemini":
		return newGemini(cfg)
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, prompt Prompt) (string, error)

// Complete implements Client.
func (f Func) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
