package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// Gemini implements Client using the google.golang.org/genai SDK.
type Gemini struct {
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
}

func newGemini(cfg Settings) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: gemini api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	return &Gemini{
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: g.apiKey})
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, h := range prompt.History {
		role := genai.RoleUser
		if h.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(h.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(prompt.User, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if g.temperature > 0 {
		config.Temperature = genai.Ptr[float32](float32(g.temperature))
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("llm: gemini returned empty response")
	}
	return text, nil
}
