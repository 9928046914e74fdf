package llm

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements Client using the official openai-go SDK (chat completions).
type OpenAI struct {
	model       string
	temperature float64
	maxTokens   int
	opts        []option.RequestOption
}

func newOpenAI(cfg Settings) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		opts:        opts,
	}, nil
}

// Complete implements Client.
func (o *OpenAI) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client := openai.NewClient(o.opts...)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.History)+2)
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: openai returned empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
