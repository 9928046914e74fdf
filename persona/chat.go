package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona/internal/prompt"
	"github.com/hazyhaar/figurant/persona/internal/reply"
)

// ChatReply is one in-character answer with its metadata.
type ChatReply struct {
	PersonaName string    `json:"persona_name"`
	Reply       string    `json:"reply"`
	RepliedAt   time.Time `json:"replied_at"`
}

// Chat returns a single in-character reply from p to message.
func (s *Service) Chat(ctx context.Context, p *Persona, message string) (*ChatReply, error) {
	if s.client == nil {
		return nil, llm.ErrNotConfigured
	}
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: persona name or attributes required", ErrInvalidInput)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	text, err := s.client.Complete(ctx, prompt.Chat(p, message))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	s.log.Debug("chat reply produced", "persona", p.Name)
	return &ChatReply{
		PersonaName: p.Name,
		Reply:       reply.ParseChat(text),
		RepliedAt:   time.Now().UTC(),
	}, nil
}

// FindPersona locates a persona by name, case-insensitively.
func FindPersona(personas []Persona, name string) (*Persona, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, fmt.Errorf("%w: persona name required", ErrInvalidInput)
	}
	for i := range personas {
		if strings.ToLower(strings.TrimSpace(personas[i].Name)) == want {
			return &personas[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}
