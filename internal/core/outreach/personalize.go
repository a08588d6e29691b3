package outreach

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/llm"
)

var ErrNoLLM = errors.New("AI personalization is not configured")

// Message is a generated email.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Personalizer struct {
	llm     llm.LLMClient
	prompts config.PromptConfig
}

func NewPersonalizer(client llm.LLMClient, prompts config.PromptConfig) *Personalizer {
	return &Personalizer{llm: client, prompts: prompts}
}

// Enabled reports whether an LLM is wired in.
func (p *Personalizer) Enabled() bool {
	return p != nil && p.llm != nil
}

// Personalize writes a short cold email to l around pitch. The greeting
// uses the first word of the contact name when there is one.
func (p *Personalizer) Personalize(ctx context.Context, l *model.Lead, pitch string) (*Message, error) {
	if !p.Enabled() {
		return nil, ErrNoLLM
	}
	if strings.TrimSpace(pitch) == "" {
		return nil, errors.New("base pitch is required")
	}
	name := l.Name
	if name == "" {
		name = "your business"
	}
	website := l.Website
	if website == "" {
		website = "no website"
	}
	greeting := `Start with just "Hi,"`
	if fields := strings.Fields(l.ContactName); len(fields) > 0 {
		greeting = fmt.Sprintf(`Start with "Hi %s,"`, fields[0])
	}

	body, err := p.llm.Generate(ctx, llm.Request{
		System:      p.prompts.PersonalizeSystem,
		Prompt:      fmt.Sprintf(p.prompts.PersonalizeBody, name, website, strconv.Itoa(l.Score), pitch, greeting),
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate email body: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = fmt.Sprintf("Hi,\n\n%s\n\nBest regards", pitch)
	}

	subject, err := p.llm.Generate(ctx, llm.Request{
		System:      "You write compelling email subject lines.",
		Prompt:      fmt.Sprintf(p.prompts.PersonalizeSubject, name, pitch),
		Temperature: 0.7,
		MaxTokens:   20,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate subject: %w", err)
	}
	subject = strings.Trim(strings.TrimSpace(subject), `"'`)
	if subject == "" {
		subject = "Opportunity for " + name
	}
	return &Message{Subject: subject, Body: body}, nil
}
