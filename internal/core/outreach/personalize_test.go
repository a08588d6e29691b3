package outreach

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/llm"
)

// MockLLMClient answers requests in order.
type MockLLMClient struct {
	Responses []string
	Err       error
	Requests  []llm.Request
}

func (m *MockLLMClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	r := m.Responses[0]
	m.Responses = m.Responses[1:]
	return r, nil
}

func TestPersonalizer(t *testing.T) {
	client := &MockLLMClient{Responses: []string{"  Hi Jane,\n\nLoved your site.  ", `"Faster bookings for Acme"`}}
	p := NewPersonalizer(client, config.DefaultPrompts())

	lead := &model.Lead{Name: "Acme", Website: "https://acme.co.uk", Score: 35, ContactName: "Jane Smith"}
	msg, err := p.Personalize(context.Background(), lead, "online booking")
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane,\n\nLoved your site.", msg.Body)
	assert.Equal(t, "Faster bookings for Acme", msg.Subject)

	require.Len(t, client.Requests, 2)
	assert.Contains(t, client.Requests[0].Prompt, `Start with "Hi Jane,"`)
	assert.Contains(t, client.Requests[0].Prompt, "Lead Score: 35/100")
	assert.Equal(t, 300, client.Requests[0].MaxTokens)
	assert.Contains(t, client.Requests[1].Prompt, "for an email to Acme about: online booking")
}

func TestPersonalizer_Fallbacks(t *testing.T) {
	client := &MockLLMClient{}
	p := NewPersonalizer(client, config.DefaultPrompts())

	msg, err := p.Personalize(context.Background(), &model.Lead{Name: "Acme"}, "online booking")
	require.NoError(t, err)
	assert.Equal(t, "Hi,\n\nonline booking\n\nBest regards", msg.Body)
	assert.Equal(t, "Opportunity for Acme", msg.Subject)
	assert.Contains(t, client.Requests[0].Prompt, `Start with just "Hi,"`)
	assert.Contains(t, client.Requests[0].Prompt, "Website: no website")
}

func TestPersonalizer_Errors(t *testing.T) {
	_, err := NewPersonalizer(nil, config.DefaultPrompts()).Personalize(context.Background(), &model.Lead{}, "pitch")
	assert.ErrorIs(t, err, ErrNoLLM)

	p := NewPersonalizer(&MockLLMClient{Err: errors.New("boom")}, config.DefaultPrompts())
	_, err = p.Personalize(context.Background(), &model.Lead{Name: "Acme"}, "pitch")
	assert.ErrorContains(t, err, "boom")

	_, err = p.Personalize(context.Background(), &model.Lead{Name: "Acme"}, " ")
	assert.Error(t, err)
}
