package scoring

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agenthands/leadblitz/internal/core/cache"
	"github.com/agenthands/leadblitz/internal/core/fetch"
	"github.com/agenthands/leadblitz/internal/llm"
)

type MockLLMClient struct {
	Response string
	Err      error
	Requests []llm.Request
}

func (m *MockLLMClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

type MockReviewer struct {
	Review_ *AIReview
	Inputs  []ReviewInput
}

func (m *MockReviewer) Review(ctx context.Context, in ReviewInput) *AIReview {
	m.Inputs = append(m.Inputs, in)
	return m.Review_
}

type MockRenderer struct {
	HTML string
	Err  error
	URLs []string
}

func (m *MockRenderer) Render(ctx context.Context, url string) (*fetch.Result, error) {
	m.URLs = append(m.URLs, url)
	if m.Err != nil {
		return nil, m.Err
	}
	return &fetch.Result{Status: 200, HTML: m.HTML, FinalURL: url}, nil
}

func (m *MockRenderer) Close() error { return nil }

type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string][]byte{}}
}

func (c *MemoryCache) Get(ctx context.Context, rawURL string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[cache.Key(rawURL)]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, value)
}

func (c *MemoryCache) Set(ctx context.Context, rawURL string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cache.Key(rawURL)] = data
	return nil
}
