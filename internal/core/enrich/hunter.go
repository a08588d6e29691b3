package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const HunterBaseURL = "https://api.hunter.io/v2"

var (
	ErrHunterNotConfigured = errors.New("HUNTER_API_KEY not configured")
	ErrHunterInvalidKey    = errors.New("Invalid Hunter API key")
	ErrHunterRateLimited   = errors.New("Hunter API rate limit reached")
)

// HunterEmail is one address returned by a domain search.
type HunterEmail struct {
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

type hunterResponse struct {
	Data struct {
		Emails []struct {
			Value      string `json:"value"`
			Confidence int    `json:"confidence"`
			Type       string `json:"type"`
		} `json:"emails"`
	} `json:"data"`
}

type Hunter struct {
	http *resty.Client
}

func NewHunter(baseURL string) *Hunter {
	if baseURL == "" {
		baseURL = HunterBaseURL
	}
	return &Hunter{http: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)}
}

// DomainSearch returns up to max addresses for domain. Personal addresses
// below 50% confidence are dropped; generic inboxes are always kept.
// Confidence is scaled to [0, 1].
func (h *Hunter) DomainSearch(ctx context.Context, apiKey, domain string, max int) ([]HunterEmail, error) {
	if apiKey == "" {
		return nil, ErrHunterNotConfigured
	}
	if max <= 0 {
		max = 3
	}
	var out hunterResponse
	resp, err := h.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"domain": domain, "api_key": apiKey, "limit": strconv.Itoa(max)}).
		SetResult(&out).
		Get("/domain-search")
	if err != nil {
		return nil, fmt.Errorf("hunter request for %s: %w", domain, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrHunterInvalidKey
	case http.StatusTooManyRequests:
		return nil, ErrHunterRateLimited
	default:
		return nil, fmt.Errorf("Hunter API error: %d", resp.StatusCode())
	}

	emails := []HunterEmail{}
	for _, e := range out.Data.Emails {
		if e.Value == "" {
			continue
		}
		if IsGeneric(e.Value) || e.Type == "generic" || e.Confidence >= 50 {
			emails = append(emails, HunterEmail{Email: e.Value, Confidence: float64(e.Confidence) / 100, Type: e.Type})
		}
	}
	return emails, nil
}
