// Package places finds local businesses through the Google Places text
// search and details endpoints.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL  = "https://maps.googleapis.com/maps/api/place"
	MaxPerPage      = 20
	detailsFields   = "name,formatted_address,formatted_phone_number,international_phone_number,website,rating,user_ratings_total"
	defaultDeadline = 20 * time.Second
)

type Kind string

const (
	KindNotConfigured Kind = "not_configured"
	KindDenied        Kind = "denied"
	KindQuota         Kind = "quota"
	KindInvalid       Kind = "invalid_request"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
	KindUnexpected    Kind = "unexpected"
)

// Error is a failed search. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the failure onto the status returned to the dashboard.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindQuota:
		return http.StatusTooManyRequests
	case KindInvalid:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindDenied, KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

type Place struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// Page is one page of search results.
type Page struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

type textSearchResponse struct {
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
	NextPageToken string `json:"next_page_token"`
	Results       []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name                     string  `json:"name"`
		FormattedAddress         string  `json:"formatted_address"`
		FormattedPhoneNumber     string  `json:"formatted_phone_number"`
		InternationalPhoneNumber string  `json:"international_phone_number"`
		Website                  string  `json:"website"`
		Rating                   float64 `json:"rating"`
		UserRatingsTotal         int     `json:"user_ratings_total"`
	} `json:"result"`
}

type Options struct {
	APIKey  string
	BaseURL string
	// Workers bounds concurrent details requests.
	Workers         int
	DetailsDeadline time.Duration
	Logger          *zap.Logger
}

type Client struct {
	http     *resty.Client
	apiKey   string
	workers  int
	deadline time.Duration
	logger   *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.DetailsDeadline <= 0 {
		opts.DetailsDeadline = defaultDeadline
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		http:     resty.New().SetBaseURL(opts.BaseURL).SetTimeout(15 * time.Second),
		apiKey:   opts.APIKey,
		workers:  opts.Workers,
		deadline: opts.DetailsDeadline,
		logger:   opts.Logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search runs "<businessType> in <location>" and fetches details for up to
// limit results (capped at 20). Details that fail or miss the deadline are
// dropped so a slow page still returns partial results.
func (c *Client) Search(ctx context.Context, businessType, location string, limit int, pageToken string) (*Page, error) {
	if !c.Configured() {
		return nil, &Error{Kind: KindNotConfigured, Message: "GOOGLE_MAPS_API_KEY not configured. Please add it to your environment."}
	}
	if limit <= 0 || limit > MaxPerPage {
		limit = MaxPerPage
	}
	query := fmt.Sprintf("%s in %s", businessType, location)
	log := c.logger.With(zap.String("query", query))

	params := map[string]string{"query": query, "key": c.apiKey}
	if pageToken != "" {
		params["pagetoken"] = pageToken
	}

	var search textSearchResponse
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).SetResult(&search).Get("/textsearch/json")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Message: "Google Places API request timed out. Please try again."}
		}
		return nil, &Error{Kind: KindNetwork, Message: "Network error connecting to Google Places API. Please try again."}
	}
	if resp.IsError() {
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("Google Places API returned HTTP %d", resp.StatusCode())}
	}
	log.Info("places text search", zap.String("status", search.Status), zap.Duration("elapsed", time.Since(start)))

	switch search.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Page{Places: []Place{}}, nil
	case "REQUEST_DENIED":
		msg := search.ErrorMessage
		if msg == "" {
			msg = "API key is invalid or restricted"
		}
		return nil, &Error{Kind: KindDenied, Message: fmt.Sprintf("Google Places API error: %s. Please check that GOOGLE_MAPS_API_KEY is set correctly.", msg)}
	case "OVER_QUERY_LIMIT":
		return nil, &Error{Kind: KindQuota, Message: "Google Places API quota exceeded. Please check your billing settings."}
	case "INVALID_REQUEST":
		return nil, &Error{Kind: KindInvalid, Message: "Invalid search request. Please check your search parameters."}
	default:
		return nil, &Error{Kind: KindUnexpected, Message: fmt.Sprintf("Google Places API returned status: %s", search.Status)}
	}

	var ids []string
	for _, r := range search.Results {
		if r.PlaceID != "" {
			ids = append(ids, r.PlaceID)
		}
		if len(ids) == limit {
			break
		}
	}

	places := c.details(ctx, ids)
	log.Info("places details fetched", zap.Int("requested", len(ids)), zap.Int("found", len(places)),
		zap.Duration("elapsed", time.Since(start)))
	return &Page{Places: places, NextPageToken: search.NextPageToken}, nil
}

// details fetches place details in parallel, keeping search order.
func (c *Client) details(ctx context.Context, ids []string) []Place {
	dctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	found := make([]*Place, len(ids))
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, id := range ids {
		g.Go(func() error {
			p, err := c.Details(dctx, id)
			if err != nil {
				c.logger.Warn("place details failed", zap.String("place_id", id), zap.Error(err))
				return nil
			}
			found[i] = p
			return nil
		})
	}
	_ = g.Wait()

	places := make([]Place, 0, len(ids))
	for _, p := range found {
		if p != nil {
			places = append(places, *p)
		}
	}
	return places
}

// Details fetches one place. A non-OK status is an error.
func (c *Client) Details(ctx context.Context, placeID string) (*Place, error) {
	var out detailsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"place_id": placeID, "fields": detailsFields, "key": c.apiKey}).
		SetResult(&out).
		Get("/details/json")
	if err != nil {
		return nil, fmt.Errorf("details request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("details request: HTTP %d", resp.StatusCode())
	}
	if out.Status != "OK" {
		return nil, fmt.Errorf("details status %s", out.Status)
	}
	r := out.Result
	phone := r.FormattedPhoneNumber
	if phone == "" {
		phone = r.InternationalPhoneNumber
	}
	return &Place{
		PlaceID:     placeID,
		Name:        r.Name,
		Address:     r.FormattedAddress,
		Phone:       phone,
		Website:     r.Website,
		Rating:      r.Rating,
		ReviewCount: r.UserRatingsTotal,
	}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
