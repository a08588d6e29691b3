package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// Result is the outcome of fetching one URL. Errors are human-readable and
// never abort scoring on their own.
type Result struct {
	Status   int      `json:"status"`
	HTML     string   `json:"-"`
	FinalURL string   `json:"final_url"`
	Errors   []string `json:"errors,omitempty"`
	Retries  int      `json:"retries"`
}

// Blocked reports an explicit refusal from the server.
func (r *Result) Blocked() bool {
	return r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden
}

// NeedsRender reports an accepted response without usable content.
func (r *Result) NeedsRender() bool {
	return r.Status == http.StatusAccepted && len(r.HTML) <= 500
}

type Options struct {
	Timeout time.Duration
	Retries int
	// MaxBodySize truncates response bodies when positive.
	MaxBodySize int
	// KeepErrorBodies fills HTML for every response, whatever its status.
	KeepErrorBodies bool
}

type Fetcher struct {
	client   *resty.Client
	insecure *resty.Client
	retries  int
	maxBody  int
	keepAll  bool
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	return &Fetcher{
		client:   newClient(opts.Timeout, false),
		insecure: newClient(opts.Timeout, true),
		retries:  opts.Retries,
		maxBody:  opts.MaxBodySize,
		keepAll:  opts.KeepErrorBodies,
		sleep:    sleepContext,
	}
}

func newClient(timeout time.Duration, insecure bool) *resty.Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetHeaders(map[string]string{
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"accept-language":           "en-GB,en-US;q=0.9,en;q=0.8",
		"upgrade-insecure-requests": "1",
		"cache-control":             "no-cache",
		"referer":                   "https://www.google.com/",
	})
	if insecure {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return client
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetch GETs rawURL with retries on rate limiting, timeouts and connection
// failures. 401/403 and other HTTP errors return immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *Result {
	result := &Result{FinalURL: rawURL}

	for attempt := 0; attempt < f.retries; attempt++ {
		result.Retries = attempt
		resp, err := f.get(ctx, f.client, rawURL)
		if err != nil {
			var certErr *tls.CertificateVerificationError
			switch {
			case errors.As(err, &certErr):
				if resp, ierr := f.get(ctx, f.insecure, rawURL); ierr == nil && resp.StatusCode() == http.StatusOK {
					f.fill(result, resp)
					result.Errors = []string{"SSL warning (insecure connection)"}
					return result
				}
				result.Errors = append(result.Errors, "SSL certificate error")
				return result
			case ctx.Err() != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("Fetch cancelled: %v", ctx.Err()))
				return result
			case isTimeout(err):
				result.Errors = append(result.Errors, fmt.Sprintf("Request timeout (attempt %d)", attempt+1))
			case strings.Contains(err.Error(), "stopped after"):
				result.Errors = append(result.Errors, "Too many redirects")
				return result
			case isConnError(err):
				result.Errors = append(result.Errors, fmt.Sprintf("Connection failed (attempt %d)", attempt+1))
			default:
				result.Errors = append(result.Errors, "Fetch error: "+truncate(err.Error(), 100))
				return result
			}
			if attempt < f.retries-1 {
				if f.sleep(ctx, time.Duration(1+attempt)*time.Second) != nil {
					return result
				}
			}
			result.Retries = attempt + 1
			continue
		}

		result.Status = resp.StatusCode()
		result.FinalURL = finalURL(resp, rawURL)
		if f.keepAll {
			result.HTML = f.cap(resp.String())
		}

		switch status := resp.StatusCode(); {
		case status == http.StatusOK || status == http.StatusAccepted:
			body := resp.String()
			if garbled(body) {
				result.Errors = append(result.Errors, fmt.Sprintf("Garbled response detected (attempt %d)", attempt+1))
				if attempt < f.retries-1 {
					if f.sleep(ctx, 1500*time.Millisecond) != nil {
						return result
					}
					continue
				}
			}
			if status == http.StatusAccepted && len(body) <= 500 {
				result.HTML = f.cap(body)
				result.Errors = append(result.Errors, "HTTP 202 (needs browser rendering)")
				return result
			}
			f.fill(result, resp)
			result.Errors = nil
			return result
		case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
			result.Errors = append(result.Errors, fmt.Sprintf("HTTP %d (rate limited/unavailable)", status))
			if attempt < f.retries-1 {
				backoff := time.Duration(1<<attempt)*time.Second + time.Duration(500+rand.IntN(1000))*time.Millisecond
				if f.sleep(ctx, backoff) != nil {
					return result
				}
				continue
			}
		case status == http.StatusForbidden || status == http.StatusUnauthorized:
			result.Errors = append(result.Errors, fmt.Sprintf("HTTP %d (blocked)", status))
			return result
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("HTTP %d", status))
			return result
		}
		result.Retries = attempt + 1
	}
	return result
}

func (f *Fetcher) get(ctx context.Context, client *resty.Client, rawURL string) (*resty.Response, error) {
	return client.R().
		SetContext(ctx).
		SetHeader("user-agent", userAgents[rand.IntN(len(userAgents))]).
		Get(rawURL)
}

func (f *Fetcher) fill(result *Result, resp *resty.Response) {
	result.Status = resp.StatusCode()
	result.HTML = f.cap(resp.String())
	result.FinalURL = finalURL(resp, result.FinalURL)
}

func (f *Fetcher) cap(body string) string {
	if f.maxBody > 0 && len(body) > f.maxBody {
		return body[:f.maxBody]
	}
	return body
}

func finalURL(resp *resty.Response, fallback string) string {
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		return raw.Request.URL.String()
	}
	return fallback
}

// garbled reports a body whose head is mostly control characters, the
// signature of a mis-decoded compressed response.
func garbled(body string) bool {
	if len(body) <= 500 {
		return false
	}
	suspicious := 0
	for _, c := range body[:500] {
		if c < 32 && c != '\n' && c != '\r' && c != '\t' {
			suspicious++
		}
	}
	return suspicious > 20
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	return errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
