package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// ErrMiss is returned when no fresh entry exists for a URL.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-encodable score results keyed by website URL.
type Cache interface {
	Get(ctx context.Context, rawURL string, value interface{}) error
	Set(ctx context.Context, rawURL string, value interface{}) error
}

// NormalizeURL reduces a URL to scheme, lower-cased host without "www."
// and path without trailing slash. Query and fragment are dropped.
func NormalizeURL(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return strings.ToLower(u)
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		path = "/"
	}
	return parsed.Scheme + "://" + host + path
}

// Key is the hex SHA-256 of the normalized URL.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}
