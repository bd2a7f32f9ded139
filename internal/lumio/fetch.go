package lumio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/carpenike/helix/internal/metrics"
)

// DefaultUserAgent identifies the proxy to card hosts.
const DefaultUserAgent = "Helix/1.0"

// maxCardBytes bounds how much of a card body is read.
const maxCardBytes = 2 << 20

// ErrInvalidURL is returned for a card URL that is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("lumio: invalid card url")

// FetchError reports a non-2xx answer from the card host.
type FetchError struct {
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch card: %d %s", e.StatusCode, e.Status)
}

// HTTPStatus is the status the proxy answers with: 404 passes through,
// anything else is a bad gateway.
func (e *FetchError) HTTPStatus() int {
	if e.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// Fetcher downloads cards and keeps the raw markdown in memory for TTL.
type Fetcher struct {
	client    *http.Client
	cache     *freecache.Cache
	ttl       time.Duration
	userAgent string
	metrics   *metrics.Manager
}

// Options configures a Fetcher. Zero values select defaults.
type Options struct {
	Client      *http.Client
	CacheSizeMB int
	TTL         time.Duration
	UserAgent   string
	Metrics     *metrics.Manager
}

// NewFetcher creates a Fetcher. A zero TTL disables caching.
func NewFetcher(opts Options) *Fetcher {
	megabyte := 1024 * 1024
	size := opts.CacheSizeMB
	if size <= 0 {
		size = 16
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		cache:     freecache.NewCache(size * megabyte),
		ttl:       opts.TTL,
		userAgent: ua,
		metrics:   opts.Metrics,
	}
}

// ValidateURL checks that cardURL is an absolute http(s) URL.
func ValidateURL(cardURL string) error {
	u, err := url.Parse(strings.TrimSpace(cardURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

// Fetch returns the parsed card at cardURL.
func (f *Fetcher) Fetch(ctx context.Context, cardURL string) (*Card, error) {
	cardURL = strings.TrimSpace(cardURL)
	if err := ValidateURL(cardURL); err != nil {
		return nil, err
	}

	markdown, err := f.markdown(ctx, cardURL)
	if err != nil {
		return nil, err
	}

	fm, body := ParseFrontmatter(markdown)
	base := BaseURL(cardURL)
	return &Card{
		Frontmatter: fm,
		Content:     ResolveImagePaths(body, base),
		BaseURL:     base,
	}, nil
}

func (f *Fetcher) markdown(ctx context.Context, cardURL string) (string, error) {
	key := []byte(cardURL)
	if f.ttl > 0 {
		if cached, err := f.cache.Get(key); err == nil {
			f.metrics.CardFetch("hit")
			return string(cached), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return "", ErrInvalidURL
	}
	req.Header.Set("Accept", "text/plain, text/markdown, */*")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.CardFetch("error")
		return "", fmt.Errorf("lumio: fetch %s: %w", cardURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metrics.CardFetch("error")
		return "", &FetchError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCardBytes))
	if err != nil {
		f.metrics.CardFetch("error")
		return "", fmt.Errorf("lumio: read %s: %w", cardURL, err)
	}
	f.metrics.CardFetch("miss")

	if f.ttl > 0 {
		if err := f.cache.Set(key, data, int(f.ttl.Seconds())); err != nil {
			log.WithError(err).WithField("url", cardURL).Debug("lumio: card not cached")
		}
	}
	return string(data), nil
}
