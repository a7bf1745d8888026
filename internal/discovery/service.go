// Package discovery issues YouTube page fetches through the cache store
// and hands bodies to the extractor.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/famomatic/ytchill/internal/cache"
	"github.com/famomatic/ytchill/internal/scrape"
	"github.com/famomatic/ytchill/internal/types"
)

// Requests without a realistic browser user-agent are more likely to be
// rejected or served a degraded page.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// spVideosOnly is the search filter parameter restricting results to videos.
const spVideosOnly = "EgIQAQ=="

const fetchTimeout = 15 * time.Second

// Service performs cache-checked discovery fetches.
type Service struct {
	httpClient *http.Client
	store      *cache.Store
	ttl        time.Duration
	baseURL    string
	log        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithBaseURL points the service at a different origin. Used by tests.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithTTL overrides the cache freshness bound.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New creates a Service backed by the given cache store.
func New(store *cache.Store, opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: fetchTimeout},
		store:      store,
		ttl:        cache.DefaultTTL,
		baseURL:    "https://www.youtube.com",
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns up to limit records for the query, relevance-ordered.
func (s *Service) Search(ctx context.Context, query string, limit int) (*types.ResultSet, error) {
	if limit <= 0 {
		limit = scrape.DefaultLimit
	}
	normalized := cache.NormalizeQuery(query)
	key := cache.Key("search", normalized, spVideosOnly, strconv.Itoa(limit))

	q := url.Values{}
	q.Set("search_query", query)
	q.Set("sp", spVideosOnly)
	pageURL := s.baseURL + "/results?" + q.Encode()

	return s.resultSet(ctx, query, key, pageURL, limit)
}

// ChannelVideos returns the latest uploads of a channel. The channel may
// be a UC id, an @handle, or a bare name.
func (s *Service) ChannelVideos(ctx context.Context, channel string) (*types.ResultSet, error) {
	path, err := channelPath(channel)
	if err != nil {
		return nil, err
	}
	key := cache.Key("channel", cache.NormalizeQuery(channel))
	return s.resultSet(ctx, channel, key, s.baseURL+path, scrape.DefaultLimit)
}

func (s *Service) resultSet(ctx context.Context, query, key, pageURL string, limit int) (*types.ResultSet, error) {
	body, err := s.store.GetOrFetch(key, s.ttl, func() ([]byte, error) {
		return s.fetch(ctx, pageURL)
	})
	if err != nil {
		return nil, err
	}

	records, err := scrape.Extract(body, limit)
	if err != nil {
		// Extraction kinds propagate unchanged so the caller can tell
		// "couldn't reach the service" from "couldn't understand it".
		return nil, err
	}
	if len(records) == 0 {
		return nil, types.ErrNoResults
	}

	return &types.ResultSet{
		Query:     query,
		CreatedAt: time.Now(),
		Records:   records,
	}, nil
}

func (s *Service) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	s.log.Debug("fetching", "url", pageURL)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d for %s", types.ErrNetwork, resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	return body, nil
}

// channelPath maps a channel identifier to its /videos page path.
func channelPath(channel string) (string, error) {
	c := strings.TrimSpace(channel)
	switch {
	case c == "":
		return "", fmt.Errorf("%w: empty channel identifier", types.ErrNoResults)
	case strings.HasPrefix(c, "UC") && len(c) == 24:
		return "/channel/" + url.PathEscape(c) + "/videos", nil
	case strings.HasPrefix(c, "@"):
		return "/" + url.PathEscape(c) + "/videos", nil
	default:
		return "/@" + url.PathEscape(c) + "/videos", nil
	}
}
