// Package backend is the HTTP client for the feed backend and its media proxies.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/metrics"
)

// ProxyMode selects which proxy the client resolves media through.
type ProxyMode string

const (
	// ProxyAuto prefers the thin proxy when a CDN locator exists and falls back to the full proxy.
	ProxyAuto ProxyMode = "auto"
	// ProxyThin routes playback and prefetch through the thin proxy whenever a CDN locator exists.
	ProxyThin ProxyMode = "thin"
	// ProxyFull never uses CDN locators.
	ProxyFull ProxyMode = "full"
)

// ParseProxyMode validates a proxy mode string.
func ParseProxyMode(s string) (ProxyMode, error) {
	switch m := ProxyMode(strings.ToLower(s)); m {
	case ProxyAuto, ProxyThin, ProxyFull:
		return m, nil
	case "":
		return ProxyAuto, nil
	default:
		return "", fmt.Errorf("unknown proxy mode %q", s)
	}
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	ProxyMode ProxyMode
}

// Client implements repository.FeedBackend and repository.MediaFetcher over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	proxyMode  ProxyMode
}

var (
	_ repository.FeedBackend  = (*Client)(nil)
	_ repository.MediaFetcher = (*Client)(nil)
)

// NewClient creates a backend client with a timeout-bound http.Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	return newClientWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// newClientWithHTTPClient creates a Client with a given http.Client.
// This is used for dependency injection in tests.
func newClientWithHTTPClient(cfg ClientConfig, hc *http.Client) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", cfg.BaseURL)
	}

	mode := cfg.ProxyMode
	if mode == "" {
		mode = ProxyAuto
	}

	return &Client{
		baseURL:    strings.TrimSuffix(base.String(), "/"),
		httpClient: hc,
		proxyMode:  mode,
	}, nil
}

// descriptorJSON is the backend wire shape of a video descriptor.
type descriptorJSON struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	CDNURL      string `json:"cdn_url"`
	Views       int64  `json:"views"`
	Likes       int64  `json:"likes"`
}

func (d descriptorJSON) toModel(position int) model.VideoDescriptor {
	return model.VideoDescriptor{
		ID:          d.ID,
		URL:         d.URL,
		CDNURL:      d.CDNURL,
		Thumbnail:   d.Thumbnail,
		Author:      d.Author,
		Description: d.Description,
		Views:       d.Views,
		Likes:       d.Likes,
	}.Normalize(position)
}

type videosEnvelope struct {
	Videos  []descriptorJSON `json:"videos"`
	Cursor  string           `json:"cursor"`
	HasMore *bool            `json:"has_more"`
}

func toModels(in []descriptorJSON) []model.VideoDescriptor {
	out := make([]model.VideoDescriptor, len(in))
	for i, d := range in {
		out[i] = d.toModel(i)
	}
	return out
}

// Feed fetches a batch of the primary feed.
// The endpoint returns a bare array; a {videos:[...]} envelope is also accepted.
func (c *Client) Feed(ctx context.Context, req repository.FeedRequest) ([]model.VideoDescriptor, error) {
	q := url.Values{}
	if req.Fast {
		q.Set("fast", "true")
	}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	if req.SkipCache {
		q.Set("skip_cache", "true")
	}

	body, err := c.getJSON(ctx, metrics.EndpointFeed, "/feed", q)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env videosEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode feed: %w", err)
		}
		return toModels(env.Videos), nil
	}

	var items []descriptorJSON
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return toModels(items), nil
}

// UserVideos fetches recent videos of one author.
func (c *Client) UserVideos(ctx context.Context, username string, limit int) ([]model.VideoDescriptor, error) {
	q := url.Values{}
	q.Set("username", strings.TrimPrefix(username, "@"))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.getJSON(ctx, metrics.EndpointUserVideos, "/user/videos", q)
	if err != nil {
		return nil, err
	}

	var env videosEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode user videos: %w", err)
	}
	return toModels(env.Videos), nil
}

// Search fetches one page of search results.
// HasMore follows an explicit has_more field when present, else the presence of a cursor.
func (c *Client) Search(ctx context.Context, query string, limit int, cursor string) (*model.FeedPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	body, err := c.getJSON(ctx, metrics.EndpointSearch, "/user/search", q)
	if err != nil {
		return nil, err
	}

	var env videosEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	hasMore := env.Cursor != ""
	if env.HasMore != nil {
		hasMore = hasMore && *env.HasMore
	}

	return &model.FeedPage{
		Items:   toModels(env.Videos),
		Cursor:  env.Cursor,
		HasMore: hasMore,
	}, nil
}

// SourceURL resolves the proxy URL for a tier.
// Returns "" when the tier is not available for the video.
func (c *Client) SourceURL(video model.VideoDescriptor, tier model.SourceTier) string {
	switch tier {
	case model.TierThin:
		if c.proxyMode == ProxyFull || video.CDNURL == "" {
			return ""
		}
		return c.baseURL + "/feed/thin-proxy?" + url.Values{"cdn_url": {video.CDNURL}}.Encode()
	case model.TierPrimary:
		if video.URL == "" {
			return ""
		}
		return c.baseURL + "/feed/proxy?" + url.Values{"url": {video.URL}}.Encode()
	default:
		return ""
	}
}

// PrefetchURL resolves the URL a prefetch task fetches its partial range from.
// It picks the tier playback tries first, so warmed bytes match what plays.
func (c *Client) PrefetchURL(video model.VideoDescriptor) string {
	if u := c.SourceURL(video, model.TierThin); u != "" {
		return u
	}
	return c.SourceURL(video, model.TierPrimary)
}

// FetchRange fetches at most n bytes from the start of the resource.
func (c *Client) FetchRange(ctx context.Context, rawURL string, n int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}
	if n > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(metrics.EndpointMedia, metrics.BackendError).Inc()
		return nil, fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(metrics.EndpointMedia, resp); err != nil {
		return nil, err
	}

	var r io.Reader = resp.Body
	if n > 0 {
		r = io.LimitReader(resp.Body, n)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, metrics.BackendError).Inc()
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(endpoint, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) checkStatus(endpoint string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, metrics.BackendUnauthenticated).Inc()
		return repository.ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, metrics.BackendError).Inc()
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return fmt.Errorf("%w: %s returned HTTP %d", repository.ErrBackendUnavailable, endpoint, resp.StatusCode)
	default:
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, metrics.BackendSuccess).Inc()
		return nil
	}
}

