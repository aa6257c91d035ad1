package feed

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"

	"github.com/qmercier/livedash/internal/pkg/config"
)

// ErrShape marks an upstream payload that decoded fine but has no Value
// array. The caller aborts the tick and retries on the next one.
var ErrShape = errors.New("feed document has no Value array")

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// Client fetches the raw feed document from the upstream bookmaker.
// It is pure I/O: endpoint and query are fixed at construction, Fetch
// returns the parsed document or an error.
type Client struct {
	path      string
	query     string
	userAgent string

	httpClient *http.Client
	limiter    *rate.Limiter
	resolver   *mirrorResolver
}

func NewClient(cfg *config.FeedConfig) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true // we send Accept-Encoding ourselves and decode in readBodyDecode

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		path:       cfg.Path,
		query:      cfg.Query,
		userAgent:  userAgent,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		resolver:   newMirrorResolver(cfg.BaseURL, cfg.MirrorURL, cfg.Timeout, userAgent),
	}

	if cfg.BaseURL != "" {
		slog.Info("feed: using fixed base URL, mirror disabled", "base_url", cfg.BaseURL)
	} else {
		slog.Info("feed: using mirror (resolve at runtime)", "mirror_url", cfg.MirrorURL)
	}
	return c
}

// Fetch performs one GET against the configured endpoint and returns the
// parsed document. Transport and decode failures come back wrapped; a
// response without a Value array is ErrShape.
func (c *Client) Fetch(ctx context.Context) (*Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	base, err := c.resolver.baseURL()
	if err != nil {
		return nil, fmt.Errorf("resolve base URL: %w", err)
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = c.path
	u.RawQuery = c.query

	body, err := c.doRequest(ctx, u.String())
	if err != nil {
		if c.resolver.shouldReResolve(err, 0) {
			c.resolver.clearResolved()
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode feed document: %w", err)
	}

	if !doc.HasValue() {
		return nil, fmt.Errorf("%w (body preview: %s)", ErrShape, preview(body, 200))
	}

	return &doc, nil
}

// doRequest performs HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("x-requested-with", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		slog.Warn("feed: upstream request failed", "url", urlStr, "status", resp.StatusCode, "body_preview", preview(b, 200))
		if c.resolver.shouldReResolve(nil, resp.StatusCode) {
			c.resolver.clearResolved()
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return readBodyDecode(resp)
}

// readBodyDecode reads the response body and decompresses it based on
// Content-Encoding (gzip, br, zstd).
func readBodyDecode(resp *http.Response) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch {
	case strings.Contains(enc, "br"):
		return io.ReadAll(brotli.NewReader(resp.Body))
	case strings.Contains(enc, "zstd"):
		r, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case strings.Contains(enc, "gzip"):
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return io.ReadAll(resp.Body)
	}
}

func preview(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
