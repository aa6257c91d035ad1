package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// chromeMu serializes all Chrome usage so only one instance runs at a time
var chromeMu sync.Mutex

// mirrorResolver turns a rotating mirror link into the bookmaker's current
// base URL. HTTP redirects are tried first; JS-only redirect pages fall
// back to a headless browser. The result is cached and re-resolved on an
// interval or when the cached host stops responding.
type mirrorResolver struct {
	fixedBaseURL string
	mirrorURL    string
	userAgent    string

	timeout         time.Duration
	resolveInterval time.Duration

	mu          sync.Mutex
	resolvedURL string
	lastResolve time.Time
}

func newMirrorResolver(baseURL, mirrorURL string, timeout time.Duration, userAgent string) *mirrorResolver {
	if baseURL != "" {
		mirrorURL = ""
	}
	return &mirrorResolver{
		fixedBaseURL:    baseURL,
		mirrorURL:       mirrorURL,
		userAgent:       userAgent,
		timeout:         timeout,
		resolveInterval: 2 * time.Hour,
	}
}

// baseURL returns the base URL to fetch against, resolving the mirror when
// needed. With a fixed base URL configured it never touches the network.
func (r *mirrorResolver) baseURL() (string, error) {
	if r.fixedBaseURL != "" {
		return r.fixedBaseURL, nil
	}
	if r.mirrorURL == "" {
		return "", fmt.Errorf("no base URL or mirror URL configured")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolvedURL != "" && time.Since(r.lastResolve) < r.resolveInterval {
		return r.resolvedURL, nil
	}

	resolved, err := r.resolveMirror()
	if err != nil {
		if r.resolvedURL != "" {
			slog.Warn("feed: mirror re-resolve failed, keeping cached URL", "mirror_url", r.mirrorURL, "cached_url", r.resolvedURL, "error", err)
			r.lastResolve = time.Now()
			return r.resolvedURL, nil
		}
		return "", fmt.Errorf("resolve mirror: %w", err)
	}

	base := normalizeResolvedBaseURL(resolved)
	r.resolvedURL = base
	r.lastResolve = time.Now()
	slog.Info("feed: mirror resolved", "mirror_url", r.mirrorURL, "resolved_base", base)
	return base, nil
}

// clearResolved drops the cached URL to force re-resolution on next fetch.
func (r *mirrorResolver) clearResolved() {
	if r.mirrorURL == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolvedURL != "" {
		slog.Debug("feed: clearing cached base URL to force re-resolution", "url", r.resolvedURL)
		r.resolvedURL = ""
	}
}

// shouldReResolve checks if an error indicates the cached mirror host died.
func (r *mirrorResolver) shouldReResolve(err error, statusCode int) bool {
	if r.mirrorURL == "" {
		return false
	}
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "connection refused") ||
			strings.Contains(errStr, "no such host") ||
			strings.Contains(errStr, "timeout") ||
			strings.Contains(errStr, "network is unreachable") {
			return true
		}
	}
	return statusCode == http.StatusBadGateway || statusCode == http.StatusServiceUnavailable
}

// resolveMirror follows the mirror link to the live host. Callers hold r.mu.
func (r *mirrorResolver) resolveMirror() (string, error) {
	client := &http.Client{
		Timeout: r.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return nil
		},
	}

	req, err := http.NewRequest(http.MethodGet, r.mirrorURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		slog.Info("feed: HTTP mirror resolution failed, trying headless browser", "error", err)
		return r.resolveMirrorWithJS()
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	if finalURL != r.mirrorURL {
		slog.Info("feed: resolved mirror", "from", r.mirrorURL, "to", finalURL, "method", "HTTP redirect")
		return finalURL, nil
	}

	// An HTML page that didn't redirect usually means a JS redirect stub.
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if body, err := io.ReadAll(resp.Body); err == nil {
			s := string(body)
			if strings.Contains(s, "<script") || strings.Contains(s, "window.location") || strings.Contains(s, "location.href") {
				slog.Debug("feed: detected JavaScript redirect, using headless browser")
			}
		}
	}
	return r.resolveMirrorWithJS()
}

// resolveMirrorWithJS uses a headless browser to execute the mirror page's
// JavaScript and read the final location.
func (r *mirrorResolver) resolveMirrorWithJS() (string, error) {
	chromeMu.Lock()
	defer chromeMu.Unlock()

	chromeDir, err := os.MkdirTemp("", "livedash_chrome_")
	if err != nil {
		return "", fmt.Errorf("create chrome temp dir: %w", err)
	}
	defer os.RemoveAll(chromeDir)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout+30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserDataDir(chromeDir),
		chromedp.UserAgent(r.userAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	ctx, cancel = chromedp.NewContext(allocCtx)
	defer cancel()

	var finalURL string
	err = chromedp.Run(ctx,
		chromedp.Navigate(r.mirrorURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp navigation: %w", err)
	}

	if finalURL == "" || finalURL == r.mirrorURL {
		// Give slow redirect chains one more chance.
		err = chromedp.Run(ctx,
			chromedp.Sleep(5*time.Second),
			chromedp.Location(&finalURL),
		)
		if err != nil {
			return "", fmt.Errorf("chromedp wait: %w", err)
		}
	}

	if finalURL == "" {
		return "", fmt.Errorf("mirror page never redirected")
	}

	slog.Debug("feed: resolved mirror", "from", r.mirrorURL, "to", finalURL, "method", "JavaScript redirect")
	return finalURL, nil
}

// normalizeResolvedBaseURL returns scheme://host from a full redirect URL
// (no path/query, no default port).
func normalizeResolvedBaseURL(resolved string) string {
	u, err := url.Parse(resolved)
	if err != nil {
		return resolved
	}
	host := u.Hostname()
	port := u.Port()
	if port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return u.Scheme + "://" + host
}
