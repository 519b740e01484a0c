package linkaudit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher defines how the engine retrieves the raw HTML of a seed page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body io.ReadCloser, statusCode int, err error)
}

// limitedReadCloser reads from a LimitReader but closes the original body.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}

// HTTPClient implements Fetcher using a real HTTP client.
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

const (
	maxRedirects     = 5
	maxResponseBody  = 10 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; LinkAudit/1.0)"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// NewHTTPClient returns a Fetcher for seed pages. It follows up to five
// redirects to http(s) targets and, unless allowPrivate is set, refuses to
// connect to private or reserved IP ranges.
func NewHTTPClient(userAgent string, timeout time.Duration, allowPrivate bool) *HTTPClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &HTTPClient{
		userAgent: userAgent,
		client: &http.Client{
			Timeout:       timeout,
			Transport:     newTransport(10, allowPrivate),
			CheckRedirect: safeRedirectPolicy,
		},
	}
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Fetch retrieves the page at the given URL and returns its body.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req) //nolint:bodyclose // body is returned to caller via limitedReadCloser
	if err != nil {
		return nil, 0, err
	}

	limited := &limitedReadCloser{
		Reader: io.LimitReader(resp.Body, maxResponseBody),
		Closer: resp.Body,
	}

	return limited, resp.StatusCode, nil
}
