package linkaudit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/link-audit/internal/model"
)

const maxProbeBody = 5 << 20

// ProberOptions tunes the outbound requests issued for link checks.
type ProberOptions struct {
	UserAgent            string
	LinkTimeout          time.Duration
	ExternalTimeout      time.Duration
	AllowPrivateNetworks bool
}

// Prober issues the per-link GET requests of validators and checkers using
// a reusable HTTP client that never follows redirects.
type Prober struct {
	client          *http.Client
	userAgent       string
	linkTimeout     time.Duration
	externalTimeout time.Duration
}

// NewProber returns a Prober whose transport blocks connections to private
// and reserved IP ranges unless opts.AllowPrivateNetworks is set.
func NewProber(opts ProberOptions, concurrency int) *Prober {
	return newProber(opts, newTransport(concurrency, opts.AllowPrivateNetworks))
}

func newProber(opts ProberOptions, transport http.RoundTripper) *Prober {
	if opts.LinkTimeout <= 0 {
		opts.LinkTimeout = 8 * time.Second
	}
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = 12 * time.Second
	}
	return &Prober{
		userAgent:       opts.UserAgent,
		linkTimeout:     opts.LinkTimeout,
		externalTimeout: opts.ExternalTimeout,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *Prober) timeoutFor(c model.Category) time.Duration {
	if c == model.CategoryExternal {
		return p.externalTimeout
	}
	return p.linkTimeout
}

// get performs one GET with its own timeout. The caller owns the response
// body and must call the returned cancel func once done with it.
func (p *Prober) get(ctx context.Context, href string, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, describeRequestError(err, timeout)
	}
	return resp, cancel, nil
}

// validate issues the single validation GET for href under policy.
func (p *Prober) validate(ctx context.Context, href string, category model.Category, policy *validationPolicy) model.ValidationResult {
	resp, cancel, err := p.get(ctx, href, p.timeoutFor(category))
	if err != nil {
		return policy.failure(0, err.Error())
	}
	defer cancel()
	defer drainAndClose(resp.Body)

	switch status := resp.StatusCode; {
	case status == http.StatusOK:
		return policy.success(href)
	case isRedirect(status):
		location := resp.Header.Get("Location")
		if loc, err := resp.Location(); err == nil {
			location = loc.String()
		}
		return policy.redirect(status, location)
	default:
		return policy.failure(status, fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status)))
	}
}

// fetchDocument GETs href and parses the body when the answer is 200. Any
// other status is returned with a nil document and no error.
func (p *Prober) fetchDocument(ctx context.Context, href string, timeout time.Duration) (*goquery.Document, int, error) {
	resp, cancel, err := p.get(ctx, href, timeout)
	if err != nil {
		return nil, 0, err
	}
	defer cancel()
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse html: %w", err)
	}
	return doc, resp.StatusCode, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func describeRequestError(err error, timeout time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("request timed out after %s", timeout)
	}
	return err
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
