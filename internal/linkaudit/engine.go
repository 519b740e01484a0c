package linkaudit

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/link-audit/internal/model"
	"github.com/Bahjat/link-audit/internal/platform/errs"
)

// EngineConfig holds the engine's site conventions and collaborators.
type EngineConfig struct {
	// Domain is the canonical site host. When empty, each seed URL's own
	// host is used.
	Domain  string
	Profile SiteProfile
	Logger  *slog.Logger
}

// Engine orchestrates page fetching, link extraction, validation and
// availability checks.
type Engine struct {
	fetcher  Fetcher
	prober   *Prober
	linkGate *Gate
	pageGate *Gate
	domain   string
	profile  *compiledProfile
	logger   *slog.Logger
}

// NewEngine returns an Engine that fetches seed pages with fetcher, issues
// link requests through prober under linkGate, and runs batch crawls under
// pageGate. It panics if the profile holds an invalid selector.
func NewEngine(fetcher Fetcher, prober *Prober, linkGate, pageGate *Gate, cfg EngineConfig) *Engine {
	profile, err := compileProfile(cfg.Profile)
	if err != nil {
		panic("linkaudit: invalid site profile: " + err.Error())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		fetcher:  fetcher,
		prober:   prober,
		linkGate: linkGate,
		pageGate: pageGate,
		domain:   cfg.Domain,
		profile:  profile,
		logger:   logger,
	}
}

// Extract fetches a page and returns its links without validating them.
func (e *Engine) Extract(ctx context.Context, targetURL string) (*model.ExtractResult, error) {
	doc, base, err := e.loadPage(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	links := e.extractor().extractAll(doc, base, e.domainFor(base))
	return &model.ExtractResult{
		URL:     targetURL,
		Links:   links,
		Summary: summarizeExtraction(links),
	}, nil
}

// Audit fetches a page, extracts its links, validates them, checks the
// availability of the valid ones and aggregates the outcome.
func (e *Engine) Audit(ctx context.Context, targetURL string) (*model.AuditResult, error) {
	doc, base, err := e.loadPage(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	links := e.extractor().extractAll(doc, base, e.domainFor(base))
	c := &crawl{
		prober:   e.prober,
		profile:  e.profile,
		seed:     base,
		listings: newListingCache(),
		logger:   e.logger,
	}

	mergeValidation(links, e.validateLinks(ctx, links))
	mergeAvailability(links, e.checkAvailability(ctx, c, links))

	gs := e.linkGate.Stats()
	e.logger.Debug("crawl finished",
		"url", targetURL,
		"links", len(links),
		"gate_limit", gs.Limit,
		"gate_high_water", gs.HighWater,
		"gate_in_flight", gs.InFlight,
	)
	return aggregate(targetURL, links), nil
}

func (e *Engine) extractor() *extractor {
	return &extractor{profile: e.profile, logger: e.logger}
}

func (e *Engine) domainFor(base *url.URL) string {
	if e.domain != "" {
		return e.domain
	}
	return base.Hostname()
}

// validateLinks runs the category validator of every distinct href.
func (e *Engine) validateLinks(ctx context.Context, links []model.Link) map[string]model.ValidationResult {
	var targets []model.Link
	seen := make(map[string]bool)
	for _, l := range links {
		if strategyFor(l.Category).validation == nil || seen[l.Href] {
			continue
		}
		seen[l.Href] = true
		targets = append(targets, l)
	}

	outcomes := RunEach(e.linkGate, targets,
		func(l model.Link) model.ValidationResult {
			policy := strategyFor(l.Category).validation
			result := e.prober.validate(ctx, l.Href, l.Category, policy)
			if !result.Valid {
				e.logger.Debug("link failed validation", "href", l.Href, "category", l.Category, "status", result.Status)
			}
			return result
		},
		func(l model.Link, err error) model.ValidationResult {
			return strategyFor(l.Category).validation.failure(0, err.Error())
		},
	)

	results := make(map[string]model.ValidationResult, len(targets))
	for i, l := range targets {
		results[l.Href] = outcomes[i]
	}
	return results
}

// checkAvailability runs the category checker of every distinct href whose
// validation succeeded.
func (e *Engine) checkAvailability(ctx context.Context, c *crawl, links []model.Link) map[string]model.Availability {
	var targets []model.Link
	seen := make(map[string]bool)
	for _, l := range links {
		if !l.IsValid() || strategyFor(l.Category).checker == nil || seen[l.Href] {
			continue
		}
		seen[l.Href] = true
		targets = append(targets, l)
	}

	outcomes := RunEach(e.linkGate, targets,
		func(l model.Link) model.Availability {
			result := strategyFor(l.Category).checker.check(ctx, c, l)
			if msg := result.Failure(); msg != nil {
				e.logger.Debug("link unavailable", "href", l.Href, "category", l.Category, "reason", *msg)
			}
			return result
		},
		func(l model.Link, err error) model.Availability {
			return strategyFor(l.Category).checker.failed(err.Error())
		},
	)

	results := make(map[string]model.Availability, len(targets))
	for i, l := range targets {
		results[l.Href] = outcomes[i]
	}
	return results
}

// loadPage validates targetURL, fetches it and parses the HTML.
func (e *Engine) loadPage(ctx context.Context, targetURL string) (*goquery.Document, *url.URL, error) {
	parsed, err := parseSeedURL(targetURL)
	if err != nil {
		return nil, nil, err
	}

	body, statusCode, err := e.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		if isTimeout(err) {
			return nil, nil, &errs.AppError{
				Kind:    errs.Timeout,
				Message: "The provided URL took too long to respond.",
				Cause:   err,
			}
		}
		return nil, nil, &errs.AppError{
			Kind:    errs.Unreachable,
			Message: "The provided URL could not be reached. Check the address.",
			Cause:   err,
		}
	}
	defer func() { _ = body.Close() }()

	switch {
	case statusCode == http.StatusNotFound:
		return nil, nil, &errs.AppError{
			Kind:           errs.NotFound,
			UpstreamStatus: statusCode,
			Message:        "The provided URL was not found.",
		}
	case statusCode < 200 || statusCode >= 300:
		return nil, nil, &errs.AppError{
			Kind:           errs.Unreachable,
			UpstreamStatus: statusCode,
			Message:        "The provided URL returned an error status.",
		}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, nil, &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "Failed to parse the HTML content.",
			Cause:   err,
		}
	}
	return doc, parsed, nil
}

// parseSeedURL accepts absolute http(s) URLs only.
func parseSeedURL(targetURL string) (*url.URL, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
			Cause:   err,
		}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Only http and https URLs are supported.",
		}
	}
	return parsed, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}
