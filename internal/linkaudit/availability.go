package linkaudit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	"github.com/Bahjat/link-audit/internal/model"
)

const defaultCurrency = "USD"

// crawl is the per-page state shared by the availability checkers of one
// audit.
type crawl struct {
	prober   *Prober
	profile  *compiledProfile
	seed     *url.URL
	listings *listingCache
	logger   *slog.Logger
}

// checker extracts the domain-specific availability signals of one
// category from a link already known to be valid.
type checker interface {
	placeholder() model.Availability
	failed(reason string) model.Availability
	check(ctx context.Context, c *crawl, link model.Link) model.Availability
}

// reachabilityChecker treats a link as available iff it answers 200.
type reachabilityChecker struct{}

func (reachabilityChecker) placeholder() model.Availability { return &model.Reachability{} }

func (reachabilityChecker) failed(reason string) model.Availability {
	return &model.Reachability{Available: ptr(false), AvailabilityError: &reason}
}

func (reachabilityChecker) check(ctx context.Context, c *crawl, link model.Link) model.Availability {
	resp, cancel, err := c.prober.get(ctx, link.Href, c.prober.timeoutFor(link.Category))
	if err != nil {
		return &model.Reachability{Available: ptr(false), AvailabilityError: ptr(err.Error())}
	}
	defer cancel()
	defer drainAndClose(resp.Body)

	result := &model.Reachability{
		Available:          ptr(resp.StatusCode == http.StatusOK),
		AvailabilityStatus: ptr(resp.StatusCode),
	}
	if resp.StatusCode != http.StatusOK {
		result.AvailabilityError = ptr(statusMessage(resp.StatusCode))
	}
	return result
}

// cruisePriceChecker reads the first price amount of a cruise page.
type cruisePriceChecker struct{}

func (cruisePriceChecker) placeholder() model.Availability { return &model.CruisePrice{} }

func (cruisePriceChecker) failed(reason string) model.Availability {
	return &model.CruisePrice{Available: ptr(false), AvailabilityError: &reason}
}

func (cruisePriceChecker) check(ctx context.Context, c *crawl, link model.Link) model.Availability {
	doc, status, err := c.prober.fetchDocument(ctx, link.Href, c.prober.linkTimeout)
	if msg := pageFailure(doc, status, err); msg != "" {
		return &model.CruisePrice{Available: ptr(false), AvailabilityError: &msg}
	}

	amount := doc.Find(c.profile.CruisePriceSelector).First()
	if amount.Length() == 0 {
		return &model.CruisePrice{Available: ptr(false), AvailabilityError: ptr("price element not found")}
	}

	price, currency, ok := parsePrice(amount.Text())
	result := &model.CruisePrice{Available: ptr(ok), Currency: &currency}
	if ok {
		result.Price = &price
	} else {
		result.AvailabilityError = ptr("no positive price found")
	}
	return result
}

// tourPriceChecker reads price, title and departure details of a tour page.
type tourPriceChecker struct{}

func (tourPriceChecker) placeholder() model.Availability { return &model.TourDetails{} }

func (tourPriceChecker) failed(reason string) model.Availability {
	return &model.TourDetails{Available: ptr(false), AvailabilityError: &reason}
}

func (tourPriceChecker) check(ctx context.Context, c *crawl, link model.Link) model.Availability {
	result := &model.TourDetails{TourID: tourIDFromURL(link.Href), Available: ptr(false)}

	doc, status, err := c.prober.fetchDocument(ctx, link.Href, c.prober.linkTimeout)
	if msg := pageFailure(doc, status, err); msg != "" {
		result.AvailabilityError = &msg
		return result
	}

	result.TourTitle = textOf(doc, c.profile.TourTitleSelector)
	result.DepartureInfo = textOf(doc, c.profile.DepartureSelector)
	result.Duration = textOf(doc, c.profile.DurationSelector)

	for _, sel := range c.profile.TourPriceSelectors {
		amount := doc.Find(sel).First()
		if amount.Length() == 0 {
			continue
		}
		price, currency, ok := parsePrice(amount.Text())
		result.Currency = &currency
		if ok {
			result.Price = &price
			result.Available = ptr(true)
			return result
		}
		break
	}

	result.AvailabilityError = ptr("no positive price found")
	return result
}

// activityChecker matches the activity slug of the URL against the
// experience and activity filters of the listing page.
type activityChecker struct{}

func (activityChecker) placeholder() model.Availability { return &model.ActivityMatch{} }

func (activityChecker) failed(reason string) model.Availability {
	return &model.ActivityMatch{Available: ptr(false), AvailabilityError: &reason}
}

func (activityChecker) check(ctx context.Context, c *crawl, link model.Link) model.Availability {
	doc, status, err := c.prober.fetchDocument(ctx, link.Href, c.prober.linkTimeout)
	if msg := pageFailure(doc, status, err); msg != "" {
		return &model.ActivityMatch{Available: ptr(false), AvailabilityError: &msg}
	}

	if doc.Find(c.profile.IndexListSelector).Length() == 0 {
		return &model.ActivityMatch{Available: ptr(true), IsLandingPage: ptr(true)}
	}

	experiences := optionLabels(doc.Find(c.profile.ExperienceSelector))
	activities := optionLabels(doc.Find(c.profile.ActivitySelector))
	slug := lastSegment(link.Href)

	matchedExperience := activityMatches(slug, experiences)
	matchedActivity := activityMatches(slug, activities)

	result := &model.ActivityMatch{
		Available:         ptr(matchedExperience || matchedActivity),
		IsLandingPage:     ptr(false),
		ExperienceOptions: experiences,
		ActivityOptions:   activities,
		MatchedExperience: &matchedExperience,
		MatchedActivity:   &matchedActivity,
	}
	if !*result.Available {
		result.AvailabilityError = ptr(fmt.Sprintf("%q matches no experience or activity option", slug))
	}
	return result
}

// shipChecker matches the ship named in the URL against the ship filter of
// the destination's tours listing.
type shipChecker struct{}

func (shipChecker) placeholder() model.Availability { return &model.ShipMatch{} }

func (shipChecker) failed(reason string) model.Availability {
	return &model.ShipMatch{Available: ptr(false), AvailabilityError: &reason}
}

func (shipChecker) check(ctx context.Context, c *crawl, link model.Link) model.Availability {
	toursURL := toursListingURL(c.seed)
	shipName := shipNameFromURL(link.Href)
	result := &model.ShipMatch{
		Available: ptr(false),
		ShipName:  &shipName,
		ToursURL:  &toursURL,
	}
	if shipName == "" {
		result.AvailabilityError = ptr("no ship name in URL")
		return result
	}

	options, err := c.listings.shipOptions(toursURL, func() ([]string, error) {
		return c.loadShipOptions(ctx, toursURL)
	})
	if err != nil {
		result.AvailabilityError = ptr(err.Error())
		return result
	}
	result.ShipOptions = options

	for _, opt := range options {
		if shipNamesMatch(shipName, opt) {
			result.Available = ptr(true)
			result.MatchedShip = &opt
			return result
		}
	}
	result.AvailabilityError = ptr(fmt.Sprintf("ship %q not offered on tours listing", shipName))
	return result
}

func (c *crawl) loadShipOptions(ctx context.Context, toursURL string) ([]string, error) {
	doc, status, err := c.prober.fetchDocument(ctx, toursURL, c.prober.linkTimeout)
	if msg := pageFailure(doc, status, err); msg != "" {
		return nil, fmt.Errorf("tours listing: %s", msg)
	}
	return optionLabels(doc.Find(c.profile.ShipOptionSelector)), nil
}

// listingCache fetches each tours listing at most once per crawl, also
// when several ship links ask for it concurrently.
type listingCache struct {
	group singleflight.Group

	mu   sync.Mutex
	done map[string]listing
}

type listing struct {
	options []string
	err     error
}

func newListingCache() *listingCache {
	return &listingCache{done: make(map[string]listing)}
}

func (lc *listingCache) shipOptions(key string, load func() ([]string, error)) ([]string, error) {
	lc.mu.Lock()
	if l, ok := lc.done[key]; ok {
		lc.mu.Unlock()
		return l.options, l.err
	}
	lc.mu.Unlock()

	v, err, _ := lc.group.Do(key, func() (any, error) {
		options, err := load()
		lc.mu.Lock()
		lc.done[key] = listing{options: options, err: err}
		lc.mu.Unlock()
		return options, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// pageFailure describes why a fetched page cannot be inspected, or returns
// an empty string when doc is usable.
func pageFailure(doc *goquery.Document, status int, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case doc == nil:
		return statusMessage(status)
	}
	return ""
}

func statusMessage(status int) string {
	return fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status))
}

// parsePrice extracts a positive amount from price text such as "$1,299"
// or "2,450.00 EUR". The currency is what remains once digits, punctuation
// and spaces are removed.
func parsePrice(text string) (float64, string, bool) {
	var digits, currency strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsDigit(r) || r == '.':
			digits.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSpace(r):
		default:
			currency.WriteRune(r)
		}
	}

	cur := currency.String()
	if cur == "" {
		cur = defaultCurrency
	}

	amount, err := strconv.ParseFloat(strings.Trim(digits.String(), "."), 64)
	if err != nil || amount <= 0 {
		return 0, cur, false
	}
	return amount, cur, true
}

func optionLabels(sel *goquery.Selection) []string {
	var labels []string
	seen := make(map[string]bool)
	sel.Each(func(_ int, s *goquery.Selection) {
		label := collapseWhitespace(s.Text())
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		labels = append(labels, label)
	})
	return labels
}

func textOf(doc *goquery.Document, selector string) *string {
	if selector == "" {
		return nil
	}
	text := collapseWhitespace(doc.Find(selector).First().Text())
	if text == "" {
		return nil
	}
	return &text
}

func urlSegments(href string) []string {
	u, err := url.Parse(href)
	if err != nil {
		return nil
	}
	return pathSegments(u.Path)
}

func lastSegment(href string) string {
	segs := urlSegments(href)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

func tourIDFromURL(href string) *int {
	tail, ok := segmentAfter(urlSegments(href), "tours")
	if !ok || !isNumeric(tail) {
		return nil
	}
	id, err := strconv.Atoi(tail)
	if err != nil {
		return nil
	}
	return &id
}

// shipNameFromURL returns the ship slug of a cruises/<id>/<ship> URL with
// hyphens turned into spaces.
func shipNameFromURL(href string) string {
	segs := urlSegments(href)
	if len(segs) < 3 {
		return ""
	}
	return strings.ReplaceAll(segs[2], "-", " ")
}

// toursListingURL derives the tours listing that sits next to the seed
// page: a trailing special segment is replaced by "tours", otherwise
// "tours" is appended.
func toursListingURL(seed *url.URL) string {
	segs := pathSegments(seed.Path)
	if n := len(segs); n > 0 && specialPageKeywords[segs[n-1]] {
		segs = segs[:n-1]
	}
	segs = append(segs, "tours")

	listing := url.URL{Scheme: seed.Scheme, Host: seed.Host, Path: "/" + strings.Join(segs, "/")}
	return listing.String()
}

func ptr[T any](v T) *T {
	return &v
}
