package linkaudit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/link-audit/internal/model"
	"github.com/Bahjat/link-audit/internal/platform/errs"
)

// fakePage is what fakeFetcher returns for one seed URL.
type fakePage struct {
	status int
	body   string
	err    error
	panics bool
}

type fakeFetcher struct {
	pages map[string]fakePage
	calls atomic.Int64
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (io.ReadCloser, int, error) {
	f.calls.Add(1)
	p, ok := f.pages[u]
	if !ok {
		return nil, 0, fmt.Errorf("no page for %s", u)
	}
	if p.panics {
		panic("fetcher exploded")
	}
	if p.err != nil {
		return nil, 0, p.err
	}
	status := p.status
	if status == 0 {
		status = http.StatusOK
	}
	return io.NopCloser(strings.NewReader(p.body)), status, nil
}

// handlerTransport serves link requests in-process from an http.Handler and
// records per-path hit counts and peak concurrency.
type handlerTransport struct {
	handler http.Handler
	delay   time.Duration

	inFlight atomic.Int64
	peak     atomic.Int64

	mu   sync.Mutex
	hits map[string]int
}

func newHandlerTransport(h http.Handler) *handlerTransport {
	return &handlerTransport{handler: h, hits: make(map[string]int)}
}

func (ht *handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := ht.inFlight.Add(1)
	defer ht.inFlight.Add(-1)
	for {
		p := ht.peak.Load()
		if n <= p || ht.peak.CompareAndSwap(p, n) {
			break
		}
	}

	ht.mu.Lock()
	ht.hits[req.URL.Host+req.URL.Path]++
	ht.mu.Unlock()

	if ht.delay > 0 {
		time.Sleep(ht.delay)
	}

	rec := httptest.NewRecorder()
	ht.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (ht *handlerTransport) hitsFor(hostPath string) int {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	return ht.hits[hostPath]
}

func newTestEngine(fetcher Fetcher, transport http.RoundTripper, linkLimit int) *Engine {
	return NewEngine(fetcher, newProber(ProberOptions{UserAgent: "test"}, transport),
		NewGate(linkLimit), NewGate(2),
		EngineConfig{
			Domain:  "example.com",
			Profile: DefaultSiteProfile(),
			Logger:  slog.New(slog.DiscardHandler),
		},
	)
}

const seedURL = "https://www.example.com/peru"

const seedHTML = `<html><body>
<div class="intro-section">
  <a href="/peru/tours/18055/inca-trail"><span class="card-title">Inca <b>Trail</b> Trek</span></a>
  <a href="https://partner.org/info">Partner</a>
  <a href="#top">top</a>
  <a href="javascript:void(0)">js</a>
  <a href="mailto:sales@example.com">mail</a>
</div>
<div class="main-content">
  <div class="section-tours">
    <div class="section-title"><h2>Top Tours</h2></div>
    <a href="/peru/tours/hiking"><img src="hike.jpg" alt="Hiking trips"></a>
    <a href="/peru/tours/99/gone" aria-label="Gone tour"></a>
  </div>
  <div class="cruises-section">
    <div class="section-title"><h3>Cruises</h3></div>
    <a href="/cruises/123/wind-star">Wind Star</a>
    <a href="/peru/cruises/456/">Peru cruise</a>
  </div>
  <div>
    <a href="/contactt">Contact</a>
    <a href="/peru/cusco">Cusco <script>track()</script></a>
    <a href="/peru/deals/summer"><img src="deal.jpg"></a>
    <a href="/peru/tours/18055/inca-trail">Duplicate</a>
  </div>
</div>
</body></html>`

func siteHandler() http.Handler {
	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, body)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("www.example.com/peru/tours/18055/inca-trail", html(
		`<h1>Inca Trail Trek</h1>
		<div class="tour-price"><span class="price-amount">$1,299</span></div>
		<div class="departure-info">Daily departures</div>
		<div class="tour-duration">4 days</div>`))
	mux.HandleFunc("partner.org/info", html(`<p>partner</p>`))
	mux.HandleFunc("www.example.com/peru/tours/hiking", html(
		`<div class="index-list">
		<select class="experience-options"><option>Hiking &amp; Trekking</option><option>Hiking &amp; Trekking</option></select>
		<select class="activity-options"><option>Rafting</option></select>
		</div>`))
	mux.HandleFunc("www.example.com/cruises/123/wind-star", html(`<h1>Wind Star</h1>`))
	mux.HandleFunc("www.example.com/peru/tours", html(
		`<select class="ship-filter"><option>M/S Wind Star</option><option>Sea Cloud</option></select>`))
	mux.HandleFunc("www.example.com/peru/cruises/456/", html(`<span class="price-amount">2,450.00 EUR</span>`))
	mux.HandleFunc("www.example.com/contactt", html(`<p>contact</p>`))
	mux.HandleFunc("www.example.com/peru/cusco", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/peru/cusco-region", http.StatusMovedPermanently)
	})
	return mux
}

func linkByHref(t *testing.T, links []model.Link, href string) model.Link {
	t.Helper()
	for _, l := range links {
		if l.Href == href {
			return l
		}
	}
	t.Fatalf("no link with href %s", href)
	return model.Link{}
}

func TestEngineExtract(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{seedURL: {body: seedHTML}}}
	transport := newHandlerTransport(siteHandler())
	engine := newTestEngine(fetcher, transport, 5)

	res, err := engine.Extract(context.Background(), seedURL)
	require.NoError(t, err)

	require.Len(t, res.Links, 10)
	assert.Equal(t, 10, res.Summary.TotalLinks)
	assert.Equal(t, 2, res.Summary.ByRegion["intro"])
	assert.Equal(t, 8, res.Summary.ByRegion["main"])

	first := res.Links[0]
	assert.Equal(t, "https://www.example.com/peru/tours/18055/inca-trail", first.Href)
	assert.Equal(t, "Inca Trail Trek", first.Text)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "intro", first.Region)
	assert.Equal(t, model.CategoryTourWithID, first.Category)
	assert.Equal(t, "intro", first.Section)
	require.NotNil(t, first.SectionTitle)
	assert.Equal(t, IntroSectionTitle, *first.SectionTitle)
	assert.Nil(t, first.Validation)
	assert.Equal(t, &model.TourDetails{}, first.Availability)

	partner := res.Links[1]
	assert.Equal(t, model.CategoryExternal, partner.Category)
	assert.Equal(t, 2, partner.Position)

	hiking := res.Links[2]
	assert.Equal(t, 1, hiking.Position)
	assert.Equal(t, "main", hiking.Region)
	assert.Equal(t, "Hiking trips", hiking.Text)
	assert.Equal(t, "tours", hiking.Section)
	require.NotNil(t, hiking.SectionTitle)
	assert.Equal(t, "Top Tours", *hiking.SectionTitle)

	assert.Equal(t, "Gone tour", res.Links[3].Text)

	cruise := res.Links[4]
	assert.Equal(t, "cruises", cruise.Section)
	require.NotNil(t, cruise.SectionTitle)
	assert.Equal(t, "Cruises", *cruise.SectionTitle)

	cusco := linkByHref(t, res.Links, "https://www.example.com/peru/cusco")
	assert.Equal(t, "Cusco", cusco.Text)
	assert.Equal(t, "unknown", cusco.Section)
	assert.Nil(t, cusco.SectionTitle)
	assert.Equal(t, model.DestinationCategory(2), cusco.Category)

	deals := linkByHref(t, res.Links, "https://www.example.com/peru/deals/summer")
	assert.Equal(t, "Image Link", deals.Text)
	assert.False(t, deals.Validated)
	assert.Nil(t, deals.Availability)

	assert.Zero(t, transport.hitsFor("www.example.com/peru/tours/18055/inca-trail"), "extract must not touch links")
}

func TestEngineAudit(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{seedURL: {body: seedHTML}}}
	transport := newHandlerTransport(siteHandler())
	engine := newTestEngine(fetcher, transport, 5)

	res, err := engine.Audit(context.Background(), seedURL)
	require.NoError(t, err)
	links := res.DetailedResults
	require.Len(t, links, 10)

	t.Run("tour with id", func(t *testing.T) {
		l := links[0]
		require.True(t, l.IsValid())
		tour, ok := l.Availability.(*model.TourDetails)
		require.True(t, ok)
		require.NotNil(t, tour.TourID)
		assert.Equal(t, 18055, *tour.TourID)
		require.NotNil(t, tour.Price)
		assert.InDelta(t, 1299, *tour.Price, 0.001)
		assert.Equal(t, "$", *tour.Currency)
		assert.Equal(t, "Inca Trail Trek", *tour.TourTitle)
		assert.Equal(t, "Daily departures", *tour.DepartureInfo)
		assert.Equal(t, "4 days", *tour.Duration)
		assert.True(t, *tour.Available)

		dup := links[9]
		assert.Equal(t, l.Validation, dup.Validation)
		assert.Equal(t, l.Availability, dup.Availability)
		assert.Equal(t, 2, transport.hitsFor("www.example.com/peru/tours/18055/inca-trail"), "one validation and one check per distinct href")
	})

	t.Run("external", func(t *testing.T) {
		l := linkByHref(t, links, "https://partner.org/info")
		assert.True(t, l.IsValid())
		r, ok := l.Availability.(*model.Reachability)
		require.True(t, ok)
		assert.True(t, *r.Available)
		assert.Equal(t, 200, *r.AvailabilityStatus)
	})

	t.Run("activity", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/peru/tours/hiking")
		a, ok := l.Availability.(*model.ActivityMatch)
		require.True(t, ok)
		assert.True(t, *a.Available)
		assert.True(t, *a.MatchedExperience)
		assert.False(t, *a.MatchedActivity)
		assert.False(t, *a.IsLandingPage)
		assert.Equal(t, []string{"Hiking & Trekking"}, a.ExperienceOptions)
	})

	t.Run("invalid tour keeps placeholder", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/peru/tours/99/gone")
		assert.False(t, l.IsValid())
		assert.Equal(t, 404, l.Validation.Status)
		assert.Nil(t, l.IsAvailable())
		assert.Equal(t, &model.TourDetails{}, l.Availability)
	})

	t.Run("ship", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/cruises/123/wind-star")
		s, ok := l.Availability.(*model.ShipMatch)
		require.True(t, ok)
		assert.True(t, *s.Available)
		assert.Equal(t, "wind star", *s.ShipName)
		assert.Equal(t, "https://www.example.com/peru/tours", *s.ToursURL)
		assert.Equal(t, "M/S Wind Star", *s.MatchedShip)
		assert.Equal(t, []string{"M/S Wind Star", "Sea Cloud"}, s.ShipOptions)
	})

	t.Run("cruise price", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/peru/cruises/456/")
		c, ok := l.Availability.(*model.CruisePrice)
		require.True(t, ok)
		assert.True(t, *c.Available)
		assert.InDelta(t, 2450, *c.Price, 0.001)
		assert.Equal(t, "EUR", *c.Currency)
	})

	t.Run("wrong contact forced invalid", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/contactt")
		assert.Equal(t, model.CategoryWrongContact, l.Category)
		assert.False(t, l.IsValid())
		assert.Equal(t, 200, l.Validation.Status)
		assert.Nil(t, l.Availability)
	})

	t.Run("redirect", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/peru/cusco")
		assert.False(t, l.IsValid())
		assert.True(t, l.Validation.Redirected)
		assert.Equal(t, "https://www.example.com/peru/cusco-region", *l.Validation.ResolvedURL)
		assert.Zero(t, transport.hitsFor("www.example.com/peru/cusco-region"))
	})

	t.Run("unvalidated", func(t *testing.T) {
		l := linkByHref(t, links, "https://www.example.com/peru/deals/summer")
		assert.Nil(t, l.Validation)
		assert.Zero(t, transport.hitsFor("www.example.com/peru/deals/summer"))
	})

	t.Run("stats", func(t *testing.T) {
		tot := res.Stats.Totals
		assert.Equal(t, 10, res.Stats.TotalLinks)
		assert.Equal(t, 6, tot.Valid)
		assert.Equal(t, 3, tot.Invalid)
		assert.Equal(t, 1, tot.Redirected)
		assert.Equal(t, 2, tot.Errors)
		assert.Equal(t, 6, tot.Available)
		assert.Zero(t, tot.Unavailable)
		assert.Equal(t, 3, res.Stats.ByCategory[model.CategoryTourWithID])
		assert.Len(t, res.LinksByCategory[model.CategoryTourWithID], 3)
		assert.Equal(t, 1, res.SectionCategoryMatrix["cruises"][model.CategoryCruiseShip])
		assert.Len(t, res.LinksBySection["tours"]["Top Tours"], 2)
		assert.Len(t, res.LinksBySection["unknown"]["Untitled"], 4)
	})

	assert.Equal(t, 1, transport.hitsFor("www.example.com/peru/tours"), "tours listing fetched once")
}

func TestEngineAudit_BoundsLinkConcurrency(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<div class="main-content">`)
	for i := range 17 {
		fmt.Fprintf(&b, `<a href="https://partner%d.org/">Partner %d</a>`, i, i)
	}
	b.WriteString(`</div>`)

	fetcher := &fakeFetcher{pages: map[string]fakePage{seedURL: {body: b.String()}}}
	transport := newHandlerTransport(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	transport.delay = 15 * time.Millisecond
	engine := newTestEngine(fetcher, transport, 5)

	res, err := engine.Audit(context.Background(), seedURL)
	require.NoError(t, err)

	assert.Equal(t, 17, res.Stats.Totals.Valid)
	assert.Equal(t, 17, res.Stats.Totals.Available)
	assert.LessOrEqual(t, transport.peak.Load(), int64(5))
	assert.LessOrEqual(t, engine.linkGate.Stats().HighWater, 5)
	assert.Equal(t, 34, engine.linkGate.Stats().Completed)
}

func TestEngineAudit_LinkFailuresAreIsolated(t *testing.T) {
	page := `<div class="main-content">
		<a href="https://ok.org/">ok</a>
		<a href="https://down.org/">down</a>
	</div>`
	fetcher := &fakeFetcher{pages: map[string]fakePage{seedURL: {body: page}}}
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Host == "down.org" {
			return nil, errors.New("connection refused")
		}
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusOK)
		resp := rec.Result()
		resp.Request = req
		return resp, nil
	})
	engine := newTestEngine(fetcher, transport, 2)

	res, err := engine.Audit(context.Background(), seedURL)
	require.NoError(t, err)

	ok := linkByHref(t, res.DetailedResults, "https://ok.org/")
	down := linkByHref(t, res.DetailedResults, "https://down.org/")
	assert.True(t, ok.IsValid())
	assert.False(t, down.IsValid())
	require.NotNil(t, down.Validation.Error)
	assert.Contains(t, *down.Validation.Error, "connection refused")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestEngine_SeedErrors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		page       fakePage
		wantKind   errs.Kind
		wantStatus int
	}{
		{name: "bad url", url: "not a url", wantKind: errs.InvalidInput},
		{name: "bad scheme", url: "ftp://example.com/peru", wantKind: errs.InvalidInput},
		{name: "timeout", url: seedURL, page: fakePage{err: context.DeadlineExceeded}, wantKind: errs.Timeout},
		{name: "unreachable", url: seedURL, page: fakePage{err: errors.New("dial tcp: refused")}, wantKind: errs.Unreachable},
		{name: "not found", url: seedURL, page: fakePage{status: 404}, wantKind: errs.NotFound, wantStatus: 404},
		{name: "server error", url: seedURL, page: fakePage{status: 503}, wantKind: errs.Unreachable, wantStatus: 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{pages: map[string]fakePage{tt.url: tt.page}}
			engine := newTestEngine(fetcher, newHandlerTransport(http.NotFoundHandler()), 5)

			_, err := engine.Audit(context.Background(), tt.url)
			require.Error(t, err)

			var appErr *errs.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.wantStatus, appErr.UpstreamStatus)
		})
	}
}

func TestNewEngine_PanicsOnInvalidProfile(t *testing.T) {
	profile := DefaultSiteProfile()
	profile.IntroRegion = "div[["
	assert.Panics(t, func() {
		NewEngine(&fakeFetcher{}, newTestProber(ProberOptions{}), NewGate(1), NewGate(1), EngineConfig{Profile: profile})
	})
}

func TestEngine_DomainFallsBackToSeedHost(t *testing.T) {
	page := `<div class="main-content"><a href="/lima">Lima</a></div>`
	fetcher := &fakeFetcher{pages: map[string]fakePage{"https://travel.test/peru": {body: page}}}
	engine := NewEngine(fetcher, newTestProber(ProberOptions{}), NewGate(1), NewGate(1), EngineConfig{Profile: DefaultSiteProfile()})

	res, err := engine.Extract(context.Background(), "https://travel.test/peru")
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, model.DestinationCategory(1), res.Links[0].Category)
}
