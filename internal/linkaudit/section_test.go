package linkaudit

import (
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(t *testing.T) *compiledProfile {
	t.Helper()
	cp, err := compileProfile(DefaultSiteProfile())
	require.NoError(t, err)
	return cp
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetectSection(t *testing.T) {
	cp := testProfile(t)

	tests := []struct {
		name      string
		html      string
		wantLabel string
		wantTitle string
	}{
		{
			name:      "intro wins over section classes",
			html:      `<div class="section-deals"><div class="intro-section"><a id="t" href="/x">x</a></div></div>`,
			wantLabel: "intro",
			wantTitle: IntroSectionTitle,
		},
		{
			name:      "namespaced class with h2 title",
			html:      `<div class="box section-hotels"><div class="section-title"><h2> Best  Hotels </h2></div><p><a id="t" href="/x">x</a></p></div>`,
			wantLabel: "hotels",
			wantTitle: "Best Hotels",
		},
		{
			name:      "h3 fallback",
			html:      `<div class="section-deals"><div class="section-title"><h3>Deals</h3></div><a id="t" href="/x">x</a></div>`,
			wantLabel: "deals",
			wantTitle: "Deals",
		},
		{
			name:      "excluded variants are skipped",
			html:      `<div class="section-videos"><div class="section-content section-base"><a id="t" href="/x">x</a></div></div>`,
			wantLabel: "videos",
		},
		{
			name:      "nearest namespaced ancestor wins",
			html:      `<div class="section-outer"><div class="section-inner"><a id="t" href="/x">x</a></div></div>`,
			wantLabel: "inner",
		},
		{
			name:      "known section selector",
			html:      `<div class="stories-section"><div class="section-title"><h2>Stories</h2></div><a id="t" href="/x">x</a></div>`,
			wantLabel: "stories",
			wantTitle: "Stories",
		},
		{
			name:      "title box without heading",
			html:      `<div class="section-tours"><div class="section-title"><span>Tours</span></div><a id="t" href="/x">x</a></div>`,
			wantLabel: "tours",
		},
		{
			name:      "unknown",
			html:      `<div class="wrapper"><a id="t" href="/x">x</a></div>`,
			wantLabel: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseDoc(t, tt.html).Find("#t")
			require.Equal(t, 1, a.Length())

			label, title := cp.detectSection(a)
			assert.Equal(t, tt.wantLabel, label)
			if tt.wantTitle == "" {
				assert.Nil(t, title)
				return
			}
			require.NotNil(t, title)
			assert.Equal(t, tt.wantTitle, *title)
		})
	}
}

func TestDetectSection_DepthBound(t *testing.T) {
	profile := DefaultSiteProfile()
	profile.MaxAncestorDepth = 2
	cp, err := compileProfile(profile)
	require.NoError(t, err)

	html := `<div class="section-far"><div><div><a id="t" href="/x">x</a></div></div></div>`
	label, _ := cp.detectSection(parseDoc(t, html).Find("#t"))
	assert.Equal(t, "unknown", label)

	label, _ = testProfile(t).detectSection(parseDoc(t, html).Find("#t"))
	assert.Equal(t, "far", label)
}

func TestAncestors_StopsEarly(t *testing.T) {
	doc := parseDoc(t, `<div><section><p><a id="t">x</a></p></section></div>`)
	var tags []string
	for n := range ancestors(doc.Find("#t").Get(0), 10) {
		tags = append(tags, n.Data)
		if n.Data == "section" {
			break
		}
	}
	assert.Equal(t, []string{"p", "section"}, tags)
}

func TestAnchorText(t *testing.T) {
	cp := testProfile(t)

	tests := []struct {
		name string
		html string
		want string
	}{
		{"title selector", `<a id="t" href="/x"><div class="card-title">Machu &amp; <i>Picchu</i></div>ignored</a>`, "Machu & Picchu"},
		{"quoted title", `<a id="t" href="/x"><span class="card-title">The "Lost" City</span></a>`, `The "Lost" City`},
		{"image alt", `<a id="t" href="/x"><img src="a.jpg" alt=" Sacred  Valley "></a>`, "Sacred Valley"},
		{"aria label", `<a id="t" href="/x" aria-label="Open menu"><span></span></a>`, "Open menu"},
		{"own text", `<a id="t" href="/x">  Lima <span>ignored</span> city </a>`, "Lima city"},
		{"nested text excludes scripts", `<a id="t" href="/x"><span>Cusco</span><script>x()</script><noscript>n</noscript></a>`, "Cusco"},
		{"image without alt", `<a id="t" href="/x"><img src="a.jpg"></a>`, "Image Link"},
		{"empty", `<a id="t" href="/x"></a>`, "[No text]"},
		{"truncated", `<a id="t" href="/x">` + strings.Repeat("A", 130) + `</a>`, strings.Repeat("A", 120) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseDoc(t, tt.html).Find("#t")
			assert.Equal(t, tt.want, cp.anchorText(a))
		})
	}
}

func TestExtractRegion_SkipsAndResolves(t *testing.T) {
	x := &extractor{profile: testProfile(t), logger: slog.New(slog.DiscardHandler)}
	base, _ := url.Parse("https://www.example.com/peru/")

	doc := parseDoc(t, `<div class="main-content">
		<a href="">empty</a>
		<a href="#">hash</a>
		<a href="JavaScript:void(0)">js</a>
		<a href="tel:+100">tel</a>
		<a href="http://[::1">broken</a>
		<a href="cusco">relative</a>
		<a href=" /lima ">spaced</a>
		<a>no href</a>
	</div>`)

	links := x.extractRegion(doc, regionMain, ".main-content", base, "example.com")
	require.Len(t, links, 2)
	assert.Equal(t, "https://www.example.com/peru/cusco", links[0].Href)
	assert.Equal(t, 1, links[0].Position)
	assert.Equal(t, "https://www.example.com/lima", links[1].Href)
	assert.Equal(t, 2, links[1].Position)
}
