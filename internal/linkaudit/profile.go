package linkaudit

import (
	"github.com/andybalholm/cascadia"
)

// IntroSectionTitle labels links found inside the intro container.
const IntroSectionTitle = "Introduction Section"

const (
	sectionIntro   = "intro"
	sectionUnknown = "unknown"
)

// SectionSelector maps a known section container class to its label.
type SectionSelector struct {
	Selector string
	Label    string
}

// SiteProfile carries the markup conventions of the audited site. Every
// selector the extractor and checkers rely on lives here.
type SiteProfile struct {
	IntroRegion string
	MainRegion  string

	SectionPrefix        string
	SectionExcludedClass []string
	SectionTitle         string
	KnownSections        []SectionSelector
	MaxAncestorDepth     int

	AnchorTitleSelectors []string

	CruisePriceSelector string
	TourPriceSelectors  []string
	TourTitleSelector   string
	DepartureSelector   string
	DurationSelector    string

	IndexListSelector  string
	ExperienceSelector string
	ActivitySelector   string
	ShipOptionSelector string
}

// DefaultSiteProfile returns the conventions of the travel site the audit
// was built for.
func DefaultSiteProfile() SiteProfile {
	return SiteProfile{
		IntroRegion: ".intro-section",
		MainRegion:  ".main-content",

		SectionPrefix:        "section-",
		SectionExcludedClass: []string{"section-title", "section-content", "section-base"},
		SectionTitle:         ".section-title",
		KnownSections: []SectionSelector{
			{Selector: ".tours-section", Label: "tours"},
			{Selector: ".cruises-section", Label: "cruises"},
			{Selector: ".articles-section", Label: "articles"},
			{Selector: ".stories-section", Label: "stories"},
			{Selector: ".deals-section", Label: "deals"},
			{Selector: ".hotels-section", Label: "hotels"},
		},
		MaxAncestorDepth: 15,

		AnchorTitleSelectors: []string{".card-title", ".title", ".name", "h3", "h4"},

		CruisePriceSelector: ".price-amount",
		TourPriceSelectors: []string{
			".tour-price .price-amount",
			".price-box .price-amount",
			".price-amount",
			".price",
		},
		TourTitleSelector: "h1",
		DepartureSelector: ".departure-info",
		DurationSelector:  ".tour-duration",

		IndexListSelector:  ".index-list",
		ExperienceSelector: ".index-list .experience-options option",
		ActivitySelector:   ".index-list .activity-options option",
		ShipOptionSelector: ".ship-filter option",
	}
}

// compiledProfile holds the selectors the section detector matches against
// individual nodes during ancestor walks.
type compiledProfile struct {
	SiteProfile
	intro        cascadia.Selector
	titleBox     cascadia.Selector
	h2           cascadia.Selector
	h3           cascadia.Selector
	known        []compiledSection
	excludedText map[string]bool
}

type compiledSection struct {
	sel   cascadia.Selector
	label string
}

func compileProfile(p SiteProfile) (*compiledProfile, error) {
	cp := &compiledProfile{
		SiteProfile:  p,
		h2:           cascadia.MustCompile("h2"),
		h3:           cascadia.MustCompile("h3"),
		excludedText: make(map[string]bool, len(p.SectionExcludedClass)),
	}

	var err error
	if cp.intro, err = cascadia.Compile(p.IntroRegion); err != nil {
		return nil, err
	}
	if cp.titleBox, err = cascadia.Compile(p.SectionTitle); err != nil {
		return nil, err
	}
	for _, ks := range p.KnownSections {
		sel, err := cascadia.Compile(ks.Selector)
		if err != nil {
			return nil, err
		}
		cp.known = append(cp.known, compiledSection{sel: sel, label: ks.Label})
	}
	for _, c := range p.SectionExcludedClass {
		cp.excludedText[c] = true
	}
	return cp, nil
}
