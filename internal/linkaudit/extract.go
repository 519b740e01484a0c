package linkaudit

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Bahjat/link-audit/internal/model"
)

const (
	regionIntro = "intro"
	regionMain  = "main"

	imageLinkText = "Image Link"
	noText        = "[No text]"
)

// extractor turns the anchors of the page's content regions into links.
type extractor struct {
	profile *compiledProfile
	logger  *slog.Logger
}

// extractAll runs one extraction pass per content region, intro first.
func (x *extractor) extractAll(doc *goquery.Document, base *url.URL, domain string) []model.Link {
	links := x.extractRegion(doc, regionIntro, x.profile.IntroRegion, base, domain)
	return append(links, x.extractRegion(doc, regionMain, x.profile.MainRegion, base, domain)...)
}

func (x *extractor) extractRegion(doc *goquery.Document, region, selector string, base *url.URL, domain string) []model.Link {
	var links []model.Link

	doc.Find(selector).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := x.resolveHref(a, base)
		if !ok {
			return
		}

		category := Categorize(href, domain)
		section, title := x.profile.detectSection(a)
		strat := strategyFor(category)

		link := model.Link{
			Text:         x.profile.anchorText(a),
			Href:         href,
			Position:     len(links) + 1,
			Region:       region,
			Category:     category,
			Section:      section,
			SectionTitle: title,
			Validated:    strat.validation != nil,
		}
		if strat.checker != nil {
			link.Availability = strat.checker.placeholder()
		}
		links = append(links, link)
	})

	return links
}

// resolveHref returns the absolute form of the anchor's href, skipping
// fragment-only, javascript: and non-http(s) targets.
func (x *extractor) resolveHref(a *goquery.Selection, base *url.URL) (string, bool) {
	raw, _ := a.Attr("href")
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || hasPrefixFold(raw, "javascript:") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		x.logger.Warn("skipping malformed href", "href", raw, "error", err)
		return "", false
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		x.logger.Debug("skipping non-http link", "href", raw)
		return "", false
	}
	return resolved.String(), true
}

// anchorText derives the display label of an anchor: a title-ish child,
// then image alt text, then aria-label, then the anchor's own text.
func (cp *compiledProfile) anchorText(a *goquery.Selection) string {
	var text string
	for _, sel := range cp.AnchorTitleSelectors {
		match := a.Find(sel).First()
		if match.Length() == 0 {
			continue
		}
		inner, _ := match.Html()
		if text = NormalizeHTML(inner); text != "" {
			break
		}
	}

	img := a.Find("img").First()
	if text == "" && img.Length() > 0 {
		alt, _ := img.Attr("alt")
		text = collapseWhitespace(alt)
	}
	if text == "" {
		aria, _ := a.Attr("aria-label")
		text = collapseWhitespace(aria)
	}
	if text == "" {
		node := a.Get(0)
		if text = collapseWhitespace(ownText(node)); text == "" {
			text = collapseWhitespace(visibleText(node))
		}
	}

	text = truncateText(text)
	switch {
	case text != "":
		return text
	case img.Length() > 0:
		return imageLinkText
	default:
		return noText
	}
}

// ownText concatenates the direct text children of n.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// visibleText concatenates all descendant text outside script, style and
// noscript elements.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
				b.WriteByte(' ')
			case html.ElementNode:
				switch c.Data {
				case "script", "style", "noscript":
					continue
				}
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
