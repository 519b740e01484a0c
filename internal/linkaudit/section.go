package linkaudit

import (
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ancestors yields the element ancestors of n, nearest first, stopping after
// maxDepth elements.
func ancestors(n *html.Node, maxDepth int) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		depth := 0
		for p := n.Parent; p != nil && depth < maxDepth; p = p.Parent {
			if p.Type != html.ElementNode {
				continue
			}
			depth++
			if !yield(p) {
				return
			}
		}
	}
}

// detectSection returns the content section an anchor belongs to and the
// section's heading, if any.
func (cp *compiledProfile) detectSection(a *goquery.Selection) (string, *string) {
	if a.ClosestMatcher(cp.intro).Length() > 0 {
		title := IntroSectionTitle
		return sectionIntro, &title
	}

	node := a.Get(0)
	for el := range ancestors(node, cp.MaxAncestorDepth) {
		if label, ok := cp.sectionLabel(el); ok {
			return label, cp.sectionTitle(el)
		}
	}

	for _, ks := range cp.known {
		if match := a.ClosestMatcher(ks.sel); match.Length() > 0 {
			return ks.label, cp.sectionTitle(match.Get(0))
		}
	}

	return sectionUnknown, nil
}

// sectionLabel returns the first namespaced section class on n with the
// namespace prefix removed.
func (cp *compiledProfile) sectionLabel(n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for token := range strings.FieldsSeq(attr.Val) {
			if cp.excludedText[token] || !strings.HasPrefix(token, cp.SectionPrefix) {
				continue
			}
			if label := strings.TrimPrefix(token, cp.SectionPrefix); label != "" {
				return label, true
			}
		}
	}
	return "", false
}

func (cp *compiledProfile) sectionTitle(section *html.Node) *string {
	box := cascadia.Query(section, cp.titleBox)
	if box == nil {
		return nil
	}

	heading := cascadia.Query(box, cp.h2)
	if heading == nil {
		heading = cascadia.Query(box, cp.h3)
	}
	if heading == nil {
		return nil
	}

	title := collapseWhitespace(goquery.NewDocumentFromNode(heading).Text())
	if title == "" {
		return nil
	}
	return &title
}
