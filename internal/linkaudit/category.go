package linkaudit

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Bahjat/link-audit/internal/model"
)

var (
	misspelledContactMarkers = []string{"contactt", "contcat", "conatct"}
	contactKeywords          = []string{"contact", "contact-us", "get-in-touch"}

	specialPageKeywords = map[string]bool{
		"land-tours": true, "ships": true, "videos": true, "myTrips": true, "tours": true,
		"cruises": true, "hotels": true, "deals": true, "info": true, "articles": true, "stories": true,
	}

	// Segments that disqualify a path from being a plain destination page.
	nonDestinationSegments = map[string]bool{
		"articles": true, "stories": true, "deals": true, "tours": true,
		"cruises": true, "operators": true, "forms": true,
	}

	cruiseShipPattern   = regexp.MustCompile(`^/cruises/\d+/`)
	cruiseWithIDPattern = regexp.MustCompile(`/cruises/\d+/`)
)

// Categorize maps an absolute URL to exactly one taxonomy label. Rules are
// evaluated in a fixed order and the first match wins. domain is the site's
// canonical host; a leading "www." on either side is ignored.
func Categorize(rawURL, domain string) model.Category {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.CategoryInvalidURL
	}

	if bareHost(u.Hostname()) != bareHost(domain) {
		return model.CategoryExternal
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	lowerPath := strings.ToLower(path)
	segs := pathSegments(path)

	switch {
	case containsAny(lowerPath, misspelledContactMarkers):
		return model.CategoryWrongContact
	case containsAny(lowerPath, contactKeywords):
		return model.CategoryContact
	case cruiseShipPattern.MatchString(path):
		return model.CategoryCruiseShip
	case cruiseWithIDPattern.MatchString(path):
		return model.CategoryCruiseWithID
	case len(segs) > 0 && specialPageKeywords[segs[len(segs)-1]]:
		return model.CategorySpecialPage
	case hasSegmentWithTail(segs, "articles"):
		return model.CategoryArticle
	case hasSegmentWithTail(segs, "stories"):
		return model.CategoryStory
	case len(segs) > 0 && segs[len(segs)-1] == "stories":
		// Shadowed by the special-page rule for the default keyword set.
		return model.CategoryStories
	case len(segs) >= 2 && segs[0] == "operators" && isNumeric(segs[1]):
		return model.CategoryOperatorWithID
	}

	if tail, ok := segmentAfter(segs, "tours"); ok {
		if isNumeric(tail) {
			return model.CategoryTourWithID
		}
		return model.CategoryTourActivity
	}

	for _, s := range segs {
		if nonDestinationSegments[s] {
			return model.CategoryOther
		}
	}
	return model.DestinationCategory(len(segs))
}

func bareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func pathSegments(path string) []string {
	var segs []string
	for s := range strings.SplitSeq(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasSegmentWithTail(segs []string, name string) bool {
	_, ok := segmentAfter(segs, name)
	return ok
}

// segmentAfter returns the segment that follows the first occurrence of name
// which has something after it.
func segmentAfter(segs []string, name string) (string, bool) {
	for i := 0; i < len(segs)-1; i++ {
		if segs[i] == name {
			return segs[i+1], true
		}
	}
	return "", false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
