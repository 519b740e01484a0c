package linkaudit

import (
	"regexp"
	"strings"
)

// shipWordMatchThreshold is the share of significant ship-name words that
// must fuzzy-match an option word for the names to be considered equal.
const shipWordMatchThreshold = 0.6

var (
	activityReplacer = strings.NewReplacer("&", "", "+", "", "-", " ")

	shipSeparators  = strings.NewReplacer("-", " ", "_", " ")
	marinePrefix    = regexp.MustCompile(`^(?:m/[a-z]|m\.[a-z]\.?|mv|ms|mc|mts|ss)\s+`)
	shipPunctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// normalizeActivity lowercases s, drops "&" and "+", turns hyphens into
// spaces and collapses whitespace.
func normalizeActivity(s string) string {
	return collapseWhitespace(activityReplacer.Replace(strings.ToLower(s)))
}

// activityMatches reports whether the normalized slug equals, contains or
// is contained by any normalized option.
func activityMatches(slug string, options []string) bool {
	target := normalizeActivity(slug)
	if target == "" {
		return false
	}
	for _, opt := range options {
		o := normalizeActivity(opt)
		if o == "" {
			continue
		}
		if target == o || strings.Contains(target, o) || strings.Contains(o, target) {
			return true
		}
	}
	return false
}

// normalizeShipName lowercases a ship name, strips marine prefixes such as
// "M/S" or "MV", removes punctuation and collapses whitespace.
func normalizeShipName(s string) string {
	s = collapseWhitespace(shipSeparators.Replace(strings.ToLower(s)))
	s = marinePrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "/", " ")
	s = shipPunctuation.ReplaceAllString(s, "")
	return collapseWhitespace(s)
}

// shipNamesMatch reports whether the ship name taken from a URL refers to
// the given option label.
func shipNamesMatch(urlName, option string) bool {
	a, b := normalizeShipName(urlName), normalizeShipName(option)
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	var significant []string
	for w := range strings.FieldsSeq(a) {
		if len(w) > 2 {
			significant = append(significant, w)
		}
	}
	if len(significant) == 0 {
		return false
	}

	optionWords := strings.Fields(b)
	matched := 0
	for _, w := range significant {
		for _, ow := range optionWords {
			if wordsSimilar(w, ow) {
				matched++
				break
			}
		}
	}
	return float64(matched)/float64(len(significant)) >= shipWordMatchThreshold
}

func wordsSimilar(a, b string) bool {
	if a == b {
		return true
	}
	if len(b) > 2 && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return true
	}
	return min(len(a), len(b)) >= 4 && editDistance(a, b) <= 1
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
