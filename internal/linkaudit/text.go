package linkaudit

import (
	"regexp"
	"strings"
)

const (
	maxTextLength = 120
	ellipsis      = "..."
)

var (
	tagPattern = regexp.MustCompile(`</?[A-Za-z][^>]*>|<!--[\s\S]*?-->|<![^>]*>`)

	// The &#34; form is what html.Render emits for a double quote.
	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#34;", `"`,
		"&#39;", "'",
	)
)

// NormalizeHTML strips markup from an inner-HTML fragment, decodes the common
// entities, and collapses whitespace runs into single spaces. Passes repeat
// until the text stops changing, so decoded entities that spell out markup or
// further entities are reduced too and the result is a fixed point.
func NormalizeHTML(fragment string) string {
	text := fragment
	for {
		next := normalizePass(text)
		if next == text {
			return text
		}
		text = next
	}
}

// normalizePass never lengthens its input and shortens it whenever a tag or
// entity is removed, which bounds the loop in NormalizeHTML.
func normalizePass(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	return collapseWhitespace(s)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateText shortens s to maxTextLength runes, cutting at the last word
// boundary when there is one, and appends an ellipsis.
func truncateText(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextLength {
		return s
	}

	cut := string(runes[:maxTextLength])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + ellipsis
}
