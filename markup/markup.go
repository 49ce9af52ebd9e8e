package markup

import (
	"strings"

	css "github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// The parser always adds html, head and body elements, so only elements the
// author wrote inside the body count as markup.
var authoredElement = css.MustCompile("body *, head > *")

// IsHTML reports whether text contains HTML markup: a doctype or at least
// one element. Text with stray angle brackets, like "a < b", isn't HTML.
func IsHTML(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return false
	}

	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			return true
		}
	}

	return authoredElement.MatchFirst(doc) != nil
}
