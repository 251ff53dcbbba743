// Package htmlconv turns fetched HTML pages into markdown the model can
// read. Detection is heuristic; pages are reduced to their main content
// before conversion so navigation and boilerplate stay out of the prompt.
package htmlconv

import (
	"bytes"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

var (
	tagPattern      = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
	structuralHints = []string{"<body", "<div", "<table", "<ul>", "<ol>", "<h1", "<h2"}
)

// tagThreshold is how many tags plain text may contain before it counts as
// HTML.
const tagThreshold = 3

// ConvertIfHTML converts input to markdown when it looks like an HTML
// document. The bool reports whether a conversion happened; non-HTML input
// and conversion failures return the input unchanged.
func ConvertIfHTML(input string) (string, bool) {
	if !looksLikeHTML(input) {
		return input, false
	}

	source := reduceToContent(input)
	markdown, err := htmltomarkdown.ConvertString(source)
	if err != nil {
		return input, false
	}

	markdown = strings.TrimSpace(excessNewlines.ReplaceAllString(markdown, "\n\n"))
	return markdown, true
}

// looksLikeHTML reports whether input is probably an HTML document rather
// than prose that happens to mention tags.
func looksLikeHTML(input string) bool {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return true
	}

	tags := len(tagPattern.FindAllString(input, -1))
	if tags >= tagThreshold {
		return true
	}
	if tags >= 2 {
		lowerAll := strings.ToLower(input)
		for _, hint := range structuralHints {
			if strings.Contains(lowerAll, hint) {
				return true
			}
		}
	}
	return false
}

// reduceToContent parses the document, picks the most content-like subtree
// and strips boilerplate elements from it. Parse failures fall back to the
// raw input.
func reduceToContent(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	content := pickContentNode(doc)
	stripBoilerplate(content)

	var buf bytes.Buffer
	if err := html.Render(&buf, content); err != nil {
		return input
	}
	return buf.String()
}

// contentRank orders candidate subtrees: an explicit <main> beats an
// <article>, which beats a container whose class or id names content, which
// beats <body>.
func contentRank(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch strings.ToLower(n.Data) {
	case "main":
		return 4
	case "article":
		return 3
	case "body":
		return 1
	}
	if hasContentMarker(n) {
		return 2
	}
	return 0
}

func pickContentNode(doc *html.Node) *html.Node {
	best := doc
	bestRank := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if rank := contentRank(n); rank > bestRank {
			best, bestRank = n, rank
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return best
}

var contentMarkers = []string{
	"content", "main", "article", "post", "entry", "story", "text",
}

func hasContentMarker(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" {
			continue
		}
		val := strings.ToLower(attr.Val)
		for _, marker := range contentMarkers {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}

var boilerplateTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true,
	"link": true, "head": true, "header": true, "footer": true,
	"nav": true, "aside": true, "iframe": true, "svg": true,
}

// stripBoilerplate removes non-content elements from the subtree, depth
// first so removing a parent never skips its siblings.
func stripBoilerplate(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		stripBoilerplate(child)
		child = next
	}

	if n.Type == html.ElementNode && boilerplateTags[n.Data] && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
