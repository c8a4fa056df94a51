package verifier

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
)

// ExtractTitle returns a display title for the page, trying the document title
// before the opengraph title.
func ExtractTitle(n *html.Node) string {
	if title := SelectText(n, "//head/title"); title != "" {
		return title
	}
	return extractOpengraphTitle(n)
}

func extractOpengraphTitle(n *html.Node) string {
	elem := htmlquery.FindOne(n, "//meta[@property = 'og:title']")
	if elem != nil {
		return compactWhitespace(htmlquery.SelectAttr(elem, "content"))
	}
	return ""
}

func SelectText(n *html.Node, xpath string) string {
	node, err := htmlquery.Query(n, xpath)
	if err != nil {
		return ""
	}
	return digForText(node)
}

func digForText(n *html.Node) string {
	if n == nil {
		return ""
	}
	buf := new(bytes.Buffer)
	dig(n, buf)
	return compactWhitespace(buf.String())
}

func dig(n *html.Node, buf *bytes.Buffer) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return s
}

func parse(s string) (*html.Node, error) {
	return htmlquery.Parse(strings.NewReader(s))
}
