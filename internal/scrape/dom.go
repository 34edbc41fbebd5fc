package scrape

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// noiseElements never carry article content.
var noiseElements = []string{
	"script", "style", "nav", "header", "footer", "aside",
	"noscript", "iframe", "svg", "form",
}

// contentSelectors are tried in order; the first whose text is longer than
// MinCandidateLength wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
	".post",
	".content",
	"#content",
}

// MainText strips noise elements from doc and returns the text of the
// preferred content region, or of the body when no region qualifies.
func MainText(doc *html.Node) string {
	removeElements(doc, noiseElements)

	for _, sel := range contentSelectors {
		for _, n := range findAll(doc, sel) {
			text := nodeText(n)
			if utf8.RuneCountInString(strings.Join(strings.Fields(text), " ")) > MinCandidateLength {
				return text
			}
		}
	}

	if body := findFirst(doc, "body"); body != nil {
		return nodeText(body)
	}
	return nodeText(doc)
}

// Title returns the document <title>, if any.
func Title(doc *html.Node) string {
	if n := findFirst(doc, "title"); n != nil {
		return strings.TrimSpace(nodeText(n))
	}
	return ""
}

func findFirst(n *html.Node, selector string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && matchesSelector(node, selector) {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

func findAll(n *html.Node, selector string) []*html.Node {
	var out []*html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if node.Type == html.ElementNode && matchesSelector(node, selector) {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return out
}

// matchesSelector supports tag, .class, #id and [attr=value] selectors.
func matchesSelector(n *html.Node, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "[") && strings.HasSuffix(selector, "]"):
		key, val, ok := strings.Cut(strings.Trim(selector, "[]"), "=")
		if !ok {
			return false
		}
		return attr(n, key) == strings.Trim(val, `"'`)
	case strings.HasPrefix(selector, "."):
		want := selector[1:]
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == want {
				return true
			}
		}
		return false
	case strings.HasPrefix(selector, "#"):
		return attr(n, "id") == selector[1:]
	default:
		return n.Data == selector
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// blockElements get a separating space so adjacent blocks do not fuse words.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "section": true,
	"article": true, "blockquote": true, "pre": true, "tr": true, "td": true,
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			sb.WriteString(node.Data)
		case html.ElementNode:
			if blockElements[node.Data] {
				sb.WriteByte(' ')
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && blockElements[node.Data] {
			sb.WriteByte(' ')
		}
	}
	walk(n)
	return sb.String()
}
