package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Section is a same-site page linked from a document.
type Section struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// skippedExtensions are links to assets rather than readable pages.
var skippedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".css": true, ".js": true, ".zip": true, ".mp3": true, ".mp4": true,
	".xml": true, ".rss": true, ".ico": true, ".webp": true,
}

// Discover fetches rawURL and returns up to limit distinct same-host pages
// it links to, in document order. The page itself is always first.
func (e *Extractor) Discover(ctx context.Context, rawURL string, limit int) ([]Section, error) {
	base, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	body, _, err := e.fetch(ctx, base)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing html: %w", ErrScrapeFailed, err)
	}
	return sectionLinks(doc, base, limit), nil
}

func sectionLinks(doc *html.Node, base *url.URL, limit int) []Section {
	if limit <= 0 {
		limit = 20
	}
	self := canonical(base)
	seen := map[string]bool{self: true}
	out := []Section{{URL: self, Title: Title(doc)}}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if link, ok := resolveLink(base, attr(n, "href")); ok && !seen[link] {
				seen[link] = true
				out = append(out, Section{URL: link, Title: strings.Join(strings.Fields(nodeText(n)), " ")})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if (u.Scheme != "http" && u.Scheme != "https") || !strings.EqualFold(u.Hostname(), base.Hostname()) {
		return "", false
	}
	if skippedExtensions[strings.ToLower(path.Ext(u.Path))] {
		return "", false
	}
	return canonical(u), true
}

func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}

// SafeName turns a title or URL path into a filesystem-friendly name of at
// most 50 characters.
func SafeName(name string) string {
	name = strings.ToLower(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		case r == ' ', r == '/', r == '.':
			sb.WriteByte('-')
		}
	}
	s := strings.Trim(sb.String(), "-")
	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" {
		s = "index"
	}
	return s
}

// DomainName returns the host of rawURL without a leading "www." and with
// dots replaced, for naming output directories.
func DomainName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "site"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return SafeName(host)
}
