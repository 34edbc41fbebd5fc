package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscover(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Blog</title></head><body>
<nav><a href="/essays">Essays</a> <a href="/about#me">About</a></nav>
<a href="%s/essays">Essays again</a>
<a href="https://other.example.org/x">External</a>
<a href="/logo.png">Logo</a>
<a href="#top">Top</a>
<a href="mailto:me@example.com">Mail</a>
<a href="archive/2024">Archive</a>
</body></html>`, srv.URL)
	}))
	defer srv.Close()

	sections, err := New().Discover(context.Background(), srv.URL+"/", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	var urls []string
	for _, s := range sections {
		urls = append(urls, strings.TrimPrefix(s.URL, srv.URL))
	}
	want := []string{"/", "/essays", "/about", "/archive/2024"}
	if len(urls) != len(want) {
		t.Fatalf("Discover() = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("sections[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
	if sections[0].Title != "Blog" {
		t.Errorf("sections[0].Title = %q, want Blog", sections[0].Title)
	}
	if sections[1].Title != "Essays" {
		t.Errorf("sections[1].Title = %q, want Essays", sections[1].Title)
	}
}

func TestDiscoverLimit(t *testing.T) {
	srv := serveHTML(t, `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`)

	sections, err := New().Discover(context.Background(), srv.URL, 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(sections) != 2 {
		t.Errorf("got %d sections, want 2", len(sections))
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"How To Start A Startup":    "how-to-start-a-startup",
		"paulgraham.com":            "paulgraham-com",
		"/essays/2024/":             "essays-2024",
		"!!!":                       "index",
		strings.Repeat("a", 80):     strings.Repeat("a", 50),
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDomainName(t *testing.T) {
	if got := DomainName("https://www.paulgraham.com/articles.html"); got != "paulgraham-com" {
		t.Errorf("DomainName() = %q, want paulgraham-com", got)
	}
}
