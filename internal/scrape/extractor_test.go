package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract_UnsupportedSource(t *testing.T) {
	e := New()
	for _, raw := range []string{"ftp://example.com/file", "file:///etc/passwd", "example.com/essay", "", "mailto:a@b.c"} {
		_, err := e.Extract(context.Background(), raw)
		if !errors.Is(err, ErrUnsupportedSource) {
			t.Errorf("Extract(%q) err = %v, want ErrUnsupportedSource", raw, err)
		}
	}
}

func TestExtract_PrefersArticleAndStripsNoise(t *testing.T) {
	article := strings.Repeat("Startups are hard but worth it. ", 30)
	page := `<html><head><title>Essay</title><style>.x{color:red}</style></head><body>
<header>Site Header</header>
<nav>Home About Archive</nav>
<div class="sidebar">Sidebar teaser</div>
<article><h1>How to Start</h1><p>` + article + `</p><script>var tracking = 1;</script></article>
<aside>Related posts</aside>
<footer>Copyright</footer>
</body></html>`
	srv := serveHTML(t, page)

	got, err := New().Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.HasPrefix(got, "How to Start Startups are hard") {
		t.Errorf("Extract() starts with %q", got[:40])
	}
	for _, noise := range []string{"Site Header", "Home About", "Sidebar teaser", "Related posts", "Copyright", "tracking", "color:red"} {
		if strings.Contains(got, noise) {
			t.Errorf("Extract() contains %q", noise)
		}
	}
	if strings.Contains(got, "  ") {
		t.Error("Extract() did not collapse whitespace")
	}
}

func TestExtract_ShortCandidateFallsBackToBody(t *testing.T) {
	page := `<html><body><main>Too short.</main><div><p>Body paragraph one.</p><p>Body paragraph two.</p></div></body></html>`
	srv := serveHTML(t, page)

	got, err := New().Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Too short. Body paragraph one. Body paragraph two."
	if got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtract_SkipsShortCandidateForLaterOne(t *testing.T) {
	long := strings.Repeat("word ", 150)
	page := `<html><body><article>tiny</article><div class="entry-content">` + long + `</div><p>outside</p></body></html>`
	srv := serveHTML(t, page)

	got, err := New().Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(got, "tiny") || strings.Contains(got, "outside") {
		t.Errorf("Extract() should return only the .entry-content region, got %q...", got[:30])
	}
}

func TestExtract_Truncates(t *testing.T) {
	page := "<html><body><article>" + strings.Repeat("é long text ", 3000) + "</article></body></html>"
	srv := serveHTML(t, page)

	got, err := New().Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n := utf8.RuneCountInString(got); n != MaxTextLength {
		t.Errorf("len = %d runes, want %d", n, MaxTextLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a multi-byte rune")
	}
}

func TestExtract_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New().Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrScrapeFailed) {
		t.Errorf("err = %v, want ErrScrapeFailed", err)
	}
}

func TestExtract_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New().Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrScrapeFailed) {
		t.Errorf("err = %v, want ErrScrapeFailed", err)
	}
}

func TestExtract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(WithTimeout(50*time.Millisecond)).Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetchTimeout) {
		t.Errorf("err = %v, want ErrFetchTimeout", err)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  a\n\n\tb   c  "); got != "a b c" {
		t.Errorf("Normalize() = %q, want %q", got, "a b c")
	}
}
