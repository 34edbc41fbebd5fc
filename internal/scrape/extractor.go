// Package scrape fetches web documents and reduces them to bounded plain text.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// MaxTextLength bounds the text returned by Extract, in characters.
	MaxTextLength = 10000
	// MinCandidateLength is the length a content region must exceed to be
	// preferred over the document body.
	MinCandidateLength = 500

	defaultTimeout   = 30 * time.Second
	maxBodyBytes     = 10 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; MentorMirror/1.0; +https://github.com/kalambet/mentormirror)"
)

var (
	ErrUnsupportedSource = errors.New("unsupported source: only http and https URLs can be fetched")
	ErrFetchTimeout      = errors.New("fetch timed out")
	ErrScrapeFailed      = errors.New("scrape failed")
)

// Extractor fetches URLs and extracts their main textual content.
type Extractor struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithTimeout overrides the 30s fetch bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithHTTPClient replaces the HTTP client used for fetching.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.httpClient = c }
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		userAgent:  defaultUserAgent,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, rawURL)
	}
	return u, nil
}

// Extract fetches rawURL and returns its main content as plain text of at
// most MaxTextLength characters.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	body, contentType, err := e.fetch(ctx, u)
	if err != nil {
		return "", err
	}

	var text string
	if isPDF(contentType, u) {
		text, err = pdfText(body)
	} else {
		text, err = htmlText(body)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScrapeFailed, err)
	}
	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, u *url.URL) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: creating request: %w", ErrScrapeFailed, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", e.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: unexpected status %d from %s", ErrScrapeFailed, resp.StatusCode, u.Host)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", e.classify(ctx, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (e *Extractor) classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w after %s: %w", ErrFetchTimeout, e.timeout, err)
	}
	return fmt.Errorf("%w: %w", ErrScrapeFailed, err)
}

func isPDF(contentType string, u *url.URL) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	return contentType == "" && strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func htmlText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	return Normalize(MainText(doc)), nil
}

// Normalize collapses whitespace runs to single spaces and truncates to
// MaxTextLength characters without splitting a multi-byte rune.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxTextLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxTextLength {
			return s[:i]
		}
		n++
	}
	return s
}
