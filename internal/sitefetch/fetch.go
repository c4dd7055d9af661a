// Package sitefetch retrieves a short excerpt of the target company's website
// for use as additional prompt context. Fetch failures are non-fatal; the
// pipeline proceeds without the excerpt.
package sitefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ComparableFinder/1.0)"

// DefaultMaxExcerptLen bounds the excerpt appended to the prompt.
const DefaultMaxExcerptLen = 1500

// Error represents an error during site fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures fetch behavior.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	UseBrowser    bool // render JS-heavy pages with a headless browser when plain HTTP yields too little text
	MaxExcerptLen int
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		MaxExcerptLen: DefaultMaxExcerptLen,
	}
}

// Fetcher retrieves and summarizes company websites.
type Fetcher struct {
	opts *Options
}

// New creates a Fetcher. A nil opts uses DefaultOptions.
func New(opts *Options) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxExcerptLen == 0 {
		opts.MaxExcerptLen = DefaultMaxExcerptLen
	}
	return &Fetcher{opts: opts}
}

// Excerpt fetches urlStr and returns a compact text excerpt: page title,
// meta description, and the leading main-body text, truncated to the
// configured length.
func (f *Fetcher) Excerpt(ctx context.Context, urlStr string) (string, error) {
	html, err := f.fetchHTML(ctx, urlStr)
	if err != nil {
		return "", err
	}

	excerpt, err := summarizeHTML(html, f.opts.MaxExcerptLen)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to parse HTML", Cause: err}
	}

	if f.opts.UseBrowser && ShouldUseBrowser(excerpt) {
		rendered, berr := renderWithBrowser(ctx, urlStr, f.opts.Timeout)
		if berr == nil {
			if e, perr := summarizeHTML(rendered, f.opts.MaxExcerptLen); perr == nil && len(e) > len(excerpt) {
				excerpt = e
			}
		}
	}

	return excerpt, nil
}

// fetchHTML retrieves the raw HTML for a URL over plain HTTP.
func (f *Fetcher) fetchHTML(ctx context.Context, urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	client := &http.Client{Timeout: f.opts.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	return string(body), nil
}

// summarizeHTML extracts title, meta description, and leading body text.
func summarizeHTML(html string, maxLen int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var parts []string

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, "Title: "+title)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			parts = append(parts, "Description: "+desc)
		}
	}

	// Strip navigation and boilerplate before pulling body text.
	doc.Find("nav, footer, header, script, style, noscript, .cookie-banner, .popup").Remove()
	body := collapseWhitespace(doc.Find("body").Text())
	if body != "" {
		parts = append(parts, body)
	}

	excerpt := strings.Join(parts, "\n")
	if maxLen > 0 && len(excerpt) > maxLen {
		excerpt = excerpt[:maxLen]
	}
	return strings.TrimSpace(excerpt), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
