// Package metadata extracts the title, description and favicon of a web page.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/arashthr/shelf/internal/validations"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 2 << 20
)

type Metadata struct {
	Title       string
	Description *string
	Favicon     *string
}

// Outcome tells how much of the page metadata could be read.
type Outcome int

const (
	// Full means the page had its own title and a description.
	Full Outcome = iota
	// Partial means the page was parsed but some fields fell back to defaults.
	Partial
	// Failed means the page could not be fetched or parsed. Metadata then
	// holds the degraded fallback.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Full:
		return "full"
	case Partial:
		return "partial"
	default:
		return "failed"
	}
}

type Result struct {
	Metadata Metadata
	Outcome  Outcome
	// Err is the failure reason when Outcome is Failed.
	Err error
}

type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{Client: client, UserAgent: defaultUserAgent}
}

// Fetch never fails. When the page cannot be read the result carries the
// URL as title and no description or favicon.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	meta, outcome, err := f.fetch(ctx, rawURL)
	if err != nil {
		return Result{Metadata: Degraded(rawURL), Outcome: Failed, Err: err}
	}
	return Result{Metadata: meta, Outcome: outcome}
}

// Degraded is the metadata used when nothing could be read from the page.
func Degraded(rawURL string) Metadata {
	return Metadata{Title: rawURL}
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (Metadata, Outcome, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return Metadata{}, Failed, fmt.Errorf("parse url %q: invalid", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Metadata{}, Failed, fmt.Errorf("create request: %w", err)
	}
	userAgent := f.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Metadata{}, Failed, fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, Failed, fmt.Errorf("get page: status %s", resp.Status)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		// Redirects move the base for relative links.
		pageURL = resp.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Metadata{}, Failed, fmt.Errorf("parse html: %w", err)
	}

	meta, outcome := Extract(doc, pageURL, rawURL)
	return meta, outcome, nil
}

// Extract reads metadata from a parsed document. fallbackTitle is used when
// the page has no title of its own.
func Extract(doc *goquery.Document, pageURL *url.URL, fallbackTitle string) (Metadata, Outcome) {
	outcome := Full

	title := firstNonEmpty(
		doc.Find("title").First().Text(),
		attr(doc, `meta[property="og:title"]`, "content"),
	)
	if title == "" {
		title = fallbackTitle
		outcome = Partial
	}

	description := optional(firstNonEmpty(
		attr(doc, `meta[name="description"]`, "content"),
		attr(doc, `meta[property="og:description"]`, "content"),
	))
	if description == nil {
		outcome = Partial
	}

	favicon := firstNonEmpty(
		attr(doc, `link[rel="icon"]`, "href"),
		attr(doc, `link[rel="shortcut icon"]`, "href"),
	)
	if favicon == "" {
		favicon = "/favicon.ico"
	}

	return Metadata{
		Title:       title,
		Description: description,
		Favicon:     resolve(pageURL, favicon),
	}, outcome
}

func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if clean := validations.CollapseSpaces(v); clean != "" {
			return clean
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func resolve(base *url.URL, href string) *string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil
	}
	return optional(base.ResolveReference(ref).String())
}
