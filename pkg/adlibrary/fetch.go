package adlibrary

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.7031.114 Safari/537.36"

// Page is a fetched ad library page.
type Page struct {
	StatusCode int
	Title      string
	Body       string
}

// FetchConfig configures a Fetcher. HTTPClient overrides the retrying client.
type FetchConfig struct {
	HTTPClient *http.Client
	RetryMax   int
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
}

// Fetcher downloads pages and media with retries.
type Fetcher struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

func NewFetcher(cfg FetchConfig) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.Logger = log.New(io.Discard, "", 0)
		retryClient.RetryMax = cfg.RetryMax
		if retryClient.RetryMax <= 0 {
			retryClient.RetryMax = 3
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		retryClient.HTTPClient.Timeout = timeout
		client = retryClient.StandardClient()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Fetcher{client: client, userAgent: ua, headers: cfg.Headers}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// Set common headers
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Cache-Control", "no-transform")
	req.Header.Set("Accept-Language", "en")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	return f.client.Do(req)
}

// FetchPage downloads rawURL. Non-2xx responses are returned as errors.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}

	page := &Page{StatusCode: resp.StatusCode, Body: string(body)}
	if title, ok := htmlTitle(page.Body); ok {
		page.Title = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}
	return page, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, ok := traverse(c); ok {
			return result, ok
		}
	}
	return "", false
}

func htmlTitle(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
