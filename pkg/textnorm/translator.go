package textnorm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const (
	defaultTranslateEndpoint = "https://translate.googleapis.com/translate_a/single"
	defaultTranslateTimeout  = 15 * time.Second
	userAgent                = "Mozilla/5.0 (X11; Linux x86_64; rv:83.0) Gecko/20100101 Firefox/83.0"
)

// TranslatorConfig controls the HTTP translator.
type TranslatorConfig struct {
	Endpoint   string
	Target     string
	RetryMax   int
	HTTPClient *http.Client
}

// HTTPTranslator talks to the public Google translate web endpoint.
type HTTPTranslator struct {
	endpoint string
	target   string
	client   *http.Client
}

// NewHTTPTranslator builds an HTTPTranslator with retrying transport.
func NewHTTPTranslator(cfg TranslatorConfig) *HTTPTranslator {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultTranslateEndpoint
	}
	target := strings.TrimSpace(cfg.Target)
	if target == "" {
		target = "en"
	}

	client := cfg.HTTPClient
	if client == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.Logger = log.New(io.Discard, "", 0)
		retryClient.RetryMax = 3
		if cfg.RetryMax > 0 {
			retryClient.RetryMax = cfg.RetryMax
		}
		retryClient.HTTPClient.Timeout = defaultTranslateTimeout
		client = retryClient.StandardClient()
	}

	return &HTTPTranslator{endpoint: endpoint, target: target, client: client}
}

// Translate sends text with source language auto-detection.
func (t *HTTPTranslator) Translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", t.target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation failed with HTTP %d", resp.StatusCode)
	}
	return parseTranslation(body)
}

// parseTranslation joins the translated segments of a
// [[["translated","original",...],...],...] response.
func parseTranslation(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("translation response is not valid JSON")
	}
	segments := gjson.GetBytes(body, "0.#.0").Array()
	if len(segments) == 0 {
		return "", errors.New("translation response has no segments")
	}
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.String())
	}
	return sb.String(), nil
}
