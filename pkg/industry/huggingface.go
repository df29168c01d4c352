package industry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type huggingFace struct {
	apiKey   string
	endpoint string
	maxBatch int
	client   httpClient
}

type hfRequest struct {
	Inputs     []string     `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

func newHuggingFace(cfg Config) (*huggingFace, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "https://api-inference.huggingface.co/models/" + model
	}

	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}

	var client httpClient = cfg.HTTPClient
	if cfg.HTTPClient == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.Logger = log.New(io.Discard, "", 0)
		retryClient.RetryMax = 3
		retryClient.HTTPClient.Timeout = 60 * time.Second
		client = retryClient.StandardClient()
	}

	return &huggingFace{
		apiKey:   apiKey,
		endpoint: endpoint,
		maxBatch: maxBatch,
		client:   client,
	}, nil
}

// Predict classifies texts in chunks of maxBatch. Any failing chunk fails the whole call.
func (h *huggingFace) Predict(ctx context.Context, texts, labels []string) ([]Prediction, error) {
	out := make([]Prediction, 0, len(texts))
	for start := 0; start < len(texts); start += h.maxBatch {
		end := start + h.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		preds, err := h.predictChunk(ctx, texts[start:end], labels)
		if err != nil {
			return nil, fmt.Errorf("chunk %d-%d: %w", start, end-1, err)
		}
		if len(preds) != end-start {
			return nil, fmt.Errorf("chunk %d-%d: expected %d results, got %d", start, end-1, end-start, len(preds))
		}
		out = append(out, preds...)
	}
	return out, nil
}

func (h *huggingFace) predictChunk(ctx context.Context, texts, labels []string) ([]Prediction, error) {
	bodyBytes, err := json.Marshal(hfRequest{
		Inputs:     texts,
		Parameters: hfParameters{CandidateLabels: labels, MultiLabel: false},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(body, "error").String(); msg != "" {
			return nil, fmt.Errorf("zero-shot classification: %s", msg)
		}
		return nil, fmt.Errorf("zero-shot classification failed with HTTP %d", resp.StatusCode)
	}

	return parsePredictions(body)
}

// parsePredictions accepts either a single {"labels","scores"} object or an array of them.
func parsePredictions(body []byte) ([]Prediction, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("unable to parse zero-shot response")
	}
	root := gjson.ParseBytes(body)

	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		if msg := root.Get("error").String(); msg != "" {
			return nil, fmt.Errorf("zero-shot classification: %s", msg)
		}
		items = []gjson.Result{root}
	default:
		return nil, errors.New("zero-shot response is neither an object nor an array")
	}

	out := make([]Prediction, 0, len(items))
	for i, item := range items {
		labels := item.Get("labels").Array()
		scores := item.Get("scores").Array()
		if len(labels) == 0 || len(labels) != len(scores) {
			return nil, fmt.Errorf("zero-shot result %d has %d labels and %d scores", i, len(labels), len(scores))
		}
		p := Prediction{
			Labels: make([]string, len(labels)),
			Scores: make([]float64, len(scores)),
		}
		for j := range labels {
			p.Labels[j] = labels[j].String()
			p.Scores[j] = scores[j].Float()
		}
		out = append(out, p)
	}
	return out, nil
}
