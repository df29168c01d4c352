package industry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sw33tLie/adscope/pkg/benchmark"
)

type stubModel struct {
	preds []Prediction
	err   error
	seen  []string
}

func (s *stubModel) Predict(_ context.Context, texts, _ []string) ([]Prediction, error) {
	s.seen = append(s.seen, texts...)
	return s.preds, s.err
}

type upperNormalizer struct{}

func (upperNormalizer) Normalize(_ context.Context, text, advertiser string) string {
	return strings.ToUpper(text) + " by " + advertiser
}

func TestClassifyEmpty(t *testing.T) {
	c := New(Options{Model: &stubModel{}})
	got := c.Classify(context.Background(), nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestClassifyUnavailable(t *testing.T) {
	c := New(Options{})
	got := c.Classify(context.Background(), []string{"a", "b"}, []string{"x", "y"})
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	for _, r := range got {
		if r.Industry != FallbackIndustry || r.Confidence != 0 || r.Note != NoteNoClassifier {
			t.Fatalf("unexpected fallback %+v", r)
		}
	}
}

func TestClassifyError(t *testing.T) {
	c := New(Options{Model: &stubModel{err: errors.New("boom")}})
	got := c.Classify(context.Background(), []string{"a"}, nil)
	if got[0].Industry != FallbackIndustry || got[0].Note != NoteClassificationError {
		t.Fatalf("unexpected result %+v", got[0])
	}

	// A short answer is treated like a failure.
	c = New(Options{Model: &stubModel{preds: []Prediction{{Labels: []string{"Apparel"}, Scores: []float64{0.9}}}}})
	got = c.Classify(context.Background(), []string{"a", "b"}, nil)
	if len(got) != 2 || got[1].Note != NoteClassificationError {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestClassifyThresholdAndNormalization(t *testing.T) {
	model := &stubModel{preds: []Prediction{
		{Labels: []string{"Apparel", "Healthcare"}, Scores: []float64{0.82, 0.1}},
		{Labels: []string{"Real Estate"}, Scores: []float64{0.25}},
		{Labels: []string{"Pet Food"}, Scores: []float64{0.9}},
	}}
	c := New(Options{Model: model, Normalizer: upperNormalizer{}})

	got := c.Classify(context.Background(), []string{"shirts", "villas", "kibble"}, []string{"A", "B", "C"})

	if model.seen[0] != "SHIRTS by A" {
		t.Fatalf("model did not receive normalized text: %q", model.seen[0])
	}
	if got[0].Industry != "Apparel" || got[0].Confidence != 0.82 || got[0].Note != "" {
		t.Fatalf("unexpected confident result %+v", got[0])
	}
	if got[1].Industry != "Real Estate" || got[1].Note != "Low confidence (0.25) - Manual review needed" {
		t.Fatalf("unexpected low confidence result %+v", got[1])
	}
	if got[2].Industry != benchmark.Unclassified {
		t.Fatalf("label outside the taxonomy must be unclassified, got %+v", got[2])
	}
}

func TestNewZeroShot(t *testing.T) {
	if _, err := NewZeroShot(Config{Provider: "huggingface"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewZeroShot(Config{Provider: "gpt"}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	if _, err := NewZeroShot(Config{Provider: "none"}); !errors.Is(err, ErrProviderDisabled) {
		t.Fatalf("expected ErrProviderDisabled, got %v", err)
	}
	m, err := NewZeroShot(Config{Provider: " Keyword "})
	if err != nil || m == nil {
		t.Fatalf("keyword provider: %v", err)
	}
}

func TestHuggingFaceBatching(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "candidate_labels") {
			http.Error(w, `{"error":"missing labels"}`, http.StatusBadRequest)
			return
		}
		if strings.Contains(string(body), "third") {
			// Single-input responses come back as a bare object.
			w.Write([]byte(`{"sequence":"third","labels":["Education","Apparel"],"scores":[0.7,0.3]}`))
			return
		}
		w.Write([]byte(`[{"labels":["Apparel","Education"],"scores":[0.6,0.4]},{"labels":["Healthcare","Apparel"],"scores":[0.5,0.5]}]`))
	}))
	defer srv.Close()

	m, err := NewZeroShot(Config{APIKey: "secret", Endpoint: srv.URL, MaxBatch: 2, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preds, err := m.Predict(context.Background(), []string{"first", "second", "third"}, []string{"Apparel", "Education", "Healthcare"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 requests, got %d", calls)
	}
	if len(preds) != 3 || preds[0].Labels[0] != "Apparel" || preds[1].Labels[0] != "Healthcare" || preds[2].Labels[0] != "Education" {
		t.Fatalf("unexpected predictions %+v", preds)
	}
}

func TestHuggingFaceErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	m, _ := NewZeroShot(Config{APIKey: "k", Endpoint: srv.URL, HTTPClient: srv.Client()})
	_, err := m.Predict(context.Background(), []string{"x"}, []string{"Apparel"})
	if err == nil || !strings.Contains(err.Error(), "currently loading") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestParsePredictionsRejectsMismatch(t *testing.T) {
	if _, err := parsePredictions([]byte(`{"labels":["a","b"],"scores":[1]}`)); err == nil {
		t.Fatal("expected an error for mismatched labels and scores")
	}
	if _, err := parsePredictions([]byte(`"text"`)); err == nil {
		t.Fatal("expected an error for a scalar response")
	}
}

func TestKeywordModel(t *testing.T) {
	m := NewKeywordModel()
	labels := benchmark.Labels()
	preds, err := m.Predict(context.Background(), []string{
		"Company formation and business setup in Dubai. Expert consulting!",
		"zzz qqq",
	}, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0].Labels[0] != "Business Consulting & Services" || preds[0].Scores[0] < 0.5 {
		t.Fatalf("unexpected top label %q (%.2f)", preds[0].Labels[0], preds[0].Scores[0])
	}
	if preds[1].Scores[0] >= DefaultThreshold {
		t.Fatalf("no-hit text must stay under the threshold, got %.2f", preds[1].Scores[0])
	}
	if preds[1].Labels[0] != labels[0] {
		t.Fatalf("ties must keep label order, got %q", preds[1].Labels[0])
	}
}

func TestKeywordModelConcurrentUse(t *testing.T) {
	m := NewKeywordModel()
	labels := benchmark.Labels()
	texts := []string{"Hosting and SSL for your WordPress website", "Hire developer on Upwork", "ÉCOLE de Python"}
	want, err := m.Predict(context.Background(), texts, labels)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Predict(context.Background(), texts, labels)
			if err != nil {
				errs <- err.Error()
				return
			}
			for j := range got {
				if got[j].Labels[0] != want[j].Labels[0] || got[j].Scores[0] != want[j].Scores[0] {
					errs <- "prediction differs under concurrent use"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}
