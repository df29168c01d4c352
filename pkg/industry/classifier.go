// Package industry classifies ad copy into the benchmark industry taxonomy.
package industry

import (
	"context"
	"fmt"

	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/benchmark"
)

const (
	// DefaultThreshold is the confidence below which a result needs manual review.
	DefaultThreshold = 0.30
	// FallbackIndustry is the stable label assigned when no prediction is available.
	FallbackIndustry = "Software Development"

	NoteNoClassifier        = "Manual review needed - No classifier"
	NoteClassificationError = "Manual review needed - Classification error"
)

// Result is the classification of a single ad.
type Result struct {
	Industry   string  `json:"industry"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note,omitempty"`
}

// TextNormalizer is satisfied by *textnorm.Normalizer.
type TextNormalizer interface {
	Normalize(ctx context.Context, text, advertiser string) string
}

// Classifier maps ad texts to industries through a zero-shot capability.
type Classifier struct {
	model      ZeroShot
	normalizer TextNormalizer
	labels     []string
	threshold  float64
	log        utils.Logger
}

// Options configures a Classifier. A nil Model means the capability failed to
// initialize and every result falls back.
type Options struct {
	Model      ZeroShot
	Normalizer TextNormalizer
	Threshold  float64
	Log        utils.Logger
}

// New creates a Classifier over the benchmark label set.
func New(opts Options) *Classifier {
	th := opts.Threshold
	if th <= 0 {
		th = DefaultThreshold
	}
	return &Classifier{
		model:      opts.Model,
		normalizer: opts.Normalizer,
		labels:     benchmark.Labels(),
		threshold:  th,
		log:        utils.OrNop(opts.Log),
	}
}

// Available reports whether a zero-shot model is wired in.
func (c *Classifier) Available() bool {
	return c.model != nil
}

// Threshold returns the low-confidence cut-off.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify returns one Result per text, in input order. Failures never
// propagate: an unavailable model or a failing batch yields fallback results.
func (c *Classifier) Classify(ctx context.Context, texts, advertisers []string) []Result {
	if len(texts) == 0 {
		return []Result{}
	}

	normalized := make([]string, len(texts))
	for i, text := range texts {
		var adv string
		if i < len(advertisers) {
			adv = advertisers[i]
		}
		if c.normalizer != nil {
			normalized[i] = c.normalizer.Normalize(ctx, text, adv)
		} else {
			normalized[i] = text
		}
	}

	if c.model == nil {
		return Fallback(len(texts), NoteNoClassifier)
	}

	preds, err := c.model.Predict(ctx, normalized, c.labels)
	if err != nil {
		c.log.Warnf("Error classifying %d ad texts: %v", len(texts), err)
		return Fallback(len(texts), NoteClassificationError)
	}
	if len(preds) != len(texts) {
		c.log.Warnf("Classifier returned %d results for %d ad texts, using default industry", len(preds), len(texts))
		return Fallback(len(texts), NoteClassificationError)
	}

	out := make([]Result, len(preds))
	for i, p := range preds {
		out[i] = c.fromPrediction(p)
	}
	return out
}

func (c *Classifier) fromPrediction(p Prediction) Result {
	if len(p.Labels) == 0 || len(p.Scores) == 0 {
		return Result{Industry: benchmark.Unclassified, Note: NoteClassificationError}
	}
	label, score := p.Labels[0], clamp01(p.Scores[0])
	if !benchmark.IsLabel(label) {
		return Result{
			Industry:   benchmark.Unclassified,
			Confidence: score,
			Note:       fmt.Sprintf("Unknown label %q - Manual review needed", label),
		}
	}
	r := Result{Industry: label, Confidence: score}
	if score < c.threshold {
		r.Note = LowConfidenceNote(score)
	}
	return r
}

// LowConfidenceNote formats the review note for a score under the threshold.
func LowConfidenceNote(score float64) string {
	return fmt.Sprintf("Low confidence (%.2f) - Manual review needed", score)
}

// Fallback is the single degraded outcome shared by the unavailable and the
// failed paths.
func Fallback(n int, note string) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{Industry: FallbackIndustry, Confidence: 0, Note: note}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
