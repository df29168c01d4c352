// Package pipeline runs one estimation batch: deduplicate, classify, estimate,
// write and optionally persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sw33tLie/adscope/internal/metrics"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/dedup"
	"github.com/sw33tLie/adscope/pkg/estimate"
	"github.com/sw33tLie/adscope/pkg/industry"
	"github.com/sw33tLie/adscope/pkg/report"
	"github.com/sw33tLie/adscope/pkg/storage"
	"github.com/sw33tLie/adscope/pkg/textnorm"
)

const (
	DefaultOutputPath        = "ad_metrics_estimates.csv"
	DefaultLowConfidencePath = "low_confidence_ads.csv"
)

// Options wires a Pipeline. Only Log is optional in practice; a nil Model
// means classification is unavailable and a nil Store disables persistence.
type Options struct {
	Model      industry.ZeroShot
	Normalizer *textnorm.Normalizer
	Threshold  float64

	Impressions       estimate.ImpressionsEstimator
	DefaultActiveDays float64

	// Writer defaults to a report.Writer counting fallbacks in Metrics.
	Writer  *report.Writer
	Store   *storage.DB
	Metrics *metrics.Pipeline
	Log     utils.Logger
}

// Pipeline owns every collaborator of a run. It has no package-level state.
type Pipeline struct {
	normalizer *textnorm.Normalizer
	classifier *industry.Classifier
	estimator  *estimate.Estimator
	writer     *report.Writer
	store      *storage.DB
	metrics    *metrics.Pipeline
	log        utils.Logger
}

func New(opts Options) *Pipeline {
	log := utils.OrNop(opts.Log)
	p := &Pipeline{
		normalizer: opts.Normalizer,
		store:      opts.Store,
		metrics:    opts.Metrics,
		log:        log,
	}

	var normalizer industry.TextNormalizer
	if opts.Normalizer != nil {
		normalizer = opts.Normalizer
	}
	p.classifier = industry.New(industry.Options{
		Model:      opts.Model,
		Normalizer: normalizer,
		Threshold:  opts.Threshold,
		Log:        log,
	})
	p.estimator = estimate.New(estimate.Config{
		Threshold:         p.classifier.Threshold(),
		DefaultActiveDays: opts.DefaultActiveDays,
		Impressions:       opts.Impressions,
		Log:               log,
	})

	p.writer = opts.Writer
	if p.writer == nil {
		wo := report.Options{Log: log}
		if p.metrics != nil {
			wo.OnFallback = func(string) { p.metrics.WriterFallbacks.Inc() }
		}
		p.writer = report.NewWriter(wo)
	}
	return p
}

// RunOptions describes one batch. Empty paths take the defaults.
type RunOptions struct {
	OutputPath        string
	LowConfidencePath string

	// Persisted with the run when a store is configured.
	Keyword string
	Country string
	Source  string
}

// Result is everything a run produced.
type Result struct {
	Records       []estimate.Record
	LowConfidence []estimate.LowConfidence
	Dedup         dedup.Stats
	// Run is set when the batch was saved to the store.
	Run *storage.Run
}

// Run processes a batch of raw ads. Output failures do not stop the run: every
// stage still executes and the errors are joined into the returned error,
// alongside a complete Result.
func (p *Pipeline) Run(ctx context.Context, in []ads.RawAd, opts RunOptions) (*Result, error) {
	started := time.Now()
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.LowConfidencePath == "" {
		opts.LowConfidencePath = DefaultLowConfidencePath
	}

	kept, stats := dedup.Deduplicate(in, dedup.Options{
		OnSkip: func(i int, ad ads.RawAd, reason dedup.SkipReason) {
			p.log.Debugf("Skipping ad %d (%s): %s", i+1, reason, utils.Ellipsize(ad.Text, 50))
			if p.metrics != nil {
				p.metrics.AdsSkipped.WithLabelValues(string(reason)).Inc()
			}
		},
	})
	p.log.Infof("%d ads in, %d kept, %d invalid, %d duplicates", stats.Input, stats.Kept, stats.SkippedInvalid, stats.SkippedDuplicate)

	texts := make([]string, len(kept))
	advertisers := make([]string, len(kept))
	for i, ad := range kept {
		texts[i] = ad.Text
		advertisers[i] = ad.Advertiser
	}
	classes := p.classifier.Classify(ctx, texts, advertisers)
	records, lows := p.estimator.EstimateAll(kept, classes)

	res := &Result{Records: records, LowConfidence: lows, Dedup: stats}
	p.observe(stats, classes, res)

	var errs []error
	if err := p.writer.WriteEstimates(opts.OutputPath, records); err != nil {
		errs = append(errs, fmt.Errorf("writing estimates: %w", err))
	}
	if err := p.writer.WriteLowConfidence(opts.LowConfidencePath, lows); err != nil {
		errs = append(errs, fmt.Errorf("writing low-confidence ads: %w", err))
	}

	if p.store != nil && len(records) > 0 {
		run, err := p.store.SaveRun(ctx, storage.Run{
			StartedAt:  started,
			Keyword:    opts.Keyword,
			Country:    opts.Country,
			Source:     opts.Source,
			InputCount: stats.Input,
		}, records, lows)
		if err != nil {
			errs = append(errs, fmt.Errorf("saving run: %w", err))
		} else {
			res.Run = &run
			p.log.Infof("Saved run %s to the database", run.ID)
		}
	}

	if p.metrics != nil {
		p.metrics.Runs.Inc()
	}
	p.log.Debugf("Run finished in %s", time.Since(started))
	return res, errors.Join(errs...)
}

// Classify exposes the configured classifier, for callers that only need labels.
func (p *Pipeline) Classify(ctx context.Context, texts, advertisers []string) []industry.Result {
	return p.classifier.Classify(ctx, texts, advertisers)
}

// CacheSize reports how many normalized texts are memoized.
func (p *Pipeline) CacheSize() int {
	if p.normalizer == nil {
		return 0
	}
	return p.normalizer.CacheSize()
}

func (p *Pipeline) observe(stats dedup.Stats, classes []industry.Result, res *Result) {
	if p.metrics == nil {
		return
	}
	m := p.metrics
	m.AdsInput.Add(float64(stats.Input))
	m.AdsKept.Add(float64(stats.Kept))
	for _, c := range classes {
		m.Classifications.WithLabelValues(outcome(c, p.classifier.Threshold())).Inc()
	}
	m.Estimates.Add(float64(len(res.Records)))
	m.LowConfidence.Add(float64(len(res.LowConfidence)))
}

func outcome(c industry.Result, threshold float64) string {
	switch {
	case c.Note == industry.NoteNoClassifier || c.Note == industry.NoteClassificationError:
		return metrics.OutcomeFallback
	case c.Confidence < threshold:
		return metrics.OutcomeLowConfidence
	default:
		return metrics.OutcomeClassified
	}
}
