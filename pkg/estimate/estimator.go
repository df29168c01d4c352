// Package estimate turns classified ads into spend, reach and ROAS estimates.
package estimate

import (
	"math"

	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/benchmark"
	"github.com/sw33tLie/adscope/pkg/industry"
)

const (
	DefaultActiveDays = 1.0
	// NoteUnknownIndustry is used when the default benchmark applies and the
	// classification carried no note of its own.
	NoteUnknownIndustry = "Manual review needed - Unknown industry"
)

// Record is one output row. Values are rounded to 2 dp, CTR and ConvRate are percentages.
type Record struct {
	Advertiser string  `json:"advertiser"`
	Industry   string  `json:"industry"`
	CPC        float64 `json:"cpc"`
	CTR        float64 `json:"ctr"`
	ConvRate   float64 `json:"conversion_rate"`
	Spend      float64 `json:"estimated_spend_inr"`
	Reach      float64 `json:"estimated_reach"`
	ROAS       float64 `json:"roas"`
	Note       string  `json:"note,omitempty"`
}

// LowConfidence flags an ad that was estimated against the default benchmark.
type LowConfidence struct {
	Advertiser string  `json:"advertiser"`
	AdText     string  `json:"ad_text"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note"`
}

// Config configures an Estimator. Zero values take the package defaults.
type Config struct {
	Threshold         float64
	DefaultActiveDays float64
	Impressions       ImpressionsEstimator
	Log               utils.Logger
}

// Estimator computes Records. It holds no mutable state.
type Estimator struct {
	threshold   float64
	defaultDays float64
	impressions ImpressionsEstimator
	log         utils.Logger
}

func New(cfg Config) *Estimator {
	e := &Estimator{
		threshold:   cfg.Threshold,
		defaultDays: cfg.DefaultActiveDays,
		impressions: cfg.Impressions,
		log:         utils.OrNop(cfg.Log),
	}
	if e.threshold <= 0 {
		e.threshold = industry.DefaultThreshold
	}
	if e.defaultDays <= 0 {
		e.defaultDays = DefaultActiveDays
	}
	if e.impressions == nil {
		e.impressions = RuleBased{}
	}
	return e
}

// Estimate is deterministic for identical inputs. The second result is non-nil
// only when the default benchmark was used.
func (e *Estimator) Estimate(ad ads.RawAd, cls industry.Result) (Record, *LowConfidence) {
	bench, named := benchmark.Lookup(cls.Industry)
	note := cls.Note

	var low *LowConfidence
	if !named || cls.Confidence < e.threshold {
		bench = benchmark.Default
		if note == "" {
			if cls.Confidence < e.threshold {
				note = industry.LowConfidenceNote(cls.Confidence)
			} else {
				note = NoteUnknownIndustry
			}
		}
		low = &LowConfidence{
			Advertiser: ad.Advertiser,
			AdText:     ad.Text,
			Confidence: round2(cls.Confidence),
			Note:       note,
		}
	}

	in := Input{
		Text:       ad.Text,
		Days:       ad.DaysActive,
		Variations: ad.VariationCount(),
	}
	if in.Days <= 0 || math.IsNaN(in.Days) {
		in.Days = e.defaultDays
	}

	imp, err := e.impressions.Impressions(in)
	if err != nil {
		e.log.Debugf("[estimate] impressions for %q: %v", utils.Ellipsize(ad.Text, 50), err)
		imp, _ = RuleBased{}.Impressions(in)
	}

	clicks := imp * bench.CTR
	spend := clicks * bench.CPC
	conversions := clicks * bench.ConvRate
	revenue := conversions * bench.AOV
	var roas float64
	if spend > 0 {
		roas = revenue / spend
	}

	return Record{
		Advertiser: ad.Advertiser,
		Industry:   cls.Industry,
		CPC:        round2(bench.CPC),
		CTR:        round2(bench.CTR * 100),
		ConvRate:   round2(bench.ConvRate * 100),
		Spend:      round2(spend),
		Reach:      round2(imp),
		ROAS:       round2(roas),
		Note:       note,
	}, low
}

// EstimateAll zips ads with their classifications. A length mismatch
// degrades the whole batch to the classifier fallback.
func (e *Estimator) EstimateAll(in []ads.RawAd, results []industry.Result) ([]Record, []LowConfidence) {
	if len(results) != len(in) {
		e.log.Warnf("Mismatch in classifications (%d) and ads (%d). Using default industry.", len(results), len(in))
		results = industry.Fallback(len(in), industry.NoteClassificationError)
	}

	records := make([]Record, 0, len(in))
	var lows []LowConfidence
	for i, ad := range in {
		rec, low := e.Estimate(ad, results[i])
		records = append(records, rec)
		if low != nil {
			lows = append(lows, *low)
		}
		e.log.Debugf("Added result for ad %d: Industry=%s, Spend=%.2f", i+1, rec.Industry, rec.Spend)
	}
	return records, lows
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
