package estimate

import (
	"errors"
	"math"

	"github.com/sw33tLie/adscope/internal/utils"
)

// DefaultImpressionsPerDay is the rule-of-thumb impressions per day per variation.
const DefaultImpressionsPerDay = 223.0

// Input is what an impressions strategy sees of an ad. Days is already
// defaulted and Variations is at least 1.
type Input struct {
	Text       string
	Days       float64
	Variations int
}

// ImpressionsEstimator predicts impressions for a single ad.
type ImpressionsEstimator interface {
	Impressions(in Input) (float64, error)
}

// RuleBased is days * variations * PerDayPerVariation.
type RuleBased struct {
	PerDayPerVariation float64
}

func (r RuleBased) Impressions(in Input) (float64, error) {
	rate := r.PerDayPerVariation
	if rate <= 0 {
		rate = DefaultImpressionsPerDay
	}
	v := in.Variations
	if v < 1 {
		v = 1
	}
	return in.Days * float64(v) * rate, nil
}

var errBadPrediction = errors.New("prediction is negative or not finite")

type withFallback struct {
	primary  ImpressionsEstimator
	fallback ImpressionsEstimator
}

// WithFallback returns a strategy that tries primary and answers with
// fallback whenever primary errors or predicts a negative or non-finite value.
func WithFallback(primary, fallback ImpressionsEstimator) ImpressionsEstimator {
	if primary == nil {
		return fallback
	}
	return &withFallback{primary: primary, fallback: fallback}
}

func (w *withFallback) Impressions(in Input) (float64, error) {
	v, err := w.primary.Impressions(in)
	if err == nil {
		err = checkPrediction(v)
	}
	if err != nil {
		return w.fallback.Impressions(in)
	}
	return v, nil
}

func checkPrediction(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return errBadPrediction
	}
	return nil
}

// NewStrategy returns rule unless trainingFile names a readable, non-empty
// labeled dataset, in which case the trained regression is tried first.
func NewStrategy(rule RuleBased, trainingFile string, log utils.Logger) ImpressionsEstimator {
	log = utils.OrNop(log)
	if trainingFile == "" {
		return rule
	}
	rows, err := LoadTrainingFile(trainingFile)
	if err != nil {
		log.Warnf("Training file %s not usable, using rule-based impressions: %v", trainingFile, err)
		return rule
	}
	reg, err := TrainRegression(rows, RegressionConfig{})
	if err != nil {
		log.Warnf("Regression training failed, using rule-based impressions: %v", err)
		return rule
	}
	log.Infof("Trained impressions regression on %d rows (%d text features)", len(rows), reg.Features())
	return WithFallback(reg, rule)
}
