package estimate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/mat"
)

var ErrNoTrainingRows = errors.New("no usable training rows")

// TrainingRow is one labeled observation.
type TrainingRow struct {
	Text        string
	Days        float64
	Variations  int
	Impressions float64
}

// RegressionConfig tunes the ridge fit.
type RegressionConfig struct {
	// MaxFeatures caps the TF-IDF vocabulary, most frequent terms first.
	MaxFeatures int
	// Lambda is the L2 penalty. The intercept is not penalized.
	Lambda float64
}

// Regression predicts impressions from TF-IDF text features plus days and variations.
type Regression struct {
	vocab   map[string]int
	idf     []float64
	weights []float64
}

type tfidf struct {
	vocab map[string]int
	idf   []float64
}

// TrainRegression fits a ridge regression over rows.
func TrainRegression(rows []TrainingRow, cfg RegressionConfig) (*Regression, error) {
	if len(rows) == 0 {
		return nil, ErrNoTrainingRows
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 200
	}
	if cfg.Lambda <= 0 {
		cfg.Lambda = 1e-3
	}

	docs := make([][]string, len(rows))
	for i, r := range rows {
		docs[i] = tokenize(r.Text)
	}
	vec := fitTFIDF(docs, cfg.MaxFeatures)

	// Columns: intercept, text features, days, variations.
	cols := 1 + len(vec.idf) + 2
	x := mat.NewDense(len(rows), cols, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		x.SetRow(i, features(vec, docs[i], r.Days, r.Variations))
		y.SetVec(i, r.Impressions)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 1; j < cols; j++ {
		xtx.Set(j, j, xtx.At(j, j)+cfg.Lambda)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		// An ill-conditioned system still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solving ridge system: %w", err)
		}
	}

	weights := make([]float64, cols)
	for j := range weights {
		weights[j] = w.AtVec(j)
		if math.IsNaN(weights[j]) || math.IsInf(weights[j], 0) {
			return nil, errors.New("ridge fit produced non-finite weights")
		}
	}
	return &Regression{vocab: vec.vocab, idf: vec.idf, weights: weights}, nil
}

// Impressions returns the linear prediction. Callers wrap it with WithFallback.
func (r *Regression) Impressions(in Input) (float64, error) {
	f := features(tfidf{vocab: r.vocab, idf: r.idf}, tokenize(in.Text), in.Days, in.Variations)
	var v float64
	for j, w := range r.weights {
		v += w * f[j]
	}
	if err := checkPrediction(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Features is the vocabulary size.
func (r *Regression) Features() int {
	return len(r.idf)
}

func fitTFIDF(docs [][]string, maxFeatures int) tfidf {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, tok := range doc {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(a, b int) bool {
		if df[terms[a]] != df[terms[b]] {
			return df[terms[a]] > df[terms[b]]
		}
		return terms[a] < terms[b]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vec := tfidf{vocab: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	for i, t := range terms {
		vec.vocab[t] = i
		// Smoothed idf.
		vec.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return vec
}

func features(vec tfidf, tokens []string, days float64, variations int) []float64 {
	f := make([]float64, 1+len(vec.idf)+2)
	f[0] = 1

	var norm float64
	for _, tok := range tokens {
		if j, ok := vec.vocab[tok]; ok {
			f[1+j] += vec.idf[j]
		}
	}
	for j := range vec.idf {
		norm += f[1+j] * f[1+j]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for j := range vec.idf {
			f[1+j] /= norm
		}
	}

	if variations < 1 {
		variations = 1
	}
	f[len(f)-2] = days
	f[len(f)-1] = float64(variations)
	return f
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// LoadTrainingFile reads a labeled CSV with the columns
// Ad Text, Days Active, Ad Variations, Impressions. Unparseable rows are skipped.
func LoadTrainingFile(path string) ([]TrainingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrainingRows(f)
}

func ReadTrainingRows(r io.Reader) ([]TrainingRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoTrainingRows
		}
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, want := range []string{"Ad Text", "Days Active", "Ad Variations", "Impressions"} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("training file: missing column %q", want)
		}
	}

	var rows []TrainingRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		days, err1 := strconv.ParseFloat(get("Days Active"), 64)
		vars, err2 := strconv.Atoi(get("Ad Variations"))
		imp, err3 := strconv.ParseFloat(get("Impressions"), 64)
		if err1 != nil || err2 != nil || err3 != nil || imp < 0 {
			continue
		}
		rows = append(rows, TrainingRow{Text: get("Ad Text"), Days: days, Variations: vars, Impressions: imp})
	}
	if len(rows) == 0 {
		return nil, ErrNoTrainingRows
	}
	return rows, nil
}
