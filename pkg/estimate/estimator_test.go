package estimate

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/benchmark"
	"github.com/sw33tLie/adscope/pkg/industry"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestEstimateRoundTrip(t *testing.T) {
	e := New(Config{})
	ad := ads.RawAd{Advertiser: "Acme", Text: "Linen shirts on sale", DaysActive: 2, Variations: 3}

	rec, low := e.Estimate(ad, industry.Result{Industry: "Apparel", Confidence: 0.9})
	if low != nil {
		t.Fatalf("confident named industry must not be flagged: %+v", low)
	}

	want := Record{
		Advertiser: "Acme",
		Industry:   "Apparel",
		CPC:        27.00,
		CTR:        1.84,
		ConvRate:   3.9,
		Spend:      664.72,
		Reach:      1338,
		ROAS:       6.50,
	}
	if rec.Advertiser != want.Advertiser || rec.Industry != want.Industry || rec.Note != "" {
		t.Fatalf("unexpected labels %+v", rec)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"CPC", rec.CPC, want.CPC},
		{"CTR", rec.CTR, want.CTR},
		{"ConvRate", rec.ConvRate, want.ConvRate},
		{"Spend", rec.Spend, want.Spend},
		{"Reach", rec.Reach, want.Reach},
		{"ROAS", rec.ROAS, want.ROAS},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestEstimateLowConfidenceUsesDefault(t *testing.T) {
	e := New(Config{})
	ad := ads.RawAd{Advertiser: "Acme", Text: "Something vague", DaysActive: 1, Variations: 1}

	tests := []struct {
		name string
		cls  industry.Result
		note string
	}{
		{"unknown industry", industry.Result{Industry: "Pet Food", Confidence: 0.25}, "Low confidence"},
		{"named industry", industry.Result{Industry: "Apparel", Confidence: 0.1}, "Low confidence"},
		{"unclassified", industry.Result{Industry: benchmark.Unclassified, Confidence: 0.9}, NoteUnknownIndustry},
		{"note kept", industry.Result{Industry: "Pet Food", Confidence: 0.2, Note: "custom"}, "custom"},
	}
	for _, tc := range tests {
		rec, low := e.Estimate(ad, tc.cls)
		if low == nil {
			t.Fatalf("%s: expected a low-confidence record", tc.name)
		}
		if !strings.Contains(rec.Note, tc.note) || low.Note != rec.Note {
			t.Fatalf("%s: unexpected notes %q / %q", tc.name, rec.Note, low.Note)
		}
		if !near(rec.CPC, benchmark.Default.CPC) || !near(rec.CTR, benchmark.Default.CTR*100) || !near(rec.ConvRate, benchmark.Default.ConvRate*100) {
			t.Fatalf("%s: expected default benchmark, got %+v", tc.name, rec)
		}
		if low.Advertiser != "Acme" || low.AdText != ad.Text {
			t.Fatalf("%s: unexpected side record %+v", tc.name, low)
		}
	}
}

func TestEstimateDeterministicAndDefaults(t *testing.T) {
	e := New(Config{})
	ad := ads.RawAd{Advertiser: "Acme", Text: "Company formation in Spain"}
	cls := industry.Result{Industry: "Business Consulting & Services", Confidence: 0.7}

	a, _ := e.Estimate(ad, cls)
	b, _ := e.Estimate(ad, cls)
	if a != b {
		t.Fatalf("estimate is not deterministic: %+v vs %+v", a, b)
	}
	// Zero days and zero variations become 1 day and 1 variation.
	if !near(a.Reach, DefaultImpressionsPerDay) {
		t.Fatalf("Reach = %v, want %v", a.Reach, DefaultImpressionsPerDay)
	}
}

func TestEstimateAll(t *testing.T) {
	e := New(Config{})
	in := []ads.RawAd{
		{Advertiser: "A", Text: "one", DaysActive: 1, Variations: 1},
		{Advertiser: "B", Text: "two", DaysActive: 1, Variations: 1},
	}

	records, lows := e.EstimateAll(in, []industry.Result{
		{Industry: "Apparel", Confidence: 0.8},
		{Industry: "Pet Food", Confidence: 0.1},
	})
	if len(records) != 2 || len(lows) != 1 || lows[0].Advertiser != "B" {
		t.Fatalf("unexpected output %+v / %+v", records, lows)
	}

	records, lows = e.EstimateAll(in, []industry.Result{{Industry: "Apparel", Confidence: 0.8}})
	if len(records) != 2 || len(lows) != 2 {
		t.Fatalf("mismatch must degrade every ad, got %d records and %d flags", len(records), len(lows))
	}
	if records[0].Industry != industry.FallbackIndustry || records[0].Note != industry.NoteClassificationError {
		t.Fatalf("unexpected fallback record %+v", records[0])
	}
}

type fixedStrategy struct {
	v   float64
	err error
}

func (f fixedStrategy) Impressions(Input) (float64, error) { return f.v, f.err }

func TestWithFallback(t *testing.T) {
	rule := RuleBased{PerDayPerVariation: 100}
	in := Input{Days: 2, Variations: 2}

	tests := []struct {
		name    string
		primary ImpressionsEstimator
		want    float64
	}{
		{"ok", fixedStrategy{v: 42}, 42},
		{"error", fixedStrategy{err: errors.New("boom")}, 400},
		{"negative", fixedStrategy{v: -1}, 400},
		{"nan", fixedStrategy{v: math.NaN()}, 400},
		{"nil primary", nil, 400},
	}
	for _, tc := range tests {
		got, err := WithFallback(tc.primary, rule).Impressions(in)
		if err != nil || got != tc.want {
			t.Fatalf("%s: got %v, %v; want %v", tc.name, got, err, tc.want)
		}
	}
}

func trainingRows() []TrainingRow {
	var rows []TrainingRow
	texts := []string{"consulting offer", "spain company"}
	for i := 0; i < 20; i++ {
		days := float64(1 + i%7)
		vars := 1 + (i*3)%5
		rows = append(rows, TrainingRow{
			Text:        texts[i%2],
			Days:        days,
			Variations:  vars,
			Impressions: 100*days + 50*float64(vars) + 10,
		})
	}
	return rows
}

func TestRegressionLearnsLinearRelation(t *testing.T) {
	reg, err := TrainRegression(trainingRows(), RegressionConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := reg.Impressions(Input{Text: "consulting offer", Days: 10, Variations: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 1210.0; math.Abs(got-want)/want > 0.01 {
		t.Fatalf("prediction %v too far from %v", got, want)
	}

	if _, err := TrainRegression(nil, RegressionConfig{}); !errors.Is(err, ErrNoTrainingRows) {
		t.Fatalf("expected ErrNoTrainingRows, got %v", err)
	}
}

func TestReadTrainingRows(t *testing.T) {
	data := "\ufeffAd Text,Days Active,Ad Variations,Impressions\n" +
		"\"Set up, fast\",2,3,1338\n" +
		"broken,x,1,10\n" +
		"ok,1,1,223\n"
	rows, err := ReadTrainingRows(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0].Text != "Set up, fast" || rows[0].Variations != 3 || rows[1].Impressions != 223 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if _, err := ReadTrainingRows(strings.NewReader("Ad Text,Days Active,Ad Variations,Impressions\n")); !errors.Is(err, ErrNoTrainingRows) {
		t.Fatalf("expected ErrNoTrainingRows, got %v", err)
	}
	if _, err := ReadTrainingRows(strings.NewReader("Text,Days\n")); err == nil {
		t.Fatal("expected an error for missing columns")
	}
}

func TestNewStrategy(t *testing.T) {
	rule := RuleBased{PerDayPerVariation: 223}
	if s := NewStrategy(rule, "", nil); s != ImpressionsEstimator(rule) {
		t.Fatalf("expected the rule-based strategy, got %T", s)
	}
	if s := NewStrategy(rule, filepath.Join(t.TempDir(), "missing.csv"), nil); s != ImpressionsEstimator(rule) {
		t.Fatalf("missing file must keep the rule-based strategy, got %T", s)
	}

	path := filepath.Join(t.TempDir(), "train.csv")
	var b strings.Builder
	b.WriteString("Ad Text,Days Active,Ad Variations,Impressions\n")
	for _, r := range trainingRows() {
		b.WriteString(r.Text + "," + trimFloat(r.Days) + "," + trimFloat(float64(r.Variations)) + "," + trimFloat(r.Impressions) + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := NewStrategy(rule, path, nil).(*withFallback); !ok {
		t.Fatal("expected a regression strategy with fallback")
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
