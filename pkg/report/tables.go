package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/estimate"
)

var (
	EstimateColumns      = []string{"Advertiser", "Industry", "CPC", "CTR", "Conversion Rate", "Estimated Spend (INR)", "Estimated Reach", "ROAS", "Note"}
	LowConfidenceColumns = []string{"Advertiser", "Ad Text", "Confidence", "Note"}
	AdColumns            = []string{"Advertiser", "Ad Text", "Ad Link", "Page ID", "Active Time", "Days Active", "Ad Variations", "Image URLs", "Video URLs"}
	DebugColumns         = []string{"Ad Index", "Advertiser", "Ad Text", "Ad Link", "Page ID", "Active Time", "Error", "Raw HTML"}
)

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// WriteEstimates writes the primary estimates file. An empty batch is not written.
func (w *Writer) WriteEstimates(path string, records []estimate.Record) error {
	if len(records) == 0 {
		w.log.Warnf("No estimates to save")
		return nil
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.Advertiser, r.Industry, f2(r.CPC), f2(r.CTR), f2(r.ConvRate), f2(r.Spend), f2(r.Reach), f2(r.ROAS), r.Note}
	}
	if err := w.writeCSV(path, EstimateColumns, rows); err != nil {
		return err
	}
	w.log.Infof("Saved %d estimates to %s", len(records), path)
	return nil
}

// WriteLowConfidence flushes the side records of a run. Nothing is written when there are none.
func (w *Writer) WriteLowConfidence(path string, records []estimate.LowConfidence) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.Advertiser, r.AdText, f2(r.Confidence), r.Note}
	}
	if err := w.writeCSV(path, LowConfidenceColumns, rows); err != nil {
		return err
	}
	w.log.Infof("Saved %d low-confidence ads to %s", len(records), path)
	return nil
}

// WriteAds writes scraped ads in the ranked-ads layout. Media URLs are space separated.
func (w *Writer) WriteAds(path string, list []ads.RawAd) error {
	rows := make([][]string, len(list))
	for i, a := range list {
		rows[i] = []string{
			a.Advertiser, a.Text, a.Link, a.PageID, a.ActiveTime,
			strconv.FormatFloat(a.DaysActive, 'f', -1, 64),
			strconv.Itoa(a.VariationCount()),
			strings.Join(a.ImageURLs, " "), strings.Join(a.VideoURLs, " "),
		}
	}
	return w.writeCSV(path, AdColumns, rows)
}

// WriteDebugLog writes per-card scrape failures.
func (w *Writer) WriteDebugLog(path string, failures []ads.ParseFailure) error {
	if len(failures) == 0 {
		return nil
	}
	rows := make([][]string, len(failures))
	for i, f := range failures {
		rows[i] = []string{
			strconv.Itoa(f.Index), f.Partial.Advertiser, f.Partial.Text, f.Partial.Link,
			f.Partial.PageID, f.Partial.ActiveTime, f.Err, f.RawHTML,
		}
	}
	return w.writeCSV(path, DebugColumns, rows)
}

// ReadAds loads an ads CSV written by WriteAds. Missing numeric values
// default to 0 days and 1 variation.
func ReadAds(path string) ([]ads.RawAd, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	list, err := DecodeAds(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return list, nil
}

// DecodeAds parses ads CSV content in the WriteAds layout.
func DecodeAds(r io.Reader) ([]ads.RawAd, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	if _, ok := idx["Ad Text"]; !ok {
		return nil, fmt.Errorf("missing column %q", "Ad Text")
	}

	out := make([]ads.RawAd, 0, len(rows))
	for _, rec := range rows {
		get := func(col string) string {
			if i, ok := idx[col]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		days, _ := strconv.ParseFloat(strings.TrimSpace(get("Days Active")), 64)
		vars, err := strconv.Atoi(strings.TrimSpace(get("Ad Variations")))
		if err != nil || vars < 1 {
			vars = 1
		}
		out = append(out, ads.RawAd{
			Advertiser: get("Advertiser"),
			Text:       get("Ad Text"),
			Link:       get("Ad Link"),
			PageID:     get("Page ID"),
			ActiveTime: get("Active Time"),
			DaysActive: days,
			Variations: vars,
			ImageURLs:  strings.Fields(get("Image URLs")),
			VideoURLs:  strings.Fields(get("Video URLs")),
		})
	}
	return out, nil
}
