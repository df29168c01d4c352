package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/pipeline"
	"github.com/sw33tLie/adscope/pkg/report"
)

const page = `<html><body>
<div class="card">
  <span>Sponsored</span>
  <span class="x1lliihq">Acme</span>
  <div class="_7jyr">Linen shirts on sale</div>
  <a href="https://www.facebook.com/acme/">Shop</a>
</div>
</body></html>`

func TestLoadAds(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "page.html")
	if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	fromHTML, err := loadAds(context.Background(), "", htmlPath, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fromHTML) != 1 || fromHTML[0].Advertiser != "Acme" || fromHTML[0].PageID != "acme" {
		t.Fatalf("unexpected ads %+v", fromHTML)
	}

	csvPath := filepath.Join(dir, "ads.csv")
	if err := report.NewWriter(report.Options{}).WriteAds(csvPath, []ads.RawAd{{Advertiser: "Beta", Text: "x", Variations: 2}}); err != nil {
		t.Fatal(err)
	}
	fromCSV, err := loadAds(context.Background(), csvPath, "", 0)
	if err != nil || len(fromCSV) != 1 || fromCSV[0].Variations != 2 {
		t.Fatalf("unexpected ads %+v (%v)", fromCSV, err)
	}

	if _, err := loadAds(context.Background(), filepath.Join(dir, "missing.csv"), "", 0); err == nil {
		t.Fatal("expected an error for a missing input")
	}
}

func TestProxiedClient(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("proxy")
	defer flag.Value.Set("")

	client, err := proxiedClient(time.Second)
	if err != nil || client != nil {
		t.Fatalf("no proxy must yield a nil client, got %v (%v)", client, err)
	}

	flag.Value.Set("http://127.0.0.1:8080")
	client, err = proxiedClient(time.Second)
	if err != nil || client == nil {
		t.Fatalf("expected a proxied client, got %v (%v)", client, err)
	}

	flag.Value.Set("://bad")
	if _, err := proxiedClient(time.Second); err == nil {
		t.Fatal("expected an error for a malformed proxy")
	}
}

func TestRunAndReportSurvivesWriteFailure(t *testing.T) {
	dir := t.TempDir()
	p := pipeline.New(pipeline.Options{Writer: report.NewWriter(report.Options{})})

	res := runAndReport(context.Background(), p, []ads.RawAd{{Advertiser: "Acme", Text: "Linen shirts on sale", DaysActive: 2, Variations: 3}}, pipeline.RunOptions{
		OutputPath:        filepath.Join(dir, "missing", "estimates.csv"),
		LowConfidencePath: filepath.Join(dir, "low.csv"),
	})
	if res == nil || len(res.Records) != 1 {
		t.Fatalf("expected one estimate despite the write error, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "low.csv")); err != nil {
		t.Fatalf("low-confidence file not written: %v", err)
	}
}
