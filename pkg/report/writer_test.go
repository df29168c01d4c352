package report

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/estimate"
)

var sampleRecords = []estimate.Record{
	{Advertiser: "Acme", Industry: "Apparel", CPC: 27, CTR: 1.84, ConvRate: 3.9, Spend: 664.72, Reach: 1338, ROAS: 6.5},
	{Advertiser: "Beta, Inc.", Industry: "Pet Food", CPC: 31.66, CTR: 1, ConvRate: 2, Spend: 70.6, Reach: 223, ROAS: 37.9, Note: "Low confidence (0.25) - Manual review needed"},
}

func denyOpen(name string, flag int, perm os.FileMode) (*os.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func TestWriteEstimatesBOMAndFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ad_metrics_estimates.csv")
	w := NewWriter(Options{})
	if err := w.WriteEstimates(path, sampleRecords); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("missing UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(string(data[3:])), "\n")
	if lines[0] != "Advertiser,Industry,CPC,CTR,Conversion Rate,Estimated Spend (INR),Estimated Reach,ROAS,Note" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "Acme,Apparel,27.00,1.84,3.90,664.72,1338.00,6.50," {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], `"Beta, Inc.",Pet Food,31.66`) {
		t.Fatalf("unexpected quoted row %q", lines[2])
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatal("lock file must be removed after the write")
	}
}

func TestWriteFallbackOnPermissionError(t *testing.T) {
	dir := t.TempDir()
	direct := filepath.Join(dir, "direct.csv")
	if err := NewWriter(Options{}).WriteEstimates(direct, sampleRecords); err != nil {
		t.Fatal(err)
	}

	stage := t.TempDir()
	target := filepath.Join(dir, "denied.csv")
	var hooked []string
	w := NewWriter(Options{TempDir: stage, OpenFile: denyOpen, OnFallback: func(p string) { hooked = append(hooked, p) }})
	if err := w.WriteEstimates(target, sampleRecords); err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if len(hooked) != 1 || hooked[0] != target {
		t.Fatalf("OnFallback calls = %v", hooked)
	}

	want, _ := os.ReadFile(direct)
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("no file at the original path: %v", err)
	}
	if len(got) == 0 || !bytes.Equal(got, want) {
		t.Fatalf("fallback content differs:\n%q\n%q", got, want)
	}
	if left, _ := os.ReadDir(stage); len(left) != 0 {
		t.Fatalf("temporary files left behind: %d", len(left))
	}
}

func TestWriteFallbackWhenLocked(t *testing.T) {
	target := filepath.Join(t.TempDir(), "locked.csv")
	lock, err := utils.NewOutputLock(target)
	if err != nil {
		t.Fatal(err)
	}
	if err := lock.TryLock(); err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	w := NewWriter(Options{TempDir: t.TempDir()})
	if err := w.WriteLowConfidence(target, []estimate.LowConfidence{{Advertiser: "Acme", AdText: "x", Confidence: 0.25, Note: "n"}}); err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || !strings.Contains(string(data), "Acme,x,0.25,n") {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
}

func TestWriteFallbackFailure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.csv")
	w := NewWriter(Options{TempDir: filepath.Join(t.TempDir(), "missing"), OpenFile: denyOpen})
	err := w.WriteEstimates(target, sampleRecords)
	if !errors.Is(err, ErrFallbackFailed) {
		t.Fatalf("expected ErrFallbackFailed, got %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("nothing should be written when the fallback fails")
	}
}

func TestWriteFallbackCrossDevice(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.csv")
	stage := t.TempDir()

	var calls int
	rename := func(oldpath, newpath string) error {
		calls++
		if filepath.Dir(oldpath) == stage {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}
	w := NewWriter(Options{TempDir: stage, OpenFile: denyOpen, Rename: rename})
	if err := w.WriteEstimates(target, sampleRecords); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a retry through a sibling file, got %d renames", calls)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "out.csv" {
		t.Fatalf("unexpected files in target dir: %v", entries)
	}
}

func TestOtherErrorsAreNotRetried(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.csv")
	boom := errors.New("disk on fire")
	w := NewWriter(Options{OpenFile: func(string, int, os.FileMode) (*os.File, error) { return nil, boom }})
	if err := w.WriteEstimates(target, sampleRecords); !errors.Is(err, boom) {
		t.Fatalf("expected the primary error, got %v", err)
	}
}

func TestEmptyBatchesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(Options{})
	if err := w.WriteEstimates(filepath.Join(dir, "a.csv"), nil); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteLowConfidence(filepath.Join(dir, "b.csv"), nil); err != nil {
		t.Fatal(err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files, got %d", len(entries))
	}
}

func TestAdsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta_ads_ranked.csv")
	in := []ads.RawAd{
		{Advertiser: "Acme", Text: "Set up your company,\nfast", Link: "https://facebook.com/123/", PageID: "123", ActiveTime: "1 Jan 2025 - 3 Jan 2025", DaysActive: 2.5, Variations: 3,
			ImageURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.png"}},
		{Advertiser: "Beta", Text: "Second", Link: "", PageID: "N/A", ActiveTime: "Unknown", DaysActive: 0, Variations: 0},
	}
	if err := NewWriter(Options{}).WriteAds(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadAds(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 ads, got %d", len(out))
	}
	if out[0].Text != in[0].Text || out[0].DaysActive != 2.5 || out[0].Variations != 3 || out[0].PageID != "123" {
		t.Fatalf("unexpected first ad %+v", out[0])
	}
	if len(out[0].ImageURLs) != 2 || out[0].ImageURLs[1] != "https://cdn.example.com/b.png" || len(out[0].VideoURLs) != 0 {
		t.Fatalf("unexpected media %v %v", out[0].ImageURLs, out[0].VideoURLs)
	}
	if out[1].Variations != 1 {
		t.Fatalf("variations must be at least 1, got %d", out[1].Variations)
	}
}

func TestWriteDebugLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.csv")
	err := NewWriter(Options{}).WriteDebugLog(path, []ads.ParseFailure{
		{Index: 4, Partial: ads.RawAd{Advertiser: "Acme"}, Err: "no text", RawHTML: "<div>x</div>"},
	})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "4,Acme,,,,,no text,<div>x</div>") {
		t.Fatalf("unexpected debug log %q", data)
	}
}
