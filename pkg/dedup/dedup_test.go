package dedup

import (
	"strings"
	"testing"

	"github.com/sw33tLie/adscope/pkg/ads"
)

func TestDeduplicateKeepsFirstInOrder(t *testing.T) {
	in := []ads.RawAd{
		{Advertiser: "Acme", Text: "Incorporate your company in Spain today", Link: "a"},
		{Advertiser: "Beta", Text: "Learn Go in 30 days with our bootcamp", Link: "b"},
		{Advertiser: "Acme", Text: "Incorporate your company in Spain today", Link: "c"},
		{Advertiser: "Gamma", Text: "Cheap hosting for your next website", Link: "d"},
		{Advertiser: "Beta", Text: "Learn Go in 30 days with our bootcamp", Link: "e"},
	}

	out, stats := Deduplicate(in, Options{})
	if len(out) != 3 {
		t.Fatalf("expected 3 ads, got %d", len(out))
	}
	for i, want := range []string{"a", "b", "d"} {
		if out[i].Link != want {
			t.Fatalf("position %d: expected link %q, got %q", i, want, out[i].Link)
		}
	}
	if stats.SkippedDuplicate != 2 || stats.Kept != 3 || stats.Input != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDeduplicateDropsInvalidBeforeKeying(t *testing.T) {
	in := []ads.RawAd{
		{Advertiser: ads.UnknownAdvertiser, Text: "Some real ad copy here"},
		{Advertiser: "Acme", Text: "..."},
		{Advertiser: "Acme", Text: ""},
		{Advertiser: "Acme", Text: "Some real ad copy here"},
	}

	var reasons []SkipReason
	out, stats := Deduplicate(in, Options{OnSkip: func(_ int, _ ads.RawAd, r SkipReason) {
		reasons = append(reasons, r)
	}})

	if len(out) != 1 || out[0].Advertiser != "Acme" {
		t.Fatalf("expected only the Acme ad, got %+v", out)
	}
	if stats.SkippedInvalid != 3 {
		t.Fatalf("expected 3 invalid, got %d", stats.SkippedInvalid)
	}
	want := []SkipReason{SkipUnknownAdvertiser, SkipPlaceholderText, SkipPlaceholderText}
	if len(reasons) != len(want) {
		t.Fatalf("expected reasons %v, got %v", want, reasons)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Fatalf("reason %d: expected %q, got %q", i, want[i], reasons[i])
		}
	}
}

func TestDeduplicateUsesTextPrefix(t *testing.T) {
	base := strings.Repeat("x", TextPrefixLen)
	in := []ads.RawAd{
		{Advertiser: "Acme", Text: base + " variant one"},
		{Advertiser: "Acme", Text: base + " variant two"},
		{Advertiser: "Other", Text: base + " variant one"},
	}
	out, _ := Deduplicate(in, Options{})
	if len(out) != 2 {
		t.Fatalf("texts sharing a %d-rune prefix should collapse per advertiser, got %d", TextPrefixLen, len(out))
	}
}

func TestPrefixCountsRunes(t *testing.T) {
	s := strings.Repeat("é", 120)
	p := prefix(s, TextPrefixLen)
	if n := len([]rune(p)); n != TextPrefixLen {
		t.Fatalf("expected %d runes, got %d", TextPrefixLen, n)
	}
	if prefix("short", TextPrefixLen) != "short" {
		t.Fatal("short strings must be returned unchanged")
	}
}
