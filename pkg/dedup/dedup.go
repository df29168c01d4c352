// Package dedup collapses scraped ads that describe the same logical ad.
package dedup

import (
	"github.com/sw33tLie/adscope/pkg/ads"
)

// TextPrefixLen is the number of runes of ad text that take part in the identity key.
const TextPrefixLen = 100

// SkipReason tells why an ad did not survive deduplication.
type SkipReason string

const (
	SkipUnknownAdvertiser SkipReason = "unknown advertiser"
	SkipPlaceholderText   SkipReason = "empty or placeholder text"
	SkipDuplicate         SkipReason = "duplicate"
)

// Key is the identity of an ad: advertiser plus a bounded prefix of its text.
type Key struct {
	Advertiser string
	TextPrefix string
}

// KeyOf builds the identity key for ad.
func KeyOf(ad ads.RawAd) Key {
	return Key{Advertiser: ad.Advertiser, TextPrefix: prefix(ad.Text, TextPrefixLen)}
}

// Stats counts what happened to the input.
type Stats struct {
	Input            int
	Kept             int
	SkippedInvalid   int
	SkippedDuplicate int
}

// Options configures Deduplicate. OnSkip, when set, receives every dropped ad
// with its original index.
type Options struct {
	OnSkip func(index int, ad ads.RawAd, reason SkipReason)
}

// Deduplicate returns the first occurrence of every key, in input order.
// Ads with an unknown advertiser or without copy are dropped before the key check.
func Deduplicate(in []ads.RawAd, opts Options) ([]ads.RawAd, Stats) {
	stats := Stats{Input: len(in)}
	out := make([]ads.RawAd, 0, len(in))
	seen := make(map[Key]struct{}, len(in))

	skip := func(i int, ad ads.RawAd, r SkipReason) {
		if opts.OnSkip != nil {
			opts.OnSkip(i, ad, r)
		}
	}

	for i, ad := range in {
		switch {
		case ads.IsUnknownAdvertiser(ad.Advertiser):
			stats.SkippedInvalid++
			skip(i, ad, SkipUnknownAdvertiser)
			continue
		case ads.IsPlaceholderText(ad.Text):
			stats.SkippedInvalid++
			skip(i, ad, SkipPlaceholderText)
			continue
		}

		k := KeyOf(ad)
		if _, dup := seen[k]; dup {
			stats.SkippedDuplicate++
			skip(i, ad, SkipDuplicate)
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ad)
	}

	stats.Kept = len(out)
	return out, stats
}

func prefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
