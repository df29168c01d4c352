// Package ads holds the ad records shared by the scraper and the estimation pipeline.
package ads

import "strings"

const (
	// UnknownAdvertiser is what the scraper emits when no advertiser element is found.
	UnknownAdvertiser = "Unknown Advertiser"
	// PlaceholderText is the ad text used when the card carried no body.
	PlaceholderText = "..."
	// UnknownActiveTime is emitted when no active-time span is found.
	UnknownActiveTime = "Unknown"
	// UnknownPageID is emitted when the ad link has no recognizable page.
	UnknownPageID = "N/A"
)

// RawAd is a single listing as scraped from the ad library.
// The pipeline treats it as read-only.
type RawAd struct {
	Advertiser string
	Text       string
	Link       string
	PageID     string
	ActiveTime string
	DaysActive float64
	Variations int
	ImageURLs  []string
	VideoURLs  []string
}

// IsUnknownAdvertiser reports whether name is empty or one of the "unknown" sentinels.
func IsUnknownAdvertiser(name string) bool {
	n := strings.TrimSpace(name)
	if n == "" {
		return true
	}
	return strings.EqualFold(n, UnknownAdvertiser) || strings.EqualFold(n, "Unknown")
}

// IsPlaceholderText reports whether text carries no ad copy.
func IsPlaceholderText(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || t == PlaceholderText
}

// VariationCount returns the number of creatives sharing this ad's text, never below 1.
func (a RawAd) VariationCount() int {
	if a.Variations < 1 {
		return 1
	}
	return a.Variations
}

// ParseFailure records a card the scraper could not fully extract.
type ParseFailure struct {
	Index   int
	Partial RawAd
	Err     string
	RawHTML string
}
