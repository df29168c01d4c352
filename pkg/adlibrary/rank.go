package adlibrary

import (
	"sort"
	"strings"

	"github.com/sw33tLie/adscope/pkg/ads"
)

// CountVariations sets each ad's Variations to the number of cards sharing
// its exact text. Blank texts count as a single variation. The input is not modified.
func CountVariations(in []ads.RawAd) []ads.RawAd {
	counts := make(map[string]int)
	for _, a := range in {
		if strings.TrimSpace(a.Text) != "" {
			counts[a.Text]++
		}
	}
	out := make([]ads.RawAd, len(in))
	for i, a := range in {
		out[i] = a
		out[i].Variations = 1
		if n, ok := counts[a.Text]; ok {
			out[i].Variations = n
		}
	}
	return out
}

// TopN returns up to n ads with text, longest running first, one per link.
// A non-positive n yields an empty result.
func TopN(in []ads.RawAd, n int) []ads.RawAd {
	if n <= 0 {
		return []ads.RawAd{}
	}
	filtered := make([]ads.RawAd, 0, len(in))
	for _, a := range in {
		if strings.TrimSpace(a.Text) != "" {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].DaysActive > filtered[j].DaysActive
	})

	top := make([]ads.RawAd, 0, n)
	seenLinks := make(map[string]bool)
	for _, a := range filtered {
		if len(top) == n {
			break
		}
		if seenLinks[a.Link] {
			continue
		}
		seenLinks[a.Link] = true
		top = append(top, a)
	}
	return top
}
