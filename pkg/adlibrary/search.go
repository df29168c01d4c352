// Package adlibrary extracts ad listings from public ad library pages.
package adlibrary

import (
	"net/url"
	"strings"
)

const baseURL = "https://www.facebook.com/ads/library/"

// SearchURL builds the keyword search URL for all active and inactive ads in country.
func SearchURL(keyword, country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		country = "ALL"
	}
	// Bracketed keys stay unescaped.
	params := []string{
		"active_status=all",
		"ad_type=all",
		"country=" + url.QueryEscape(country),
		"q=" + url.QueryEscape(strings.TrimSpace(keyword)),
		"sort_data[direction]=desc",
		"sort_data[mode]=relevancy_monthly_grouped",
		"search_type=keyword_unordered",
	}
	return baseURL + "?" + strings.Join(params, "&")
}
