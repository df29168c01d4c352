package adlibrary

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

var (
	numericPageRe = regexp.MustCompile(`facebook\.com/(\d+)/`)
	namedPageRe   = regexp.MustCompile(`facebook\.com/([^/?]+)`)
)

// ExtractPageID returns the page id or vanity name from an ad link, or "N/A".
func ExtractPageID(link string) string {
	if link == "" {
		return "N/A"
	}
	if m := numericPageRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	if m := namedPageRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return "N/A"
}

// LandingDomain returns the registrable domain an ad link points to.
// Facebook redirect links (l.facebook.com/l.php?u=...) are unwrapped first.
// e.g., "https://l.facebook.com/l.php?u=https%3A%2F%2Fshop.example.co.uk%2Fx" -> "example.co.uk", true
func LandingDomain(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	if !strings.Contains(link, "://") && strings.Contains(link, ".") {
		link = "http://" + link
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", false
	}
	if target := u.Query().Get("u"); target != "" && strings.HasSuffix(u.Hostname(), "facebook.com") {
		if inner, err := url.Parse(target); err == nil && inner.Host != "" {
			u = inner
		}
	}

	host := u.Hostname()
	if !strings.Contains(host, ".") || strings.Contains(host, "*") {
		return "", false
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", false
	}
	return domain, true
}
