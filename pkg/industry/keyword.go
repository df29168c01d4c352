package industry

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// keywordMap is the source of truth for the offline provider.
// It groups lowercase word-prefix keywords under an industry label.
var keywordMap = map[string][]string{
	"Apparel":                        {"apparel", "clothing", "fashion", "wear", "shirt", "dress", "shoes", "boutique", "outfit"},
	"Finance & Insurance":            {"loan", "insurance", "bank", "credit", "invest", "finance", "mortgage", "tax", "accounting"},
	"B2B SaaS":                       {"saas", "software platform", "crm", "erp", "subscription", "api", "cloud", "dashboard", "automation"},
	"Healthcare":                     {"health", "clinic", "doctor", "hospital", "medical", "wellness", "therapy", "dental", "pharmacy"},
	"E-commerce":                     {"shop", "store", "buy now", "discount", "sale", "delivery", "cart", "order online", "free shipping"},
	"Education":                      {"course", "university", "degree", "learn", "school", "student", "admission", "scholarship", "study"},
	"Travel & Hospitality":           {"travel", "hotel", "flight", "tour", "holiday", "vacation", "resort", "booking", "visa"},
	"Real Estate":                    {"property", "apartment", "real estate", "villa", "rent", "plot", "housing", "flat", "realty"},
	"Digital Marketing Services":     {"marketing", "seo", "social media", "ads", "branding", "leads", "agency", "campaign"},
	"IT Staffing & Recruitment":      {"hiring", "recruit", "job", "staffing", "talent", "career", "vacancy", "resume"},
	"Software Training":              {"training", "bootcamp", "certification", "coding class", "tutorial", "workshop", "python", "java"},
	"Web Hosting & Domains":          {"hosting", "domain", "server", "vps", "website builder", "ssl", "wordpress"},
	"Freelance Software Development": {"freelance", "hire developer", "gig", "contract developer", "upwork", "fiverr"},
	"Business Consulting & Services": {"consulting", "incorporat", "company formation", "business setup", "advisory", "registration", "compliance", "consultant"},
	"Software Development":           {"software", "app development", "developer", "mobile app", "web development", "custom software", "programming"},
}

// KeywordModel is an offline ZeroShot that scores labels by keyword hits.
// It is safe for concurrent use.
type KeywordModel struct{}

// NewKeywordModel returns the offline keyword provider.
func NewKeywordModel() *KeywordModel {
	return &KeywordModel{}
}

// Predict scores each label by its share of keyword hits. A text with no hits
// gets a uniform distribution, which always lands under the review threshold.
func (k *KeywordModel) Predict(ctx context.Context, texts, labels []string) ([]Prediction, error) {
	// A Caser keeps state, so each call gets its own.
	fold := cases.Fold()
	out := make([]Prediction, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = k.score(fold, text, labels)
	}
	return out, nil
}

func (k *KeywordModel) score(fold cases.Caser, text string, labels []string) Prediction {
	padded := " " + tokens(fold, text) + " "

	hits := make([]int, len(labels))
	total := 0
	for i, label := range labels {
		for _, kw := range keywordMap[label] {
			if strings.Contains(padded, " "+kw) {
				hits[i]++
			}
		}
		total += hits[i]
	}

	idx := make([]int, len(labels))
	for i := range idx {
		idx[i] = i
	}
	// Ties keep label declaration order.
	sort.SliceStable(idx, func(a, b int) bool { return hits[idx[a]] > hits[idx[b]] })

	p := Prediction{
		Labels: make([]string, len(labels)),
		Scores: make([]float64, len(labels)),
	}
	for pos, i := range idx {
		p.Labels[pos] = labels[i]
		if total == 0 {
			p.Scores[pos] = 1 / float64(len(labels))
		} else {
			p.Scores[pos] = float64(hits[i]) / float64(total)
		}
	}
	return p
}

// tokens case-folds text and collapses every run of non-alphanumerics to one space.
func tokens(fold cases.Caser, text string) string {
	fields := strings.FieldsFunc(fold.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
