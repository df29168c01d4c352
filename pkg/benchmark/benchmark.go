// Package benchmark maps industry labels to static performance benchmarks.
package benchmark

// Record is the benchmark quadruple for an industry. Monetary values are in INR.
type Record struct {
	CPC      float64 `json:"cpc"`
	CTR      float64 `json:"ctr"`
	ConvRate float64 `json:"conv_rate"`
	AOV      float64 `json:"aov"`
}

// Unclassified is the sentinel industry that always resolves to Default.
const Unclassified = "Unclassified"

// Default is used for unknown industries and low-confidence classifications.
var Default = Record{CPC: 31.66, CTR: 0.01, ConvRate: 0.02, AOV: 60000}

type entry struct {
	industry string
	record   Record
}

// table keeps declaration order; Labels() relies on it.
var table = []entry{
	{"Apparel", Record{CPC: 27.00, CTR: 0.0184, ConvRate: 0.039, AOV: 4500.00}},
	{"Finance & Insurance", Record{CPC: 226.20, CTR: 0.0111, ConvRate: 0.0525, AOV: 51000.00}},
	{"B2B SaaS", Record{CPC: 151.20, CTR: 0.0078, ConvRate: 0.028, AOV: 60000.00}},
	{"Healthcare", Record{CPC: 79.20, CTR: 0.0098, ConvRate: 0.035, AOV: 6600.00}},
	{"E-commerce", Record{CPC: 39.00, CTR: 0.0145, ConvRate: 0.042, AOV: 7200.00}},
	{"Education", Record{CPC: 66.00, CTR: 0.0085, ConvRate: 0.03, AOV: 12000.00}},
	{"Travel & Hospitality", Record{CPC: 57.00, CTR: 0.013, ConvRate: 0.038, AOV: 18000.00}},
	{"Real Estate", Record{CPC: 100.80, CTR: 0.009, ConvRate: 0.025, AOV: 90000.00}},
	{"Digital Marketing Services", Record{CPC: 120.00, CTR: 0.0100, ConvRate: 0.035, AOV: 30000.00}},
	{"IT Staffing & Recruitment", Record{CPC: 90.00, CTR: 0.0090, ConvRate: 0.040, AOV: 24000.00}},
	{"Software Training", Record{CPC: 60.00, CTR: 0.0090, ConvRate: 0.035, AOV: 15000.00}},
	{"Web Hosting & Domains", Record{CPC: 80.00, CTR: 0.0080, ConvRate: 0.030, AOV: 12000.00}},
	{"Freelance Software Development", Record{CPC: 100.00, CTR: 0.0085, ConvRate: 0.032, AOV: 36000.00}},
	{"Business Consulting & Services", Record{CPC: 150.00, CTR: 0.0090, ConvRate: 0.025, AOV: 300000.00}},
	{"Software Development", Record{CPC: 80.00, CTR: 0.009, ConvRate: 0.035, AOV: 30000.00}},
}

var byIndustry map[string]Record

func init() {
	byIndustry = make(map[string]Record, len(table))
	for _, e := range table {
		byIndustry[e.industry] = e.record
	}
}

// Lookup returns the named record for industry, if there is one.
func Lookup(industry string) (Record, bool) {
	if industry == Unclassified {
		return Record{}, false
	}
	r, ok := byIndustry[industry]
	return r, ok
}

// Resolve never fails: unknown labels and Unclassified get Default.
func Resolve(industry string) Record {
	if r, ok := Lookup(industry); ok {
		return r
	}
	return Default
}

// Labels returns the fixed label set, in table order.
func Labels() []string {
	out := make([]string, 0, len(table))
	for _, e := range table {
		out = append(out, e.industry)
	}
	return out
}

// IsLabel reports whether industry is part of the fixed label set.
func IsLabel(industry string) bool {
	_, ok := byIndustry[industry]
	return ok
}
