package storage

import "time"

// Run is one pipeline execution.
type Run struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"started_at"`
	Keyword            string    `json:"keyword,omitempty"`
	Country            string    `json:"country,omitempty"`
	Source             string    `json:"source,omitempty"`
	InputCount         int       `json:"input_count"`
	EstimateCount      int       `json:"estimate_count"`
	LowConfidenceCount int       `json:"low_confidence_count"`
	TotalSpend         float64   `json:"total_spend"`
}

// IndustryStats aggregates estimates per industry across all runs.
type IndustryStats struct {
	Industry string  `json:"industry"`
	Ads      int     `json:"ads"`
	AvgSpend float64 `json:"avg_spend"`
	AvgROAS  float64 `json:"avg_roas"`
}

// Stats summarizes the whole database.
type Stats struct {
	Runs          int             `json:"runs"`
	Estimates     int             `json:"estimates"`
	LowConfidence int             `json:"low_confidence"`
	ByIndustry    []IndustryStats `json:"by_industry"`
}
