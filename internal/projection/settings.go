package projection

import "time"

// Settings tunes the projection pipeline.
type Settings struct {
	// LookbackDays bounds how old a realized deal may be to count toward a
	// category benchmark.
	LookbackDays int
	// MinBenchmarkSamples is the minimum number of deals a category key
	// needs before its median is trusted.
	MinBenchmarkSamples int
	// HistoryDepth is how many of a business's most recent deals feed its
	// history median.
	HistoryDepth int
	// FactBatchSize caps the number of deal ids per metrics query.
	FactBatchSize int
	// FetchConcurrency caps concurrent metrics batch queries.
	FetchConcurrency int
	// CacheTTL is how long a business summary stays cached.
	CacheTTL time.Duration
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		LookbackDays:        360,
		MinBenchmarkSamples: 5,
		HistoryDepth:        3,
		FactBatchSize:       1000,
		FetchConcurrency:    4,
		CacheTTL:            60 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.LookbackDays <= 0 {
		s.LookbackDays = d.LookbackDays
	}
	if s.MinBenchmarkSamples <= 0 {
		s.MinBenchmarkSamples = d.MinBenchmarkSamples
	}
	if s.HistoryDepth <= 0 {
		s.HistoryDepth = d.HistoryDepth
	}
	if s.FactBatchSize <= 0 {
		s.FactBatchSize = d.FactBatchSize
	}
	if s.FetchConcurrency <= 0 {
		s.FetchConcurrency = d.FetchConcurrency
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = d.CacheTTL
	}
	return s
}
