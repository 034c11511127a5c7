package dataparser

import "netsim-consolidate/internal/config"

// NewExtractors builds the per-run extractors in their fixed source order.
func NewExtractors(cfg *config.ConsolidateConfig) []Extractor {
	return []Extractor{
		NewMarkExtractor(cfg.Marks),
		NewThroughputDeriver(cfg.Throughput),
		NewSeriesLoader(cfg.Series),
	}
}
