package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
)

type checksumPayload struct {
	RunDirFormat string          `json:"run_dir_format"`
	MarksFile    string          `json:"marks_file"`
	Throughput   string          `json:"throughput_file"`
	Sources      []SourceConfig  `json:"sources"`
	Series       []SeriesConfig  `json:"series"`
	Keywords     []KeywordConfig `json:"keywords"`
}

// Checksum returns a short, stable checksum identifying the extraction
// mappings of a configuration, independent of declaration order, batch size
// and output location.
//
// It computes MD5 over a canonical JSON representation and returns the first 6 hex
// characters (equivalent to `md5sum | cut -c1-6`).
func Checksum(cfg *ConsolidateConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}

	keywords := append([]KeywordConfig(nil), cfg.Marks.Keywords...)
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Keyword != keywords[j].Keyword {
			return keywords[i].Keyword < keywords[j].Keyword
		}
		return keywords[i].Metric < keywords[j].Metric
	})

	sources := append([]SourceConfig(nil), cfg.Throughput.Sources...)
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Identity < sources[j].Identity
	})

	series := append([]SeriesConfig(nil), cfg.Series...)
	sort.Slice(series, func(i, j int) bool {
		return series[i].File < series[j].File
	})

	payload := checksumPayload{
		RunDirFormat: cfg.RunDirFormat,
		MarksFile:    cfg.Marks.File,
		Throughput:   cfg.Throughput.File,
		Sources:      sources,
		Series:       series,
		Keywords:     keywords,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(b)
	hexStr := hex.EncodeToString(sum[:])
	if len(hexStr) > 6 {
		hexStr = hexStr[:6]
	}
	return hexStr, nil
}
