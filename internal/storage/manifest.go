package storage

import (
	"encoding/json"
	"io"
	"time"

	"netsim-consolidate/internal/host"
)

const (
	ManifestFile    = "manifest.json"
	manifestVersion = 1
)

// Manifest records what a consolidation batch read and wrote.
type Manifest struct {
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	Batch          string            `json:"batch"`
	ConfigChecksum string            `json:"config_checksum"`
	BaseDir        string            `json:"base_dir"`
	Host           *host.Info        `json:"host,omitempty"`
	RunsConfigured int               `json:"runs_configured"`
	RunsFound      []int             `json:"runs_found"`
	RunsMissing    []int             `json:"runs_missing"`
	Extractions    []ExtractionEntry `json:"extractions"`
	Datasets       []DatasetEntry    `json:"datasets"`
}

type ExtractionEntry struct {
	RunID     int    `json:"run_id"`
	Extractor string `json:"extractor"`
	File      string `json:"file"`
	Status    string `json:"status"`
	Rows      int    `json:"rows"`
	Dropped   int    `json:"dropped,omitempty"`
	Error     string `json:"error,omitempty"`
}

type DatasetEntry struct {
	Metric string `json:"metric"`
	File   string `json:"file,omitempty"`
	Rows   int    `json:"rows"`
	Runs   int    `json:"runs"`
	MD5    string `json:"md5,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewManifest(batch, checksum, baseDir string, runs int) *Manifest {
	return &Manifest{
		Version:        manifestVersion,
		CreatedAt:      time.Now().UTC(),
		Batch:          batch,
		ConfigChecksum: checksum,
		BaseDir:        baseDir,
		RunsConfigured: runs,
		RunsFound:      []int{},
		RunsMissing:    []int{},
	}
}

// AddResults records dataset write results in the manifest.
func (m *Manifest) AddResults(results []WriteResult) {
	for _, r := range results {
		entry := DatasetEntry{
			Metric: r.Metric,
			Rows:   r.Rows,
			Runs:   r.Runs,
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		} else {
			entry.File = FileName(r.Metric)
			entry.MD5 = r.Checksum
		}
		m.Datasets = append(m.Datasets, entry)
	}
}

// WriteManifest writes manifest.json atomically into dir.
func WriteManifest(dir string, m *Manifest) (string, error) {
	return WriteFileAtomic(dir, ManifestFile, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}
