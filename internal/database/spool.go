package database

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"netsim-consolidate/internal/dataframe"
	"netsim-consolidate/internal/storage"
)

const spoolVersion = 1

// SpoolArtifact holds the datasets of a batch whose export did not go through.
type SpoolArtifact struct {
	Version        int                 `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	Batch          string              `json:"batch"`
	ConfigChecksum string              `json:"config_checksum"`
	Datasets       []dataframe.Dataset `json:"datasets"`
}

func DefaultSpoolDir() string {
	if v := strings.TrimSpace(os.Getenv("NETSIM_SPOOL_DIR")); v != "" {
		return v
	}
	return "spool"
}

func BuildSpoolArtifact(batch, checksum string, datasets []dataframe.Dataset) *SpoolArtifact {
	return &SpoolArtifact{
		Version:        spoolVersion,
		CreatedAt:      time.Now(),
		Batch:          batch,
		ConfigChecksum: checksum,
		Datasets:       datasets,
	}
}

// WriteSpoolArtifact writes a gzip-compressed JSON artifact to disk atomically.
// It returns the final file path.
func WriteSpoolArtifact(dir string, artifact *SpoolArtifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("spool artifact is nil")
	}
	if dir == "" {
		dir = DefaultSpoolDir()
	}

	checksum := artifact.ConfigChecksum
	if checksum == "" {
		checksum = "nocsum"
	}
	name := fmt.Sprintf(
		"batch_%s_%s_%s.json.gz",
		artifact.Batch,
		artifact.CreatedAt.UTC().Format("20060102T150405Z"),
		checksum,
	)

	return storage.WriteFileAtomic(dir, name, func(w io.Writer) error {
		gz := gzip.NewWriter(w)
		enc := json.NewEncoder(gz)
		enc.SetIndent("", "  ")
		if err := enc.Encode(artifact); err != nil {
			_ = gz.Close()
			return err
		}
		return gz.Close()
	})
}

// LoadSpoolArtifact reads an artifact written by WriteSpoolArtifact.
func LoadSpoolArtifact(path string) (*SpoolArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool artifact %s: %w", path, err)
	}
	defer gz.Close()

	var artifact SpoolArtifact
	if err := json.NewDecoder(gz).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("failed to decode spool artifact %s: %w", path, err)
	}
	if artifact.Version != spoolVersion {
		return nil, fmt.Errorf("unsupported spool artifact version %d", artifact.Version)
	}
	return &artifact, nil
}
