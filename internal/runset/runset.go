package runset

import (
	"iter"
	"os"
	"path/filepath"

	"netsim-consolidate/internal/config"
)

// Run is one completed simulation whose directory exists on disk.
type Run struct {
	ID  int
	Dir string
}

// Path resolves a per-run input file.
func (r Run) Path(file string) string {
	return filepath.Join(r.Dir, file)
}

// RunSet enumerates run ids 0..size-1 of a batch.
type RunSet struct {
	size    int
	resolve func(id int) string
}

func New(cfg *config.ConsolidateConfig) *RunSet {
	return &RunSet{
		size:    cfg.Runs,
		resolve: cfg.RunDir,
	}
}

func (rs *RunSet) Size() int {
	return rs.size
}

// Runs yields every run whose directory is present, in id order. Missing
// directories are skipped silently. The sequence is lazy and can be ranged
// over more than once; each pass re-checks the filesystem.
func (rs *RunSet) Runs() iter.Seq[Run] {
	return func(yield func(Run) bool) {
		for id := 0; id < rs.size; id++ {
			dir := rs.resolve(id)
			if !isDir(dir) {
				continue
			}
			if !yield(Run{ID: id, Dir: dir}) {
				return
			}
		}
	}
}

// Missing lists the ids whose directory is absent, in id order.
func (rs *RunSet) Missing() []int {
	missing := []int{}
	for id := 0; id < rs.size; id++ {
		if !isDir(rs.resolve(id)) {
			missing = append(missing, id)
		}
	}
	return missing
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
