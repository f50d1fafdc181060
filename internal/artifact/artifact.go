// Package artifact persists phase snapshots so interrupted runs can
// resume without repeating paid API calls. Each snapshot is written
// atomically (temp file + rename) and then marked complete with a
// separate .done file; readers only trust marked files.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

const (
	doneSuffix    = ".done"
	timestampFmt  = "20060102_150405"
	dirPerm       = 0o755
	filePerm      = 0o644
)

// phasePrefix orders artifact files by pipeline stage in directory
// listings.
var phasePrefix = map[model.Phase]string{
	model.PhaseSearch:     "01_search",
	model.PhaseEnrich:     "02_enriched",
	model.PhaseSynthesize: "03_final",
}

const reportPrefix = "report"

// Dir manages one output directory of run artifacts.
type Dir struct {
	path string
}

// NewDir creates the output directory if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return nil, eris.Wrapf(err, "artifact: create dir %s", path)
	}
	return &Dir{path: path}, nil
}

// Path returns the managed directory.
func (d *Dir) Path() string {
	return d.path
}

// WritePhase snapshots a phase's output under the run timestamp and marks
// it complete. Returns the written file path.
func (d *Dir) WritePhase(phase model.Phase, runTS time.Time, v any) (string, error) {
	prefix, ok := phasePrefix[phase]
	if !ok {
		return "", eris.Errorf("artifact: phase %s has no snapshot", phase)
	}
	return d.write(prefix, runTS, v)
}

// WriteReport snapshots the run report.
func (d *Dir) WriteReport(runTS time.Time, v any) (string, error) {
	return d.write(reportPrefix, runTS, v)
}

func (d *Dir) write(prefix string, runTS time.Time, v any) (string, error) {
	name := prefix + "_" + runTS.Format(timestampFmt) + ".json"
	path := filepath.Join(d.path, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "artifact: marshal %s", name)
	}

	// Write to a temp file in the same directory so the rename is atomic.
	tmp, err := os.CreateTemp(d.path, name+".tmp-*")
	if err != nil {
		return "", eris.Wrapf(err, "artifact: create temp for %s", name)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return "", eris.Wrapf(err, "artifact: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return "", eris.Wrapf(err, "artifact: close %s", name)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return "", eris.Wrapf(err, "artifact: rename %s", name)
	}

	// The marker is written last. A data file without one is a partial
	// write from a crashed run and must be ignored.
	if err := os.WriteFile(path+doneSuffix, nil, filePerm); err != nil {
		return "", eris.Wrapf(err, "artifact: write marker for %s", name)
	}

	zap.L().Info("artifact: wrote snapshot",
		zap.String("file", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

// LatestCompleted returns the newest completed snapshot for a phase, or
// ("", false) when none exists. Files without a .done marker are skipped.
func (d *Dir) LatestCompleted(phase model.Phase) (string, bool) {
	prefix, ok := phasePrefix[phase]
	if !ok {
		return "", false
	}
	return d.latestWithPrefix(prefix)
}

// LatestReport returns the newest completed report artifact.
func (d *Dir) LatestReport() (string, bool) {
	return d.latestWithPrefix(reportPrefix)
}

func (d *Dir) latestWithPrefix(prefix string) (string, bool) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return "", false
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.path, name+doneSuffix)); err != nil {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", false
	}

	// Timestamped names sort lexicographically in time order.
	sort.Strings(names)
	return filepath.Join(d.path, names[len(names)-1]), true
}

// Load reads a snapshot file into v.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "artifact: unmarshal %s", path)
	}
	return nil
}
