package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// Artifact file names within a report directory.
const (
	FlaggedCSV   = "flagged_variances.csv"
	GroupsCSV    = "top_group_summary.csv"
	ModelsCSV    = "top_model_summary.csv"
	WeightedPNG  = "weighted_variance.png"
	TopGroupsPNG = "top_groups.png"
	TopModelsPNG = "top_models.png"
)

// Manifest lists the artifacts a WriteAll call produced.
type Manifest struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Sink writes a run's artifacts into a directory: the flagged rows and
// both rollups as CSV, plus charts for any non-empty rollup. Empty
// results still produce header-only CSVs so downstream consumers always
// find the files.
type Sink struct {
	dir string
}

// NewSink creates a sink rooted at dir.
func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

// WriteAll writes every artifact for the result. Thresholds feed the
// reference lines on the weighted variance chart.
func (s *Sink) WriteAll(res *variance.Result, th variance.Thresholds) (*Manifest, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	m := &Manifest{Dir: s.dir}

	if err := s.writeCSV(FlaggedCSV, m, func(f *os.File) error {
		return WriteFlaggedCSV(f, res.Flagged)
	}); err != nil {
		return nil, err
	}
	if err := s.writeCSV(GroupsCSV, m, func(f *os.File) error {
		return WriteGroupSummaryCSV(f, res.TopGroups)
	}); err != nil {
		return nil, err
	}
	if err := s.writeCSV(ModelsCSV, m, func(f *os.File) error {
		return WriteModelSummaryCSV(f, res.TopModels)
	}); err != nil {
		return nil, err
	}

	// Charts are skipped for empty rollups; an empty PNG helps nobody.
	if len(res.TopGroups) > 0 {
		path := filepath.Join(s.dir, WeightedPNG)
		if err := WeightedVarianceChart(res.TopGroups, th.Pct, path); err != nil {
			return nil, fmt.Errorf("write %s: %w", WeightedPNG, err)
		}
		m.Files = append(m.Files, WeightedPNG)

		path = filepath.Join(s.dir, TopGroupsPNG)
		if err := TopGroupsChart(res.TopGroups, path); err != nil {
			return nil, fmt.Errorf("write %s: %w", TopGroupsPNG, err)
		}
		m.Files = append(m.Files, TopGroupsPNG)
	}
	if len(res.TopModels) > 0 {
		path := filepath.Join(s.dir, TopModelsPNG)
		if err := TopModelsChart(res.TopModels, path); err != nil {
			return nil, fmt.Errorf("write %s: %w", TopModelsPNG, err)
		}
		m.Files = append(m.Files, TopModelsPNG)
	}

	log.Printf("report: run %s wrote %d artifacts to %s", res.RunID, len(m.Files), s.dir)
	return m, nil
}

func (s *Sink) writeCSV(name string, m *Manifest, write func(*os.File) error) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	m.Files = append(m.Files, name)
	return nil
}
