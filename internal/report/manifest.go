package report

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Output is one file written by a run.
type Output struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// Manifest lists what a run produced.
type Manifest struct {
	RunID     string           `yaml:"run_id,omitempty"`
	Dir       string           `yaml:"dir"`
	Label     string           `yaml:"label"`
	DryRun    bool             `yaml:"dry_run,omitempty"`
	Started   time.Time        `yaml:"started"`
	Finished  time.Time        `yaml:"finished"`
	Rows      []ManifestRow    `yaml:"rows"`
	Endpoints []string         `yaml:"endpoints,omitempty"`
	Outputs   []Output         `yaml:"outputs,omitempty"`
	Timings   []ManifestTiming `yaml:"timings,omitempty"`
}

// ManifestRow is a row of the count table. Count is omitted when unknown.
type ManifestRow struct {
	Tract     string   `yaml:"tract"`
	Variant   string   `yaml:"variant"`
	File      string   `yaml:"file"`
	Count     *int     `yaml:"count,omitempty"`
	Retention *float64 `yaml:"retention,omitempty"`
	Note      string   `yaml:"note,omitempty"`
}

// ManifestTiming is a step timing.
type ManifestTiming struct {
	Step    string `yaml:"step"`
	Items   int64  `yaml:"items"`
	Average string `yaml:"average"`
	Total   string `yaml:"total"`
}

// NewManifest describes d and the files written for it.
func NewManifest(d *Data, outputs []Output) *Manifest {
	m := &Manifest{
		RunID:     d.RunID,
		Dir:       d.Dir,
		Label:     d.Label,
		DryRun:    d.DryRun,
		Started:   d.Started,
		Finished:  d.Finished,
		Rows:      make([]ManifestRow, 0, len(d.Rows)),
		Endpoints: d.Endpoints,
		Outputs:   outputs,
	}

	for i, row := range d.Rows {
		mr := ManifestRow{
			Tract:   row.Tract,
			Variant: row.Variant,
			File:    row.File,
			Count:   row.Count,
			Note:    row.Note,
		}

		if ratio, ok := d.Retention(i); ok {
			mr.Retention = &ratio
		}

		m.Rows = append(m.Rows, mr)
	}

	for _, timing := range d.Timings {
		m.Timings = append(m.Timings, ManifestTiming{
			Step:    timing.Step,
			Items:   timing.Items,
			Average: timing.Average.String(),
			Total:   timing.Total.String(),
		})
	}

	return m
}

// WriteManifest writes the manifest as YAML.
func WriteManifest(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(m); err != nil {
		return errors.Wrap(err, "unable to encode manifest")
	}

	return errors.Wrap(enc.Close(), "unable to close manifest encoder")
}

// SaveManifest writes the manifest of d and outputs to path.
func SaveManifest(path string, d *Data, outputs []Output) error {
	return Save(path, d, func(w io.Writer, d *Data) error {
		return WriteManifest(w, NewManifest(d, outputs))
	})
}
