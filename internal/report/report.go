// Package report assembles the probe run into its single JSON report value.
package report

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/DerstedtCasper/NTmusic/internal/probe"
)

// Report is the stable serialized shape of one probe run. It is built once,
// emitted to stdout and optionally to a file, and never mutated after
// emission. Error is set only when module load failed, in which case Tests
// stays empty.
type Report struct {
	Artifact   string         `json:"artifact"`
	ExtractDir string         `json:"extract_dir"`
	Exports    []string       `json:"exports"`
	Tests      []probe.Result `json:"tests"`
	Error      string         `json:"error,omitempty"`
}

// New returns a report skeleton for the located artifact and its working
// directory. Exports and Tests encode as empty arrays, never null.
func New(artifact, extractDir string) *Report {
	return &Report{
		Artifact:   artifact,
		ExtractDir: extractDir,
		Exports:    []string{},
		Tests:      []probe.Result{},
	}
}

// Render serializes the report with two-space indentation and a trailing
// newline. The same bytes go to stdout and to any requested file.
func (r *Report) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the rendered report verbatim to path.
func (r *Report) WriteFile(path string) error {
	data, err := r.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Summary counts results by status for the end-of-run log line.
func (r *Report) Summary() map[probe.Status]int {
	counts := make(map[probe.Status]int)
	for _, t := range r.Tests {
		counts[t.Status]++
	}
	return counts
}

// Worst returns the most severe status among the probe results, or skipped
// when no probe ran.
func (r *Report) Worst() probe.Status {
	worst := probe.StatusSkipped
	for _, t := range r.Tests {
		if t.Status.Severity() > worst.Severity() {
			worst = t.Status
		}
	}
	return worst
}
