package batch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePlanFile(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func TestLoadPlanAppliesDefaults(t *testing.T) {
	path := writePlanFile(t, `
defaults:
  mode: binary
  endian: little
jobs:
  - input: a.sdds
    output: a.bin.sdds
  - input: b.sdds
    output: b.txt.sdds
    mode: ascii
    rows: 128
`)
	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan error: %v", err)
	}
	if len(plan.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(plan.Jobs))
	}
	if j := plan.Jobs[0]; j.Mode != "binary" || j.Endian != "little" {
		t.Errorf("job 0 = %+v, want defaults applied", j)
	}
	if j := plan.Jobs[1]; j.Mode != "ascii" || j.Endian != "little" || j.Rows != 128 {
		t.Errorf("job 1 = %+v, want explicit mode kept", j)
	}
}

func TestLoadPlanErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no jobs", "defaults:\n  mode: ascii\n", "no jobs"},
		{"missing input", "jobs:\n  - output: x\n", "missing input"},
		{"missing output", "jobs:\n  - input: x\n", "missing output"},
		{"same file", "jobs:\n  - input: x\n    output: x\n", "same file"},
		{"bad mode", "jobs:\n  - input: x\n    output: y\n    mode: fortran\n", "fortran"},
		{"bad endian", "jobs:\n  - input: x\n    output: y\n    endian: middle\n", "middle"},
		{"negative rows", "jobs:\n  - input: x\n    output: y\n    rows: -1\n", "rows"},
		{"malformed yaml", "jobs: [\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPlan(writePlanFile(t, tt.text))
			if err == nil {
				t.Fatal("LoadPlan succeeded")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadPlanMissingFile(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadPlan error = %v, want wrapped os.ErrNotExist", err)
	}
}
