// Package batch converts SDDS files in bulk from YAML plans.
package batch

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/QJohn2017/rsbeams/sdds"
)

// Job names one input file and how to rewrite it. Empty Mode or Endian
// keeps the input's setting.
type Job struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Mode   string `yaml:"mode,omitempty"`
	Endian string `yaml:"endian,omitempty"`

	// Rows gives the page row count for binary no_row_counts inputs,
	// which do not carry one.
	Rows int `yaml:"rows,omitempty"`
}

// Defaults fills unset Job fields.
type Defaults struct {
	Mode   string `yaml:"mode,omitempty"`
	Endian string `yaml:"endian,omitempty"`
}

// Plan is a batch conversion description, one job per file.
type Plan struct {
	Defaults Defaults `yaml:"defaults"`
	Jobs     []Job    `yaml:"jobs"`
}

// LoadPlan reads a YAML plan, applies the defaults to every job, and
// validates the result.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if len(plan.Jobs) == 0 {
		return nil, fmt.Errorf("plan %s has no jobs", path)
	}
	for i := range plan.Jobs {
		j := &plan.Jobs[i]
		if j.Mode == "" {
			j.Mode = plan.Defaults.Mode
		}
		if j.Endian == "" {
			j.Endian = plan.Defaults.Endian
		}
		if err := j.validate(); err != nil {
			return nil, fmt.Errorf("plan %s job %d: %w", path, i, err)
		}
	}
	return &plan, nil
}

func (j *Job) validate() error {
	if j.Input == "" {
		return errors.New("missing input")
	}
	if j.Output == "" {
		return errors.New("missing output")
	}
	if j.Input == j.Output {
		return errors.New("input and output are the same file")
	}
	if j.Mode != "" {
		if _, err := sdds.ParseMode(j.Mode); err != nil {
			return err
		}
	}
	if j.Endian != "" {
		if _, err := sdds.ParseEndianness(j.Endian); err != nil {
			return err
		}
	}
	if j.Rows < 0 {
		return errors.New("rows must not be negative")
	}
	return nil
}

// targetMode derives the output data mode from the input's, overridden
// by whatever the job sets. no_row_counts and unknown &data keys pass
// through untouched.
func (j *Job) targetMode(cur sdds.DataMode) (sdds.DataMode, error) {
	out := cur
	if j.Mode != "" {
		m, err := sdds.ParseMode(j.Mode)
		if err != nil {
			return sdds.DataMode{}, err
		}
		out.Mode = m
	}
	if j.Endian != "" {
		e, err := sdds.ParseEndianness(j.Endian)
		if err != nil {
			return sdds.DataMode{}, err
		}
		out.Endianness = e
	}
	return out, nil
}
