package evals

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oscorp/policy-agent/internal/scoring"
)

// Inputs is the input side of one dataset row.
type Inputs struct {
	Question string `yaml:"question" json:"question"`
}

// Row pairs a question with its reference expectations.
type Row struct {
	Inputs       Inputs              `yaml:"inputs" json:"inputs"`
	Expectations scoring.Expectation `yaml:"expectations" json:"expectations"`
}

// Dataset is an ordered evaluation dataset.
type Dataset struct {
	Version int    `yaml:"version" json:"version"`
	Name    string `yaml:"name" json:"name"`
	Rows    []Row  `yaml:"cases" json:"cases"`
}

// LoadDataset reads a YAML dataset from disk.
func LoadDataset(path string) (*Dataset, error) {
	if path == "" {
		return nil, fmt.Errorf("dataset path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if ds.Name == "" {
		return nil, fmt.Errorf("dataset missing name")
	}
	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("dataset has no cases")
	}
	for i, row := range ds.Rows {
		if row.Inputs.Question == "" {
			return nil, fmt.Errorf("dataset case %d missing question", i)
		}
	}
	return &ds, nil
}
