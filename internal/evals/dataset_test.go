package evals

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset(filepath.Join("testdata", "dataset.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "oscorp_policies_validation_set", ds.Name)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Where must travelers check in?", ds.Rows[0].Inputs.Question)
	assert.Equal(t, "At the front desk", ds.Rows[0].Expectations.ExpectedResponse)
	assert.Equal(t, "travel_policy_12", ds.Rows[0].Expectations.ExpectedDocument)
}

func TestLoadDatasetValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no_cases", body: "name: empty_set\ncases: []\n"},
		{name: "missing_name", body: "cases:\n  - inputs:\n      question: q\n"},
		{name: "missing_question", body: "name: s\ncases:\n  - expectations:\n      expected_response: r\n"},
		{name: "invalid_yaml", body: "{:::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ds.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := LoadDataset(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
