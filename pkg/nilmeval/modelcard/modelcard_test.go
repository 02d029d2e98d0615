package modelcard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
)

func TestBuildAttachWrite(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "kitchen.yaml")
	require.NoError(t, os.WriteFile(model, []byte(`
labels: [kettle]
bins:
  - label: kettle
    edges: [1000]
    peaks: [0, 2000]
`), 0o644))

	bom, err := Build(model, "")
	require.NoError(t, err)
	assert.Equal(t, "kitchen", bom.Metadata.Component.Name)

	require.NoError(t, AttachScores(bom, evaluator.Summary{Algorithm: "viterbi", FSFscore: 0.5, EstAcc: 0.25}))

	out := filepath.Join(dir, "cards", "kitchen.cdx.json")
	require.NoError(t, Write(bom, out))

	back, err := modelio.ReadBOM(out, "auto")
	require.NoError(t, err)
	metrics := *back.Metadata.Component.ModelCard.QuantitativeAnalysis.PerformanceMetrics
	require.Len(t, metrics, 2)
	assert.Equal(t, "0.5000", metrics[0].Value)
}
