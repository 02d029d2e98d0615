package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

const modelJSON = `[{
  "labels": ["fridge", "heater"],
  "bins": [
    {"label": "fridge", "edges": [65], "peaks": [50, 80]},
    {"label": "heater", "edges": [60], "peaks": [50, 70]}
  ]
}]`

const datasetCSV = `time,aggregate,fridge,heater
0,100,50,50
1,150,80,70
2,150,80,70
`

func writeFiles(t *testing.T) (model, data string) {
	t.Helper()
	dir := t.TempDir()
	model = filepath.Join(dir, "model.json")
	data = filepath.Join(dir, "house.csv")
	require.NoError(t, os.WriteFile(model, []byte(modelJSON), 0o644))
	require.NoError(t, os.WriteFile(data, []byte(datasetCSV), 0o644))
	return model, data
}

func TestEvaluate(t *testing.T) {
	model, data := writeFiles(t)

	var steps []StepRecord
	sum, err := Evaluate(context.Background(), model, data, EvaluateOptions{OnStep: func(r StepRecord) { steps = append(steps, r) }})
	require.NoError(t, err)

	assert.Equal(t, "forward", sum.Algorithm)
	assert.Len(t, steps, 2)
	assert.Equal(t, 2, steps[0].SCP)
	assert.Equal(t, 0, steps[1].SCP)
	assert.Equal(t, 1.0, sum.FSFscore)
	assert.Equal(t, 1.0, sum.EstAcc)
}

func TestEvaluate_Errors(t *testing.T) {
	model, data := writeFiles(t)
	ctx := context.Background()

	_, err := Evaluate(ctx, model, data, EvaluateOptions{Algorithm: "bogus"})
	assert.True(t, apperr.IsConfig(err))

	_, err = Evaluate(ctx, model, data, EvaluateOptions{Window: "weekly"})
	assert.True(t, apperr.IsConfig(err))

	_, err = Evaluate(ctx, filepath.Join(t.TempDir(), "missing.json"), data, EvaluateOptions{})
	assert.Error(t, err)
}

func TestAlgorithms(t *testing.T) {
	assert.Subset(t, Algorithms(), []string{"forward", "nearest", "viterbi"})
}
