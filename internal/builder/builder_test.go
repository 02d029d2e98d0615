package builder

import (
	"bytes"
	"strings"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/nilmeval-cli/internal/accuracy"
	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

func testSet(t *testing.T, folds int) *sshmm.Set {
	t.Helper()
	recs := make([]sshmm.Record, folds)
	for i := range recs {
		recs[i] = sshmm.Record{
			Labels:    []string{"fridge", "heater"},
			Precision: 0.1,
			Bins: []sshmm.LabelBins{
				{Label: "fridge", Edges: []float64{65}, Peaks: []float64{50, 80}},
				{Label: "heater", Edges: []float64{60, 400}, Peaks: []float64{0, 70, 2000}},
			},
			Sigma: 12.5,
		}
	}
	set, err := sshmm.NewSet(recs)
	require.NoError(t, err)
	return set
}

func props(c *cdx.Component) map[string]string {
	out := map[string]string{}
	if c.Properties == nil {
		return out
	}
	for _, p := range *c.Properties {
		out[p.Name] = p.Value
	}
	return out
}

func TestBuild_ModelCard(t *testing.T) {
	opts := DefaultOptions()
	opts.ToolVersion = "v1.2.3"
	bom, err := NewBOMBuilder(opts).Build(BuildContext{
		ModelPath: "/models/house1.json",
		Models:    testSet(t, 3),
		Dataset:   "data/house1.csv",
	})
	require.NoError(t, err)

	comp := bom.Metadata.Component
	require.NotNil(t, comp)
	assert.Equal(t, "house1", comp.Name)
	assert.Equal(t, "model:house1", comp.BOMRef)
	assert.Equal(t, cdx.ComponentTypeMachineLearningModel, comp.Type)
	assert.True(t, strings.HasPrefix(bom.SerialNumber, "urn:uuid:"))
	assert.NotEmpty(t, bom.Metadata.Timestamp)

	mp := comp.ModelCard.ModelParameters
	require.NotNil(t, mp)
	assert.Equal(t, Task, mp.Task)
	assert.Equal(t, ArchitectureFamily, mp.ArchitectureFamily)
	require.NotNil(t, mp.Datasets)
	assert.Equal(t, "dataset:house1", (*mp.Datasets)[0].Ref)

	p := props(comp)
	assert.Equal(t, "fridge,heater", p["nilm:labels"])
	assert.Equal(t, "3", p["nilm:folds"])
	assert.Equal(t, "6", p["nilm:superStates"])
	assert.Equal(t, "0.1", p["nilm:precision"])
	assert.Equal(t, "12.5", p["nilm:sigma"])
	assert.Equal(t, "false", p["nilm:transitions"])
	assert.Equal(t, "0,70,2000", p["nilm:bins:heater"])

	tools := *bom.Metadata.Tools.Components
	require.Len(t, tools, 1)
	assert.Equal(t, DefaultToolName, tools[0].Name)
	assert.Equal(t, "v1.2.3", tools[0].Version)

	require.NotNil(t, bom.Components)
	assert.Equal(t, cdx.ComponentTypeData, (*bom.Components)[0].Type)
	deps := *bom.Dependencies
	require.Len(t, deps, 2)
	assert.Equal(t, "model:house1", deps[0].Ref)
	assert.Equal(t, []string{"dataset:house1"}, *deps[0].Dependencies)
}

func TestBuild_WithoutDatasetOrBins(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeBinProperties = false
	bom, err := NewBOMBuilder(opts).Build(BuildContext{Name: "custom", Models: testSet(t, 1)})
	require.NoError(t, err)

	comp := bom.Metadata.Component
	assert.Equal(t, "custom", comp.Name)
	assert.Nil(t, comp.ModelCard.ModelParameters.Datasets)
	assert.Nil(t, bom.Components)
	_, ok := props(comp)["nilm:bins:fridge"]
	assert.False(t, ok)
	require.Len(t, *bom.Dependencies, 1)
	assert.Nil(t, (*bom.Dependencies)[0].Dependencies)
}

func TestBuild_NoModel(t *testing.T) {
	_, err := NewBOMBuilder(DefaultOptions()).Build(BuildContext{Name: "x"})
	assert.True(t, apperr.IsConfig(err))
}

func TestAddMetaTools_Idempotent(t *testing.T) {
	bom := cdx.NewBOM()
	require.NoError(t, AddMetaTools(bom, "", ""))
	require.NoError(t, AddMetaTools(bom, "", ""))
	tools := *bom.Metadata.Tools.Components
	require.Len(t, tools, 1)
	assert.Equal(t, DefaultToolVersion, tools[0].Version)
	assert.Equal(t, DefaultToolVendor, tools[0].Manufacturer.Name)
}

func TestAddMeta_KeepsExisting(t *testing.T) {
	bom := cdx.NewBOM()
	bom.SerialNumber = "urn:uuid:fixed"
	bom.Metadata = &cdx.Metadata{Timestamp: "2020-01-01T00:00:00Z"}
	require.NoError(t, AddMetaSerialNumber(bom))
	require.NoError(t, AddMetaTimestamp(bom))
	assert.Equal(t, "urn:uuid:fixed", bom.SerialNumber)
	assert.Equal(t, "2020-01-01T00:00:00Z", bom.Metadata.Timestamp)
}

func TestAttachPerformance(t *testing.T) {
	bom, err := NewBOMBuilder(DefaultOptions()).Build(BuildContext{Name: "m", Models: testSet(t, 2)})
	require.NoError(t, err)

	sum := evaluator.Summary{
		Algorithm: "forward",
		FSFscore:  0.9,
		EstAcc:    0.85,
		Folds: []evaluator.FoldSummary{
			{
				Fold: 0, HasTruth: true,
				Metrics: accuracy.Metrics{FSFscore: 0.8, EstAcc: 0.75},
				Labels:  []accuracy.LabelMetrics{{Label: "fridge", FSFscore: 1, EstAcc: 0.5, RMSE: 3}},
			},
			{Fold: 1},
		},
	}
	require.NoError(t, AttachPerformance(bom, sum))

	metrics := *bom.Metadata.Component.ModelCard.QuantitativeAnalysis.PerformanceMetrics
	require.Len(t, metrics, 7)
	assert.Equal(t, cdx.MLPerformanceMetric{Type: MetricFSFscore, Value: "0.9000", Slice: "algorithm=forward"}, metrics[0])
	assert.Equal(t, "algorithm=forward,fold=0", metrics[2].Slice)
	assert.Equal(t, MetricRMSE, metrics[6].Type)
	assert.Equal(t, "algorithm=forward,fold=0,label=fridge", metrics[6].Slice)

	assert.Equal(t, "forward", props(bom.Metadata.Component)["nilm:algorithm"])

	// attaching again replaces rather than appends
	require.NoError(t, AttachPerformance(bom, evaluator.Summary{Algorithm: "nearest"}))
	metrics = *bom.Metadata.Component.ModelCard.QuantitativeAnalysis.PerformanceMetrics
	assert.Len(t, metrics, 2)
	assert.Equal(t, "nearest", props(bom.Metadata.Component)["nilm:algorithm"])
}

func TestAttachPerformance_NoComponent(t *testing.T) {
	assert.True(t, apperr.IsConfig(AttachPerformance(cdx.NewBOM(), evaluator.Summary{})))
	assert.True(t, apperr.IsConfig(AttachPerformance(nil, evaluator.Summary{})))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(&buf)
	t.Cleanup(func() { SetLogger(nil) })

	_, err := NewBOMBuilder(DefaultOptions()).Build(BuildContext{Name: "logged", Models: testSet(t, 1)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "build ok")
	assert.Contains(t, buf.String(), "logged")
}
