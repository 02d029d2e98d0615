package builder

import (
	"fmt"
	"strconv"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
)

// Metric type names written to quantitativeAnalysis.performanceMetrics.
const (
	MetricFSFscore = "fs-fscore"
	MetricEstAcc   = "estimation-accuracy"
	MetricRMSE     = "rmse"
)

// AttachPerformance replaces the performance metrics of the model card
// with the scores of an evaluation run: overall, per fold and per label.
func AttachPerformance(bom *cdx.BOM, sum evaluator.Summary) error {
	if bom == nil || bom.Metadata == nil || bom.Metadata.Component == nil {
		return apperr.Config("BOM has no metadata component to attach metrics to")
	}
	comp := bom.Metadata.Component
	if comp.ModelCard == nil {
		comp.ModelCard = &cdx.MLModelCard{}
	}
	if comp.ModelCard.QuantitativeAnalysis == nil {
		comp.ModelCard.QuantitativeAnalysis = &cdx.MLQuantitativeAnalysis{}
	}

	setProperty(comp, propertyPrefix+"algorithm", sum.Algorithm)

	algo := "algorithm=" + sum.Algorithm
	metrics := []cdx.MLPerformanceMetric{
		{Type: MetricFSFscore, Value: format(sum.FSFscore), Slice: algo},
		{Type: MetricEstAcc, Value: format(sum.EstAcc), Slice: algo},
	}
	for _, f := range sum.Folds {
		if !f.HasTruth {
			continue
		}
		slice := fmt.Sprintf("%s,fold=%d", algo, f.Fold)
		metrics = append(metrics,
			cdx.MLPerformanceMetric{Type: MetricFSFscore, Value: format(f.Metrics.FSFscore), Slice: slice},
			cdx.MLPerformanceMetric{Type: MetricEstAcc, Value: format(f.Metrics.EstAcc), Slice: slice},
		)
		for _, l := range f.Labels {
			ls := slice + ",label=" + l.Label
			metrics = append(metrics,
				cdx.MLPerformanceMetric{Type: MetricFSFscore, Value: format(l.FSFscore), Slice: ls},
				cdx.MLPerformanceMetric{Type: MetricEstAcc, Value: format(l.EstAcc), Slice: ls},
				cdx.MLPerformanceMetric{Type: MetricRMSE, Value: format(l.RMSE), Slice: ls},
			)
		}
	}
	comp.ModelCard.QuantitativeAnalysis.PerformanceMetrics = &metrics
	logf(comp.Name, "attached %d performance metrics", len(metrics))
	return nil
}

func format(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
