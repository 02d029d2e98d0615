// Package modelcard builds CycloneDX model cards for trained models.
package modelcard

import (
	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/idlab-discover/nilmeval-cli/internal/builder"
	"github.com/idlab-discover/nilmeval-cli/internal/evaluator"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
)

// Build reads the model at modelPath and returns its model card. dataset
// may be empty.
func Build(modelPath, dataset string) (*cdx.BOM, error) {
	models, err := modelio.LoadModel(modelPath, "auto")
	if err != nil {
		return nil, err
	}
	return builder.NewBOMBuilder(builder.DefaultOptions()).Build(builder.BuildContext{
		ModelPath: modelPath,
		Models:    models,
		Dataset:   dataset,
	})
}

// AttachScores records an evaluation's FS-fscore and estimation accuracy
// on a model card.
func AttachScores(bom *cdx.BOM, sum evaluator.Summary) error {
	return builder.AttachPerformance(bom, sum)
}

// Write encodes the card to path (json or xml by extension).
func Write(bom *cdx.BOM, path string) error {
	return modelio.WriteBOM(bom, path, "auto", "")
}
