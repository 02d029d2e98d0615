package builder

import (
	"path/filepath"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

type BOMBuilder struct {
	Opts Options
	Card ModelCardBuilder
}

func NewBOMBuilder(opts Options) *BOMBuilder {
	return &BOMBuilder{Opts: opts, Card: ModelCardBuilder{Opts: opts}}
}

// Build creates a CycloneDX ML-BOM whose metadata component is the trained
// model.
func (b BOMBuilder) Build(ctx BuildContext) (*cdx.BOM, error) {
	if ctx.Models == nil {
		return nil, apperr.Config("model card needs a loaded model")
	}
	name := componentName(ctx)
	logf(name, "build start (folds=%d)", ctx.Models.Len())

	card, err := b.Card.Build(ctx)
	if err != nil {
		return nil, err
	}
	comp := &cdx.Component{
		BOMRef:      "model:" + name,
		Type:        cdx.ComponentTypeMachineLearningModel,
		Name:        name,
		Description: "Super-state hidden Markov model for non-intrusive load monitoring",
		ModelCard:   card,
	}
	b.Card.AddProperties(comp, ctx)

	bom := cdx.NewBOM()
	bom.Metadata = &cdx.Metadata{Component: comp}
	if err := AddMetaSerialNumber(bom); err != nil {
		return nil, err
	}
	if err := AddMetaTimestamp(bom); err != nil {
		return nil, err
	}
	if err := AddMetaTools(bom, b.Opts.ToolName, b.Opts.ToolVersion); err != nil {
		return nil, err
	}

	if ds := strings.TrimSpace(ctx.Dataset); ds != "" {
		bom.Components = &[]cdx.Component{buildDatasetComponent(ds)}
	}
	AddDependencies(bom)

	logf(name, "build ok")
	return bom, nil
}

func componentName(ctx BuildContext) string {
	name := strings.TrimSpace(ctx.Name)
	if name == "" && ctx.ModelPath != "" {
		base := filepath.Base(ctx.ModelPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name == "" {
		name = "sshmm"
	}
	return name
}

func buildDatasetComponent(path string) cdx.Component {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return cdx.Component{
		BOMRef: datasetRef(name),
		Type:   cdx.ComponentTypeData,
		Name:   name,
	}
}

func datasetRef(name string) string { return "dataset:" + name }
