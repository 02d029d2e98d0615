package builder

import (
	"fmt"
	"strconv"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

const (
	Task               = "energy-disaggregation"
	ArchitectureFamily = "hidden-markov-model"
	ModelArchitecture  = "super-state-hmm"

	propertyPrefix = "nilm:"
)

type ModelCardBuilder struct {
	Opts Options
}

func (b ModelCardBuilder) Build(ctx BuildContext) (*cdx.MLModelCard, error) {
	name := componentName(ctx)
	logf(name, "model card start")

	mp := &cdx.MLModelParameters{
		Task:               Task,
		ArchitectureFamily: ArchitectureFamily,
		ModelArchitecture:  ModelArchitecture,
	}
	if ds := strings.TrimSpace(ctx.Dataset); ds != "" {
		mp.Datasets = &[]cdx.MLDatasetChoice{{Ref: buildDatasetComponent(ds).BOMRef}}
	}

	logf(name, "model card ok")
	return &cdx.MLModelCard{ModelParameters: mp}, nil
}

// AddProperties describes the model structure as component properties.
func (b ModelCardBuilder) AddProperties(c *cdx.Component, ctx BuildContext) {
	first, err := ctx.Models.Fold(0)
	if err != nil {
		return
	}
	setProperty(c, propertyPrefix+"labels", strings.Join(first.Labels(), ","))
	setProperty(c, propertyPrefix+"folds", strconv.Itoa(ctx.Models.Len()))
	setProperty(c, propertyPrefix+"superStates", strconv.Itoa(first.SuperStates()))
	if p := first.Precision(); p != 0 {
		setProperty(c, propertyPrefix+"precision", strconv.FormatFloat(p, 'g', -1, 64))
	}
	setProperty(c, propertyPrefix+"sigma", strconv.FormatFloat(first.Sigma(), 'g', 6, 64))
	setProperty(c, propertyPrefix+"transitions", strconv.FormatBool(first.HasTransitions()))

	if !b.Opts.IncludeBinProperties {
		return
	}
	for i, label := range first.Labels() {
		peaks := first.Peaks(i)
		parts := make([]string, len(peaks))
		for j, p := range peaks {
			parts[j] = strconv.FormatFloat(p, 'g', -1, 64)
		}
		setProperty(c, fmt.Sprintf("%sbins:%s", propertyPrefix, label), strings.Join(parts, ","))
	}
}

func setProperty(c *cdx.Component, name, value string) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if c == nil || name == "" || value == "" {
		return
	}
	if c.Properties == nil {
		c.Properties = &[]cdx.Property{}
	}
	for i := range *c.Properties {
		if (*c.Properties)[i].Name == name {
			(*c.Properties)[i].Value = value
			return
		}
	}
	*c.Properties = append(*c.Properties, cdx.Property{Name: name, Value: value})
}
