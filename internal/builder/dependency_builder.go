package builder

import cdx "github.com/CycloneDX/cyclonedx-go"

// AddDependencies records that the model (metadata component) depends on
// every DATA component of the BOM. Each dataset gets its own empty entry.
func AddDependencies(bom *cdx.BOM) {
	if bom == nil || bom.Metadata == nil || bom.Metadata.Component == nil {
		return
	}
	modelRef := bom.Metadata.Component.BOMRef
	if modelRef == "" {
		return
	}

	var datasetRefs []string
	if bom.Components != nil {
		for _, comp := range *bom.Components {
			if comp.Type == cdx.ComponentTypeData && comp.BOMRef != "" {
				datasetRefs = append(datasetRefs, comp.BOMRef)
			}
		}
	}

	deps := make([]cdx.Dependency, 0, 1+len(datasetRefs))
	modelDep := cdx.Dependency{Ref: modelRef}
	if len(datasetRefs) > 0 {
		refs := append([]string(nil), datasetRefs...)
		modelDep.Dependencies = &refs
	}
	deps = append(deps, modelDep)
	for _, ds := range datasetRefs {
		deps = append(deps, cdx.Dependency{Ref: ds})
	}
	bom.Dependencies = &deps
}
