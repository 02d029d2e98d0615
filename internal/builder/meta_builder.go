package builder

import (
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

// AddMetaSerialNumber sets a serial number if not already set.
func AddMetaSerialNumber(bom *cdx.BOM) error {
	if bom.SerialNumber == "" {
		bom.SerialNumber = "urn:uuid:" + uuid.New().String()
	}
	return nil
}

// AddMetaTimestamp sets the timestamp if not already set.
func AddMetaTimestamp(bom *cdx.BOM) error {
	if bom.Metadata == nil {
		bom.Metadata = &cdx.Metadata{}
	}
	if bom.Metadata.Timestamp == "" {
		bom.Metadata.Timestamp = time.Now().Format(time.RFC3339)
	}
	return nil
}

const (
	DefaultToolVendor  = "idlab-discover"
	DefaultToolName    = "nilmeval"
	DefaultToolVersion = "v0.0.0"
)

// AddMetaTools records nilmeval in bom.metadata.tools.components, once.
func AddMetaTools(bom *cdx.BOM, toolName string, toolVersion string) error {
	if bom.Metadata == nil {
		bom.Metadata = &cdx.Metadata{}
	}
	if bom.Metadata.Tools == nil {
		bom.Metadata.Tools = &cdx.ToolsChoice{}
	}
	if toolName == "" {
		toolName = DefaultToolName
	}
	if toolVersion == "" {
		toolVersion = DefaultToolVersion
	}

	if bom.Metadata.Tools.Components == nil {
		bom.Metadata.Tools.Components = &[]cdx.Component{}
	}
	for _, c := range *bom.Metadata.Tools.Components {
		if c.Name == toolName && c.Version == toolVersion {
			return nil
		}
	}
	*bom.Metadata.Tools.Components = append(*bom.Metadata.Tools.Components, cdx.Component{
		Type:         cdx.ComponentTypeApplication,
		Manufacturer: &cdx.OrganizationalEntity{Name: DefaultToolVendor},
		Name:         toolName,
		Version:      toolVersion,
	})
	return nil
}
