package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

func bomFileFormat(actual string) cdx.BOMFileFormat {
	if actual == "xml" {
		return cdx.BOMFileFormatXML
	}
	return cdx.BOMFileFormatJSON
}

// ReadBOM reads a model card (JSON or XML). The format parameter can be
// "json", "xml", or "auto" (default, by extension, JSON otherwise).
func ReadBOM(path string, format string) (*cdx.BOM, error) {
	actual, err := resolveFormat(path, format, "json", "json", "xml")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(f, bomFileFormat(actual)).Decode(bom); err != nil {
		return nil, fmt.Errorf("decode BOM %s: %w", path, err)
	}
	return bom, nil
}

// WriteBOM writes a model card. The extension of outputPath must match the
// format. A non-empty spec encodes with that CycloneDX version. Missing
// parent directories are created.
func WriteBOM(bom *cdx.BOM, outputPath string, format string, spec string) error {
	actual, err := resolveFormat(outputPath, format, "json", "json", "xml")
	if err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(outputPath)); ext != "."+actual {
		return fmt.Errorf("output path extension %q does not match format %q", ext, actual)
	}

	var sv cdx.SpecVersion
	if spec != "" {
		var ok bool
		if sv, ok = ParseSpecVersion(spec); !ok {
			return fmt.Errorf("unsupported CycloneDX spec version: %q", spec)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := cdx.NewBOMEncoder(f, bomFileFormat(actual))
	enc.SetPretty(true)
	if spec == "" {
		return enc.Encode(bom)
	}
	return enc.EncodeVersion(bom, sv)
}

// ParseSpecVersion parses a spec version string to a CycloneDX SpecVersion.
// Model cards need the ML-BOM fields introduced in 1.5.
func ParseSpecVersion(s string) (cdx.SpecVersion, bool) {
	switch strings.TrimSpace(s) {
	case "1.5":
		return cdx.SpecVersion1_5, true
	case "1.6":
		return cdx.SpecVersion1_6, true
	default:
		return cdx.SpecVersion1_6, false
	}
}
