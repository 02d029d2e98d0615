// Package io reads and writes the files nilmeval exchanges: trained model
// files (JSON or YAML) and CycloneDX model cards (JSON or XML).
package io

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// resolveFormat normalises a requested format. "" and "auto" pick a format
// from the file extension and fall back to def.
func resolveFormat(path, format, def string, allowed ...string) (string, error) {
	actual := strings.ToLower(strings.TrimSpace(format))
	if actual == "" || actual == "auto" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if ext == "yml" {
			ext = "yaml"
		}
		if slices.Contains(allowed, ext) {
			return ext, nil
		}
		return def, nil
	}
	if !slices.Contains(allowed, actual) {
		return "", fmt.Errorf("unsupported format: %q (want one of %s)", format, strings.Join(allowed, ", "))
	}
	return actual, nil
}
