package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
)

// ReadModel reads the fold records of a trained model. The format can be
// "json", "yaml" or "auto" (by extension, JSON otherwise). A file holding a
// single object instead of a list is read as a one-fold model.
func ReadModel(path string, format string) ([]sshmm.Record, error) {
	actual, err := resolveFormat(path, format, "json", "json", "yaml")
	if err != nil {
		return nil, apperr.Config(err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperr.Configf("model file %s is empty", path)
	}

	var recs []sshmm.Record
	if actual == "yaml" {
		recs, err = decodeYAML(data)
	} else {
		recs, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, apperr.Configf("model file %s holds no folds", path)
	}
	return recs, nil
}

// LoadModel reads a model file and builds every fold.
func LoadModel(path string, format string) (*sshmm.Set, error) {
	recs, err := ReadModel(path, format)
	if err != nil {
		return nil, err
	}
	return sshmm.NewSet(recs)
}

func decodeJSON(data []byte) ([]sshmm.Record, error) {
	if data[0] == '{' {
		var one sshmm.Record
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []sshmm.Record{one}, nil
	}
	var recs []sshmm.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func decodeYAML(data []byte) ([]sshmm.Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.MappingNode {
		var one sshmm.Record
		if err := root.Decode(&one); err != nil {
			return nil, err
		}
		return []sshmm.Record{one}, nil
	}
	var recs []sshmm.Record
	if err := root.Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// WriteModel writes fold records as a list, in JSON or YAML.
func WriteModel(recs []sshmm.Record, outputPath string, format string) error {
	actual, err := resolveFormat(outputPath, format, "json", "json", "yaml")
	if err != nil {
		return apperr.Config(err.Error())
	}

	var data []byte
	if actual == "yaml" {
		data, err = yaml.Marshal(recs)
	} else {
		data, err = json.MarshalIndent(recs, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}
