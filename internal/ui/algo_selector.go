package ui

import (
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
)

// AlgorithmChoice is one entry of the interactive algorithm picker.
type AlgorithmChoice struct {
	Name        string
	Description string
}

func algorithmOptions(choices []AlgorithmChoice) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		label := c.Name
		if c.Description != "" {
			label += Muted.Render("  " + c.Description)
		}
		opts = append(opts, huh.NewOption(label, c.Name))
	}
	return opts
}

// SelectAlgorithm asks the user to pick a disaggregation algorithm,
// preselecting current. Aborting returns apperr.ErrCancelled.
func SelectAlgorithm(choices []AlgorithmChoice, current string) (string, error) {
	if len(choices) == 0 {
		return "", apperr.Config("no algorithms registered")
	}
	selected := current
	field := huh.NewSelect[string]().
		Title("Disaggregation algorithm").
		Description("Strategy used to infer the super-state at each step").
		Options(algorithmOptions(choices)...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", apperr.ErrCancelled
		}
		return "", err
	}
	return selected, nil
}
