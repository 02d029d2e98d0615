package builder

import "github.com/idlab-discover/nilmeval-cli/internal/sshmm"

// BuildContext is everything the model card is built from.
type BuildContext struct {
	// Name of the model component; defaults to the model file stem.
	Name      string
	ModelPath string
	Models    *sshmm.Set
	// Dataset names the evaluation dataset, if any; it becomes a DATA
	// component the model depends on.
	Dataset string
}

type Options struct {
	// IncludeBinProperties adds one property per label with its bin peaks.
	IncludeBinProperties bool
	ToolName             string
	ToolVersion          string
}

func DefaultOptions() Options {
	return Options{
		IncludeBinProperties: true,
		ToolName:             DefaultToolName,
		ToolVersion:          GetVersion(),
	}
}
