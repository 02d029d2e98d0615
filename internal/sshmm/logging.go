package sshmm

import (
	"io"

	"github.com/idlab-discover/nilmeval-cli/internal/logging"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Model:", PrefixColor: ui.FgMagenta}

// SetLogger sets an optional destination for model loading logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(fold string, format string, args ...any) {
	logger.Logf(fold, format, args...)
}
