package recorder

import (
	"io"

	"github.com/idlab-discover/nilmeval-cli/internal/logging"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Recorder:", PrefixColor: ui.FgCyan, Field: "run"}

// SetLogger sets an optional destination for recorder logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(runID string, format string, args ...any) {
	logger.Logf(runID, format, args...)
}
