package builder

import (
	"io"

	"github.com/idlab-discover/nilmeval-cli/internal/logging"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Build:", PrefixColor: ui.FgGreen, Field: "model"}

// SetLogger sets an optional destination for builder logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(model string, format string, args ...any) {
	logger.Logf(model, format, args...)
}
