package stream

import (
	"io"

	"github.com/idlab-discover/nilmeval-cli/internal/logging"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Stream:", PrefixColor: ui.FgYellow, Field: "source"}

// SetLogger sets an optional destination for stream logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(source string, format string, args ...any) {
	logger.Logf(source, format, args...)
}
