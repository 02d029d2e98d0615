package evaluator

import (
	"io"
	"strconv"

	"github.com/idlab-discover/nilmeval-cli/internal/logging"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Evaluator:", PrefixColor: ui.FgGreen}

// SetLogger sets an optional destination for evaluation logs.
// When set to nil, logging is disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(fold int, format string, args ...any) {
	scope := "-"
	if fold >= 0 {
		scope = strconv.Itoa(fold)
	}
	logger.Logf(scope, format, args...)
}
