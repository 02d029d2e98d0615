package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

// Logger is a tiny opt-in logger used across internal packages.
// When Writer is nil, logging is disabled.
//
// The output format is:
//
//	<ColoredPrefix> fold=<scope> <formattedMessage>\n
//
// where <scope> is trimmed and defaults to "-". Field renames the key
// ("fold" by default).
type Logger struct {
	Writer io.Writer

	PrefixText  string
	PrefixColor string

	// Field is the key written before the scope value. Defaults to "fold".
	Field string

	// OmitScope controls whether the scope field is written.
	// When false (default), output includes: "fold=<scope>".
	OmitScope bool
}

func (l *Logger) SetWriter(w io.Writer) { l.Writer = w }

func (l *Logger) Enabled() bool { return l != nil && l.Writer != nil }

func (l *Logger) Logf(scope string, format string, args ...any) {
	if l == nil || l.Writer == nil {
		return
	}
	prefix := l.PrefixText
	if prefix == "" {
		prefix = "Log:"
	}
	if l.PrefixColor != "" {
		prefix = ui.Color(prefix, l.PrefixColor)
	}
	msg := fmt.Sprintf(format, args...)
	if l.OmitScope {
		fmt.Fprintf(l.Writer, "%s %s\n", prefix, msg)
		return
	}

	field := l.Field
	if field == "" {
		field = "fold"
	}
	s := strings.TrimSpace(scope)
	if s == "" {
		s = "-"
	}
	fmt.Fprintf(l.Writer, "%s %s=%s %s\n", prefix, field, s, msg)
}
