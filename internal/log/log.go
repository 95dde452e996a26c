package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with module. Pretty output goes to a
// console writer, otherwise lines are JSON.
func New(module string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, module, pretty)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(w io.Writer, module string, pretty bool) zerolog.Logger {
	if pretty {
		out := zerolog.ConsoleWriter{
			Out:           w,
			TimeFormat:    "15:04:05",
			PartsOrder:    []string{"time", "level", "module", "message"},
			FieldsExclude: []string{"module"},
		}
		out.FormatPartValueByName = func(i any, s string) string {
			if s == "module" && i != nil {
				return strings.ToUpper(fmt.Sprintf("%s", i))
			}
			return ""
		}
		w = out
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Str("module", module).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
