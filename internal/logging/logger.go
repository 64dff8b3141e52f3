// Package logging provides the shared logger used by all internal packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// L is the global logger. It writes human-readable console output when
// stderr is a terminal, and JSON otherwise.
var L = newLogger(os.Stderr)

func newLogger(w io.Writer) zerolog.Logger {
	if isTerminal() {
		w = zerolog.ConsoleWriter{
			Out:         w,
			TimeFormat:  time.Kitchen,
			FormatLevel: consoleFormatLevel,
		}
	}

	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// SetLevel sets the level of the global logger from a string like "debug".
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", level, err)
	}
	L = L.Level(lvl)
	return nil
}

func consoleFormatLevel(i interface{}) string {
	l, ok := i.(string)
	if !ok {
		return fmt.Sprintf("%v", i)
	}

	lvl, err := zerolog.ParseLevel(l)
	if err != nil {
		return "?????"
	}

	text := fmt.Sprintf("%-5s", lvl)
	if isTerminal() {
		color := map[zerolog.Level]int{
			zerolog.TraceLevel: 35, // magenta
			zerolog.DebugLevel: 33, // yellow
			zerolog.InfoLevel:  32, // green
			zerolog.WarnLevel:  31, // red
			zerolog.ErrorLevel: 31,
			zerolog.FatalLevel: 31,
		}[lvl]
		if color != 0 {
			text = fmt.Sprintf("\x1b[%dm%v\x1b[0m", color, text)
		}
	}
	return text
}

func Debugf(format string, args ...interface{}) {
	L.Debug().CallerSkipFrame(1).Msgf(format, args...)
}

func Infof(format string, args ...interface{}) {
	L.Info().CallerSkipFrame(1).Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	L.Warn().CallerSkipFrame(1).Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	L.Error().CallerSkipFrame(1).Msgf(format, args...)
}
