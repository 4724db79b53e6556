package sfuworker

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

// Logger wraps a logr.Logger with the printf-style Debug/Warn/Error calls
// used throughout the control/payload channel and object-graph code.
type Logger struct {
	logr.Logger
}

func (l Logger) Debug(format string, args ...interface{}) {
	l.Logger.V(1).Info(fmt.Sprintf(format, args...))
}

func (l Logger) Warn(format string, args ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}

func (l Logger) Error(format string, args ...interface{}) {
	l.Logger.Error(nil, fmt.Sprintf(format, args...))
}

var (
	// defaultLoggerImpl is a zerolog instance with console writer
	defaultLoggerImpl = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		color, _ := strconv.ParseBool(os.Getenv("DEBUG_COLORS"))
		w.NoColor = !color
		w.TimeFormat = "2006-01-02 15:04:05.999"
	})).With().Timestamp().Caller().Logger()

	// DefaultLevel is the zerolog level newly created loggers fall back to
	// when DEBUG doesn't match their scope. Tests lower this to WarnLevel to
	// keep worker subprocess chatter out of test output.
	DefaultLevel = zerolog.InfoLevel

	// WarnLevel mirrors zerolog.WarnLevel for callers that only import this
	// package's Logger type.
	WarnLevel = zerolog.WarnLevel

	// NewLogger defines function to create logger instance.
	NewLogger = func(scope string) Logger {
		shouldDebug := false
		if debug := os.Getenv("DEBUG"); len(debug) > 0 {
			for _, part := range strings.Split(debug, ",") {
				part := strings.TrimSpace(part)
				if len(part) == 0 {
					continue
				}
				shouldMatch := true
				if part[0] == '-' {
					shouldMatch = false
					part = part[1:]
				}
				if g, err := glob.Compile(part); err == nil && g.Match(scope) {
					shouldDebug = shouldMatch
				}
			}
		}

		level := DefaultLevel

		if shouldDebug {
			level = zerolog.DebugLevel
		}

		logger := defaultLoggerImpl.Level(level)

		return Logger{zerologr.New(&logger).WithName(scope)}
	}
)

func init() {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.999Z07:00"
	zerologr.VerbosityFieldName = ""
}
