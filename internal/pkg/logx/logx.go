/*
Package logx sets up the chat client's zerolog logger.

Development runs write colored console lines to stderr at debug level;
everything else writes JSON lines to stdout at info level. LOG_LEVEL overrides
the level either way. Components take child loggers from Component; one-off
call sites use the Info, Warn, Error and Fatal helpers with key-value fields.
*/
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger installs the process-wide logger. level is a zerolog level
// name; empty picks debug in development and info otherwise. An unknown name
// is reported and the default is used.
func InitGlobalLogger(isDevelopment bool, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stdout
	lvl := zerolog.InfoLevel
	if isDevelopment {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		lvl = zerolog.DebugLevel
	}

	var badLevel error
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			badLevel = err
		} else {
			lvl = parsed
		}
	}

	log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()

	if badLevel != nil {
		log.Logger.Warn().Err(badLevel).Str("default", lvl.String()).Msg("Ignoring LOG_LEVEL.")
	}
}

// SetOutput redirects the global logger, keeping its level. Tests use it to
// capture or silence output.
func SetOutput(w io.Writer) {
	log.Logger = log.Logger.Output(w)
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

func Info(msg string, fields ...any) {
	write(Logger().Info(), "Info", msg, fields)
}

func Warn(msg string, fields ...any) {
	write(Logger().Warn(), "Warn", msg, fields)
}

func Error(err error, msg string, fields ...any) {
	write(Logger().Error().Err(err), "Error", msg, fields)
}

// Fatal logs at fatal level and exits the process.
func Fatal(err error, msg string, fields ...any) {
	write(Logger().Fatal().Err(err), "Fatal", msg, fields)
}

// write attaches key-value fields and sends ev, reporting the helper's caller.
// An odd field count would make zerolog panic, so the fields are dropped and
// the mistake logged instead.
func write(ev *zerolog.Event, level, msg string, fields []any) {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msg("Odd number of log fields. Fields ignored.")
		fields = nil
	}

	ev.Fields(fields).CallerSkipFrame(2).Msg(msg)
}
