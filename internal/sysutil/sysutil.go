// Package sysutil holds process-level helpers used by the command entrypoint.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// LogOptions configures SetupLogger.
type LogOptions struct {
	Level   string
	Pretty  bool
	Service string
	Version string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// SetupLogger installs the process logger: global level, JSON or console
// output, and service/version fields on every line. The logger also becomes
// zerolog's default context logger, so zerolog.Ctx on a context without a
// request logger still writes somewhere useful.
func SetupLogger(o LogOptions) zerolog.Logger {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if s := strings.TrimSpace(o.Service); s != "" {
		ctx = ctx.Str("service", s)
	}
	if v := strings.TrimSpace(o.Version); v != "" {
		ctx = ctx.Str("version", v)
	}
	l := ctx.Logger()

	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

// FirstNonEmpty returns the first non-blank string from a variadic list.
// If all values are blank, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
