// Package log is xaxlib's leveled logger. Every package logs through here
// instead of the stdlib log package, so verbosity and output format stay
// centrally controlled.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	std.SetLevel(logrus.InfoLevel)
}

// SetLevel adjusts verbosity; one of "trace", "debug", "info", "warn", "error".
func SetLevel(lvl string) {
	l, err := logrus.ParseLevel(lvl)
	if err != nil {
		std.Warnf("log: unknown level %q, keeping %s", lvl, std.GetLevel())
		return
	}
	std.SetLevel(l)
}

// Fields attaches structured context (connection id, transport, message
// type, ...) to a subsequent log line. Prefer this over interpolating the
// same values into every format string by hand.
type Fields = logrus.Fields

// VV logs at trace level: the noisiest tier, for per-frame detail.
func VV(format string, args ...interface{}) {
	std.Tracef(format, args...)
}

// D logs at debug level.
func D(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// I logs at info level.
func I(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// W logs at warn level.
func W(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// E logs at error level.
func E(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// WithFields returns an entry carrying structured fields; chain .Debug(),
// .Warn(), .Error(), .Info() on the result.
func WithFields(f Fields) *logrus.Entry {
	return std.WithFields(f)
}
