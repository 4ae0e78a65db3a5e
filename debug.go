package particlefilter

import (
	"io"

	"github.com/sirupsen/logrus"
)

// logger defaults to warnings and above on stderr. Divergence is logged at
// warn, association misses and lifecycle at debug, per-step estimates at
// trace.
var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLogger replaces the filter's logger. Passing nil discards all output.
// It must not be called while a filter operation is running.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	logger = l
}

// opsf logs filter divergence and rejected input.
func opsf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// diagf logs association misses and lifecycle events.
func diagf(format string, args ...interface{}) {
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf(format, args...)
	}
}

// tracef logs per-step estimates.
func tracef(format string, args ...interface{}) {
	logger.Tracef(format, args...)
}
