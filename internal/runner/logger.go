package runner

import "github.com/sirupsen/logrus"

// Logf is the package diagnostic logger. It defaults to logrus.Infof but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = logrus.Infof

// SetLogger replaces the package logger. Passing nil sets a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
