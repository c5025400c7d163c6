package dwarf

import "github.com/sirupsen/logrus"

// verbose mirrors pkg/logflags' pattern of a package-level switch gating a
// dedicated logrus.Entry: off by default, so the common case pays nothing
// for the formatting work that diagnostics like the parent-walk fallback
// in DIE.ParentOffset would otherwise do on every call.
var verbose = false

var log = makeLogger()

func makeLogger() *logrus.Entry {
	logger := logrus.New().WithField("layer", "dwarf")
	logger.Logger.Level = logrus.PanicLevel
	return logger
}

// SetVerbose turns the core's diagnostic logging on or off. Diagnostics
// never change what a call returns; they are purely observable.
func SetVerbose(v bool) {
	verbose = v
	if v {
		log.Logger.Level = logrus.DebugLevel
	} else {
		log.Logger.Level = logrus.PanicLevel
	}
}
