package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jimmychang851129/pstack/dwarf"
)

var query = false
var sections = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Query returns true if dwarf/starquery should log each predicate
// evaluation it performs.
func Query() bool {
	return query
}

// QueryLogger returns a configured logger for the starquery package.
func QueryLogger() *logrus.Entry {
	return makeLogger(query, logrus.Fields{"layer": "query"})
}

// Sections returns true if the "sections" subsystem was enabled through
// Setup. pkg/sections does not consult it and emits no log output.
func Sections() bool {
	return sections
}

// SectionsLogger returns a configured logger for the sections package.
func SectionsLogger() *logrus.Entry {
	return makeLogger(sections, logrus.Fields{"layer": "sections"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the CLI's logging flags based on the contents of logstr, a
// comma-separated list of subsystem names: "dwarf", "query", "sections".
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "dwarf"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "dwarf":
			dwarf.SetVerbose(true)
		case "query":
			query = true
		case "sections":
			sections = true
		}
	}
	return nil
}
