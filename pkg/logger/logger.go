// Package logger configures the process wide logrus logger.
package logger

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup sets the level and format of the standard logrus logger. Unknown
// levels fall back to info; format "json" selects the JSON formatter.
func Setup(level, format string) {
	log.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if err != nil && level != "" {
		log.WithField("level", level).Warn("Unknown log level, using info")
	}
}

// WithRun returns an entry tagged with a job name and run id.
func WithRun(job, runID string) *log.Entry {
	return log.WithFields(log.Fields{"job": job, "run_id": runID})
}
