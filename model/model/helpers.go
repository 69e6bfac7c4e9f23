package model

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const slowExecutionThreshold = 3 * time.Second

// LogOnSlowExecutionWithParams logs a warning with the given params when the
// caller took longer than the slow execution threshold. Use with defer and
// time.Now() at method entry.
func LogOnSlowExecutionWithParams(startTime time.Time, params *log.Fields) {
	elapsed := time.Since(startTime)
	if elapsed < slowExecutionThreshold {
		return
	}

	logCtx := log.WithFields(log.Fields{"elapsed": elapsed.String()})
	if params != nil {
		logCtx = logCtx.WithFields(*params)
	}
	logCtx.Warn("Slow execution.")
}
