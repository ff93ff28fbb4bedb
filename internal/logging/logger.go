package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger from config values.
// Development gets human-readable text output; everything else logs JSON.
func Setup(logLevel, environment string) {
	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if strings.ToLower(environment) == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// WithJob returns a logger scoped to one scheduled job run.
func WithJob(job, runID string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"job":    job,
		"run_id": runID,
	})
}

// WithExchange returns a logger scoped to an exchange.
func WithExchange(exchange string) *logrus.Entry {
	return logrus.WithField("exchange", exchange)
}
