package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InitLogger configures the process-wide logrus instance. Level comes
// from LOG_LEVEL, defaulting to info; LOG_FORMAT=json switches to the
// JSON formatter for production log shipping.
func InitLogger() {
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
