// Package logger builds the structured logrus.FieldLogger used throughout
// the engine.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.elastic.co/ecslogrus"
)

// CreateLogger returns a logrus.FieldLogger tagged with the given service
// name, formatted as ECS-shaped JSON and leveled from LOG_LEVEL.
func CreateLogger(serviceName string) logrus.FieldLogger {
	l := logrus.New()
	l.SetFormatter(&ecslogrus.Formatter{})
	l.SetLevel(levelFromEnv())
	return l.WithField("service", serviceName)
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
