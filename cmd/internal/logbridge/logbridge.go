// Package logbridge adapts logrus to the routing.Logger interface for the
// command-line binaries.
package logbridge

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// LogrusLogger bridges a logrus logger to the routing.Logger interface.
// Variadic args are interpreted as alternating key/value pairs, slog-style,
// and become logrus fields.
type LogrusLogger struct {
	log *logrus.Logger
}

// New creates a routing.Logger bridge around the given logrus logger.
func New(log *logrus.Logger) LogrusLogger {
	return LogrusLogger{log: log}
}

func (l LogrusLogger) Debug(msg string, args ...any) {
	l.log.WithFields(fieldsFromArgs(args)).Debug(msg)
}

func (l LogrusLogger) Info(msg string, args ...any) {
	l.log.WithFields(fieldsFromArgs(args)).Info(msg)
}

func (l LogrusLogger) Warn(msg string, args ...any) {
	l.log.WithFields(fieldsFromArgs(args)).Warn(msg)
}

func (l LogrusLogger) Error(msg string, args ...any) {
	l.log.WithFields(fieldsFromArgs(args)).Error(msg)
}

func fieldsFromArgs(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		fields[key] = args[i+1]
	}

	// An unpaired trailing value is kept rather than dropped.
	if len(args)%2 != 0 {
		fields["arg"] = args[len(args)-1]
	}

	return fields
}

var _ routing.Logger = LogrusLogger{}
