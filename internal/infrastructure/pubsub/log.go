package pubsub

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
)

// Logger routes asynq's own logging through slog under the "asynq" component.
type Logger struct {
	l *slog.Logger
}

func NewLogger() asynq.Logger {
	return &Logger{l: slog.Default().With("component", "asynq")}
}

func (l *Logger) Debug(args ...interface{}) {
	l.l.Debug(fmt.Sprint(args...))
}

func (l *Logger) Info(args ...interface{}) {
	l.l.Info(fmt.Sprint(args...))
}

func (l *Logger) Warn(args ...interface{}) {
	l.l.Warn(fmt.Sprint(args...))
}

func (l *Logger) Error(args ...interface{}) {
	l.l.Error(fmt.Sprint(args...))
}

// Fatal logs at error level and exits with status 1, as asynq expects.
func (l *Logger) Fatal(args ...interface{}) {
	l.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
