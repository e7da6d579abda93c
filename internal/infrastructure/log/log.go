package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charm "github.com/charmbracelet/log"
)

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns the JSON handler used in production, or a colored
// human-readable handler when format is "text".
func NewHandler(w io.Writer, level, format string) slog.Handler {
	lvl := ParseLevel(level)

	if strings.EqualFold(format, "text") {
		logger := charm.NewWithOptions(w, charm.Options{ReportTimestamp: true})
		logger.SetLevel(charm.Level(lvl))
		return logger
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "level" {
				lowerCaseLevel := strings.ToLower(a.Value.String())

				return slog.Attr{
					Key:   "severity",
					Value: slog.StringValue(lowerCaseLevel),
				}
			}

			if a.Key == "msg" {
				return slog.Attr{
					Key:   "message",
					Value: a.Value,
				}
			}

			return a
		},
	})
}

func Config(level, format string) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, level, format)))
}
