package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sweater-ventures/devslog"
	"golang.org/x/term"
)

type ContextKey string

var LoggerContextKey = ContextKey("logger")

var logLevel *slog.LevelVar

// InitLogging installs the process-wide slog handler. Terminals get the
// devslog handler; everything else (and JSON_LOGGING=true) gets JSON.
func InitLogging() {
	logLevel = new(slog.LevelVar)
	logLevel.Set(slog.LevelInfo)
	jsonLogging := false
	jsonLoggingEnv, ok := os.LookupEnv("JSON_LOGGING")
	if ok && strings.ToLower(jsonLoggingEnv) == "true" {
		jsonLogging = true
	}
	if jsonLogging || !term.IsTerminal(int(os.Stdout.Fd())) {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})))
	} else {
		slog.SetDefault(slog.New(devslog.NewHandler(os.Stdout, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				Level: logLevel,
			},
			TimeFormat:           "[ 15:04:05 ]",
			StringIndentation:    true,
			DisableAttributeType: true,
		})))
	}
}
