// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// EnvLevel names the environment variable holding the default log level.
const EnvLevel = "PGAGENT_LOG_LEVEL"

// InitLogging configures the default slog logger from PGAGENT_LOG_LEVEL and an
// optional -log-level / --log-level CLI flag (flag wins). It returns args with
// the flag stripped so cobra doesn't reject it.
func InitLogging(args []string) []string {
	levelStr, remaining := splitLevelFlag(os.Getenv(EnvLevel), args)

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(levelStr)})
	slog.SetDefault(slog.New(handler))

	return remaining
}

// splitLevelFlag scans args for the log-level flag and returns the effective
// level string plus the remaining args.
func splitLevelFlag(levelStr string, args []string) (string, []string) {
	if levelStr == "" {
		levelStr = "info"
	}

	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		// --log-level=value
		if v, ok := strings.CutPrefix(arg, "--log-level="); ok {
			levelStr = v
			continue
		}
		if v, ok := strings.CutPrefix(arg, "-log-level="); ok {
			levelStr = v
			continue
		}

		// -log-level value / --log-level value
		if arg == "-log-level" || arg == "--log-level" {
			if i+1 < len(args) {
				levelStr = args[i+1]
				i++
			}
			continue
		}

		remaining = append(remaining, arg)
	}
	return levelStr, remaining
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
