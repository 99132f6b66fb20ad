package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"shopfloor/internal/config"
)

// setupLogging installs the process logger. cfgLevel is the log_level that
// config.Load resolved from files, .env and SHOPFLOOR_LOG_LEVEL. A bad
// --log-level fails the command; a bad configured level only warns.
func setupLogging(w io.Writer, flagLevel, cfgLevel string) (warning string, err error) {
	if strings.TrimSpace(flagLevel) != "" {
		level, err := parseLogLevel(flagLevel)
		if err != nil {
			return "", fmt.Errorf("invalid --log-level %q", flagLevel)
		}
		slog.SetDefault(newLogger(w, level))
		return "", nil
	}

	level, err := parseLogLevel(cfgLevel)
	if err != nil {
		level = slog.LevelInfo
		warning = fmt.Sprintf("warning: invalid log level %q (log_level or SHOPFLOOR_LOG_LEVEL); using %s",
			cfgLevel, config.DefaultLogLevel)
	}
	slog.SetDefault(newLogger(w, level))
	return warning, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("app", "shopfloor")
}
