package pstesting

import (
	"log/slog"
	"os"
)

// NewLogger returns a test logger that stays quiet unless DEBUG is set
// (DEBUG=1 for info, DEBUG=2 for debug).
func NewLogger() *slog.Logger {
	level := slog.LevelError
	switch os.Getenv("DEBUG") {
	case "2":
		level = slog.LevelDebug
	case "1":
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
