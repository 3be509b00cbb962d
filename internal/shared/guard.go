package shared

import (
	"log/slog"
	"runtime/debug"
)

// Guard runs fn and converts a panic into an error log entry. Callbacks fired from
// timers or transport goroutines go through Guard so a bug in one handler never
// takes down the embedding process.
func Guard(logger *slog.Logger, where string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("Recovered panic in handler",
				"where", where,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
