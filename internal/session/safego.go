package session

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// safeGo launches a goroutine with panic recovery, logging the recovered
// value and a stack trace instead of crashing the process.
func safeGo(log *slog.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
