// Package exception provides panic-safe goroutine helpers.
package exception

import (
	"os"
	"runtime/debug"

	"blockdb/logx"
	"blockdb/monitoring"
)

// SafeGo runs fn on a new goroutine and recovers any panic, logging it and
// bumping the panic counter.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", "Panic in: ", name, r, string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeGoWithPanic is like SafeGo but exits the process after logging, for
// goroutines the process cannot run without.
func SafeGoWithPanic(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", "Panic in: ", name, r, string(debug.Stack()))
				os.Exit(1)
			}
		}()
		fn()
	}()
}
