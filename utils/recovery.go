package utils

import (
	"fmt"
	"runtime/debug"
)

// RecoverFromPanic recovers from panics and logs them
func RecoverFromPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		logger.Error("Panic recovered in %s: %v\nStack trace:\n%s", context, r, string(stack))
	}
}

// SafeGo runs fn in a goroutine with panic recovery and returns a channel
// that is closed when fn has returned
func SafeGo(logger *Logger, context string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer RecoverFromPanic(logger, context)
		fn()
	}()
	return done
}

// SafeGoWithError runs a goroutine with panic recovery and error handling.
// onError also receives a recovered panic as an error.
func SafeGoWithError(logger *Logger, context string, fn func() error, onError func(error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in %s: %v\nStack trace:\n%s", context, r, string(debug.Stack()))
				if onError != nil {
					onError(fmt.Errorf("%s: panic: %v", context, r))
				}
			}
		}()
		if err := fn(); err != nil {
			logger.Debug("Error in %s: %v", context, err)
			if onError != nil {
				onError(err)
			}
		}
	}()
	return done
}
