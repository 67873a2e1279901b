package database

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext returns a context canceled on SIGTERM or SIGINT.
// onSignal, when set, runs before the cancel so callers can log the signal.
// The returned stop function releases the signal registration.
func ShutdownContext(parent context.Context, onSignal func(os.Signal)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			if onSignal != nil {
				onSignal(sig)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
