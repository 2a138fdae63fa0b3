package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonesrussell/crawljobs/internal/logger"
)

const (
	signalChannelBufferSize = 1
	defaultShutdownTimeout  = 30 * time.Second
)

// StopFunc stops one running component. RunUntilInterrupt invokes stops in
// the order given, all sharing one bounded shutdown context.
type StopFunc func(ctx context.Context) error

// RunUntilInterrupt blocks until an OS interrupt/SIGTERM arrives or errChan
// reports a component failure, then runs stops in order.
func RunUntilInterrupt(log logger.Interface, errChan <-chan error, stops ...StopFunc) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("component error, shutting down", "error", err.Error())
		}
		Shutdown(log, stops...)
		if err != nil {
			return fmt.Errorf("component error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
		Shutdown(log, stops...)
		return nil
	}
}

// Shutdown runs each stop in order, logging and continuing past individual
// failures so one component's shutdown error doesn't strand the rest.
func Shutdown(log logger.Interface, stops ...StopFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	for _, stop := range stops {
		if stop == nil {
			continue
		}
		if err := stop(ctx); err != nil {
			log.Error("component failed to stop cleanly", "error", err.Error())
		}
	}
	log.Info("shutdown complete")
}
