// Package device connects to the board whose output is plotted: a MicroPython
// raw REPL over serial, TCP or WebREPL, or an offline stand-in.
package device

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Provider is the interface that all device links must implement. Next
// satisfies plot.LineSource.
type Provider interface {
	// Name returns the human-readable name of this link.
	Name() string
	// Connect opens the link and puts the device in raw REPL mode.
	Connect() error
	// Close cleanly shuts down the link.
	Close() error
	// Next blocks until the next line of device output is available.
	Next(ctx context.Context) (string, error)
}

// Sender is implemented by links that accept code. Send writes raw bytes.
type Sender interface {
	Send(data string) error
}

// Connectable is anything ConnectWithRetry can drive.
type Connectable interface {
	Connect() error
	Close() error
}

// ConnectWithRetry attempts to connect with exponential backoff.
// Starts at 1s, doubles each attempt up to 60s, logs each of the first
// maxAttempts failures with its attempt budget, then keeps retrying at the
// max interval until ctx is done.
func ConnectWithRetry(ctx context.Context, name string, c Connectable, maxAttempts int, log *zap.Logger) error {
	return connectWithRetry(ctx, name, c, maxAttempts, time.Second, 60*time.Second, log)
}

func connectWithRetry(ctx context.Context, name string, c Connectable, maxAttempts int, delay, maxDelay time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	l := log.Named("device").Sugar()
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.Connect()
		if err == nil {
			l.Infof("[%s] connected successfully (attempt %d)", name, attempt+1)
			return nil
		}

		attempt++
		if attempt <= maxAttempts {
			l.Warnf("[%s] connect attempt %d/%d failed: %v (retry in %v)",
				name, attempt, maxAttempts, err, delay)
		} else {
			l.Warnf("[%s] connect attempt %d failed: %v (retry in %v)",
				name, attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
