package foundry

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// IsTransient reports whether err is worth retrying: catalog throttling or
// server errors, timeouts, and connection resets.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == 429 || he.StatusCode/100 == 5
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout() || ne.Temporary()
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return false
}

// RetryTransient runs f up to attempts times, sleeping with capped exponential
// backoff between transient failures. Non-transient errors return immediately.
func RetryTransient(ctx context.Context, attempts int, initialSleep time.Duration, f func() error) error {
	sleep := initialSleep
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := f()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) || i == attempts-1 {
			return err
		}

		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		sleep *= 2
		if sleep > 2*time.Second {
			sleep = 2 * time.Second
		}
	}
	return lastErr
}
