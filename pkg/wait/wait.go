// Package wait polls a condition until it holds or a deadline passes.
// It backs the explicit waits test code performs against slow collaborators
// (a record appearing through an API, a file landing on disk).
package wait

import (
	"context"
	"fmt"
	"time"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 500 * time.Millisecond

// Condition is polled repeatedly. Returning true stops the wait; returning
// an error aborts it immediately.
type Condition func() (bool, error)

// Until polls cond every interval until it returns true, fails, or timeout
// elapses. The returned timeout error names the wait for diagnosability.
func Until(name string, timeout, interval time.Duration, cond Condition) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return UntilContext(ctx, name, interval, cond)
}

// UntilContext is Until with caller-controlled cancellation.
func UntilContext(ctx context.Context, name string, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	// Check once up front so an already-true condition never waits
	ok, err := cond()
	if err != nil {
		return fmt.Errorf("wait for %s: %w", name, err)
	}
	if ok {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s: %w", name, ctx.Err())
		case <-ticker.C:
			ok, err := cond()
			if err != nil {
				return fmt.Errorf("wait for %s: %w", name, err)
			}
			if ok {
				return nil
			}
		}
	}
}
