// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds a retried operation. The wait before attempt n (n >= 1)
// is Backoff * 2^(n-1).
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultPullRetry is used by Pull unless WithPullRetry overrides it.
var DefaultPullRetry = RetryPolicy{Attempts: 3, Backoff: 2 * time.Second}

// Delay returns the wait before the given attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return p.Backoff * time.Duration(1<<(attempt-1))
}

// RetryWithBackoff runs op until it succeeds, reports a permanent failure,
// or the policy's attempts run out. The wait between attempts is aborted by
// ctx cancellation.
//
// op returns (retry bool, err error). If retry is false, err is returned
// immediately (nil on success). On exhaustion the last error is returned.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, op func(attempt int) (retry bool, err error)) error {
	var lastErr error
	for attempt := range max(policy.Attempts, 1) {
		if attempt > 0 {
			timer := time.NewTimer(policy.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
			case <-timer.C:
			}
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}
