// Package retry retries short local operations with exponential backoff.
//
//	err := retry.Do(ctx, retry.DefaultPolicy(), func() error {
//	    return writeLocation(path, loc)
//	}, retry.If(isTransient))
//
// The last error is returned once the attempts are exhausted. A cancelled
// context stops the loop with the context error.
package retry
