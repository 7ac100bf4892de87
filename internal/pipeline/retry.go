package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"math/rand/v2"
	"time"
)

// MaxRetries bounds how often a build is re-attempted after a transient
// failure to read the source tree.
const MaxRetries = 3

// IsRetryable reports whether a batch-level build error may clear up on its
// own, as when an editor replaces a folder while it is being read.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
