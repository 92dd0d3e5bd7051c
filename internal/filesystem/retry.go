// Package filesystem provides filesystem operations with retry logic for
// transient errors on network-backed volumes (NFS stale handles, EIO).
package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"pdf-preview/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isRetryable reports whether an error is a transient filesystem error
// worth retrying. Permission and not-exist errors are permanent.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) || os.IsPermission(err) {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ESTALE, syscall.EIO, syscall.EAGAIN, syscall.EINTR, syscall.EBUSY:
			return true
		}
	}
	return false
}

func withRetry(op string, config RetryConfig, fn func() error) error {
	backoff := config.InitialBackoff
	var err error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("filesystem: retrying %s (attempt %d/%d) after %v: %v",
				op, attempt, config.MaxRetries, backoff, err)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
	}

	return err
}

// Remove removes a file, retrying transient errors.
func Remove(path string) error {
	return withRetry("remove", DefaultRetryConfig(), func() error {
		return os.Remove(path)
	})
}

// Stat stats a file, retrying transient errors.
func Stat(path string) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", DefaultRetryConfig(), func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	return info, err
}

// WriteFile writes a file, retrying transient errors.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return withRetry("write", DefaultRetryConfig(), func() error {
		return os.WriteFile(path, data, perm)
	})
}
