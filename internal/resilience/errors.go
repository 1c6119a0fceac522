package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// TimeoutError reports that a single attempt exceeded its deadline and was
// aborted.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %s: %v", e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// StatusError reports a response that arrived with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NetworkError reports that a request could not be dispatched or its
// response could not be read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if err (or any error in its chain) is one of the
// attempt-level failures (timeout, non-2xx status, network) or matches a
// common transient network pattern.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TimeoutError
	var se *StatusError
	var ne *NetworkError
	if errors.As(err, &te) || errors.As(err, &se) || errors.As(err, &ne) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// Kind names the failure class of err for logs and metrics labels.
func Kind(err error) string {
	var te *TimeoutError
	var se *StatusError
	var ne *NetworkError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &te):
		return "timeout"
	case errors.As(err, &se):
		return "status"
	case errors.As(err, &ne):
		return "network"
	default:
		return "other"
	}
}
