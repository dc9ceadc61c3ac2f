package api

import (
	"errors"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"syscall"
)

var retryableErrorSuffixes = []string{
	syscall.ECONNREFUSED.Error(),
	syscall.ECONNRESET.Error(),
	syscall.ETIMEDOUT.Error(),
	"no such host",
	"remote error: handshake failure",
	io.ErrUnexpectedEOF.Error(),
	io.EOF.Error(),
}

var retryableStatuses = []int{
	http.StatusTooManyRequests,     // 429
	http.StatusInternalServerError, // 500
	http.StatusBadGateway,          // 502
	http.StatusServiceUnavailable,  // 503
	http.StatusGatewayTimeout,      // 504
}

// IsRetryableStatus returns true if the response's StatusCode is one that we should retry.
func IsRetryableStatus(r *Response) bool {
	return r != nil && r.Response != nil && slices.Contains(retryableStatuses, r.StatusCode)
}

// IsRetryableError reports whether err looks like a transient connection
// problem.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var neterr net.Error
	if errors.As(err, &neterr) && neterr.Timeout() {
		return true
	}

	s := err.Error()
	if strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "request canceled while waiting for connection") {
		return true
	}

	for _, suffix := range retryableErrorSuffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}

	return false
}
