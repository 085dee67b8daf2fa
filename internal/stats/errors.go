package stats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Categorize buckets a failed request for the failure summary.
// A zero status with a nil error is reported as "unknown".
func Categorize(status int, err error) string {
	if err == nil {
		if status != 0 {
			return fmt.Sprintf("HTTP %d", status)
		}
		return "unknown"
	}

	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "connection reset"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "tls") || strings.Contains(msg, "x509"):
		return "tls"
	case strings.Contains(msg, "unsupported protocol"):
		return "invalid url"
	}
	return "network"
}
