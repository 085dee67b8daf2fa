package runner

import (
	"net"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second

	tcpDialTimeout      = 5 * time.Second
	tcpKeepAlive        = 30 * time.Second
	tlsHandshakeTimeout = 5 * time.Second
	idleConnTimeout     = 90 * time.Second
)

// Doer issues one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Clock is the monotonic time source used for latency measurement.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type systemClock struct{}

func (systemClock) Now() time.Time                  { return time.Now() }
func (systemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// SystemClock reads the wall clock (with its monotonic reading).
var SystemClock Clock = systemClock{}

// NewHTTPClient builds a client whose transport can keep maxConns
// connections per host open. A zero timeout means DefaultTimeout.
func NewHTTPClient(timeout time.Duration, maxConns int) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxConns <= 0 {
		maxConns = 100
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = maxConns
	t.MaxIdleConnsPerHost = maxConns
	t.MaxConnsPerHost = maxConns * 2
	t.IdleConnTimeout = idleConnTimeout
	t.TLSHandshakeTimeout = tlsHandshakeTimeout
	t.DialContext = (&net.Dialer{
		Timeout:   tcpDialTimeout,
		KeepAlive: tcpKeepAlive,
	}).DialContext

	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}
