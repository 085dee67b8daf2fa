package runner

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid run config")

// Config describes one load test run.
type Config struct {
	Endpoint      string            `json:"endpoint" yaml:"endpoint"`
	TotalRequests int               `json:"totalRequests" yaml:"total_requests"`
	Concurrency   int               `json:"concurrency" yaml:"concurrency"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Validate checks the counts and that the endpoint is a usable http(s)
// target. Templated endpoints are checked when the template is parsed.
func (c Config) Validate() error {
	if c.TotalRequests <= 0 {
		return fmt.Errorf("%w: total requests must be greater than 0", ErrInvalidConfig)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be greater than 0", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if isTemplate(c.Endpoint) {
		return nil
	}
	return validateURL(c.Endpoint)
}

// Limit is the effective number of requests allowed in flight.
func (c Config) Limit() int {
	if c.Concurrency > c.TotalRequests {
		return c.TotalRequests
	}
	return c.Concurrency
}

// ParseHeaders turns "Key: Value" pairs into a header map.
func ParseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, h := range pairs {
		if strings.TrimSpace(h) == "" {
			continue
		}
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: header %q must be Key: Value", ErrInvalidConfig, h)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: endpoint scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: endpoint has no host", ErrInvalidConfig)
	}
	return nil
}

// Snapshot is sent over the update channel while a run is in progress
type Snapshot struct {
	Total    int
	Success  int
	Fail     int
	Inflight int64

	AvgMs float64
	P90Ms int64

	Elapsed time.Duration
	Done    bool
}

// Settled is the number of requests that reached a terminal state.
func (s Snapshot) Settled() int {
	return s.Success + s.Fail
}

// Progress returns the settled fraction in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Settled()) / float64(s.Total)
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan Snapshot
