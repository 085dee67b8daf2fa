// Package request sends one-off API requests and form submissions, the
// manual counterparts of a load test run.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"

	"burstbench/internal/runner"
)

// Doer is the load runner's client interface, so one tuned client serves
// both.
type Doer = runner.Doer

// Spec describes an ad-hoc request. Headers is a JSON object of header
// names to values; Body, when non-blank, must be valid JSON. Filter is an
// optional JMESPath expression applied to a JSON response.
type Spec struct {
	Method  string
	URL     string
	Headers string
	Body    string
	Filter  string
}

// Response is what came back, with the body pretty-printed when it is JSON.
type Response struct {
	Status     int
	StatusText string
	Headers    http.Header
	Body       string
	IsJSON     bool
	Duration   time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Send parses the spec's headers and body, then issues the request.
// Parse failures are returned before anything is sent.
func Send(ctx context.Context, client Doer, spec Spec) (*Response, error) {
	headers, err := parseHeaders(spec.Headers)
	if err != nil {
		return nil, err
	}
	body, err := normalizeBody(spec.Body)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	out := &Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    resp.Header,
		Duration:   time.Since(start),
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		out.Body = string(raw)
		return out, nil
	}

	out.IsJSON = true
	if spec.Filter != "" {
		data, err = applyFilter(data, spec.Filter)
		if err != nil {
			return out, err
		}
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("format response: %w", err)
	}
	out.Body = string(pretty)
	return out, nil
}

func parseHeaders(raw string) (map[string]string, error) {
	headers := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return headers, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse headers: %w", err)
	}
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			headers[k] = val
		default:
			headers[k] = fmt.Sprint(val)
		}
	}
	return headers, nil
}

// normalizeBody validates a JSON body and re-serialises it compactly.
func normalizeBody(raw string) ([]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	return json.Marshal(decoded)
}

func applyFilter(data any, expression string) (any, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}
	result, err := jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}
	return result, nil
}
