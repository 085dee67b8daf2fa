package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrMissingField = errors.New("name and email are required")
	ErrInvalidEmail = errors.New("invalid email address")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}$`)

// Form is the submission test payload. Extra fields are sent as-is.
type Form struct {
	Name  string
	Email string
	Extra map[string]string
}

func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Email) == "" {
		return ErrMissingField
	}
	if !emailPattern.MatchString(f.Email) {
		return ErrInvalidEmail
	}
	return nil
}

func (f Form) values() url.Values {
	v := url.Values{}
	for k, val := range f.Extra {
		v.Set(k, val)
	}
	v.Set("name", f.Name)
	v.Set("email", f.Email)
	return v
}

// SubmitForm validates the form, posts it url-encoded to action and
// returns the response text. A non-2xx status is an error.
func SubmitForm(ctx context.Context, client Doer, action string, form Form) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(form.values().Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(body), fmt.Errorf("submit failed: HTTP %d", resp.StatusCode)
	}
	return string(body), nil
}
