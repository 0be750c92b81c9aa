package runtime

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseHTTPURL parses an absolute http(s) URL.
func ParseHTTPURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", s, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("url %q must be http or https", s)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url %q has no host", s)
	}
	return u, nil
}

func ValidateHTTPURL(raw string) error {
	_, err := ParseHTTPURL(raw)
	return err
}
