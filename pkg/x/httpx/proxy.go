package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type RouteKind int

const (
	RouteDirect RouteKind = iota
	RouteEnv
	RouteHTTP
	RouteSOCKS5
)

// Route is a parsed outbound proxy setting.
type Route struct {
	Kind RouteKind
	URL  *url.URL
}

// ParseRoute accepts "", "direct" (and other off values), "env",
// http(s)://host:port, bare host:port, and socks5(h)://[user:pass@]host:port.
func ParseRoute(raw string) (Route, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "0", "false", "off", "no", "none", "direct":
		return Route{Kind: RouteDirect}, nil
	case "env":
		return Route{Kind: RouteEnv}, nil
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Route{}, fmt.Errorf("proxy %q: %w", raw, err)
	}
	if strings.TrimSpace(u.Host) == "" {
		return Route{}, fmt.Errorf("proxy %q: missing host", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return Route{Kind: RouteHTTP, URL: u}, nil
	case "socks5", "socks5h":
		return Route{Kind: RouteSOCKS5, URL: u}, nil
	default:
		return Route{}, fmt.Errorf("proxy %q: unsupported scheme %q", raw, u.Scheme)
	}
}

// ProxyFunc returns the http.Transport.Proxy value for r. SOCKS5 routes
// are dialed instead, so they yield nil.
func (r Route) ProxyFunc() func(*http.Request) (*url.URL, error) {
	switch r.Kind {
	case RouteEnv:
		return http.ProxyFromEnvironment
	case RouteHTTP:
		return http.ProxyURL(r.URL)
	default:
		return nil
	}
}
