package httpx

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	netproxy "golang.org/x/net/proxy"
)

type ClientOptions struct {
	Timeout time.Duration

	// Proxy selects the outbound route:
	// - "" / "direct": no proxy, even if HTTP_PROXY / HTTPS_PROXY is set
	// - "env": ProxyFromEnvironment
	// - http(s)://host:port or host:port: fixed HTTP proxy
	// - socks5://[user:pass@]host:port: SOCKS5 dialer
	Proxy string

	// Transport allows providing a pre-configured transport.
	// When nil, it clones http.DefaultTransport.
	Transport *http.Transport
}

// NewClient builds an *http.Client. A zero Timeout means 15s; a negative
// Timeout disables the client-level deadline, which streaming callers need.
func NewClient(opts ClientOptions) (*http.Client, error) {
	transport, err := NewTransport(opts.Transport, opts.Proxy)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	switch {
	case timeout == 0:
		timeout = 15 * time.Second
	case timeout < 0:
		timeout = 0
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

// NewTransport clones base (or http.DefaultTransport) and applies proxy.
func NewTransport(base *http.Transport, proxy string) (*http.Transport, error) {
	var transport *http.Transport
	if base != nil {
		transport = base.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	route, err := ParseRoute(proxy)
	if err != nil {
		return nil, err
	}
	transport.Proxy = route.ProxyFunc()
	if route.Kind == RouteSOCKS5 {
		dial, err := socks5DialContext(route.URL)
		if err != nil {
			return nil, err
		}
		transport.DialContext = dial
	}
	return transport, nil
}

func socks5DialContext(u *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	var auth *netproxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &netproxy.Auth{User: u.User.Username(), Password: pass}
	}
	forward := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	dialer, err := netproxy.SOCKS5("tcp", u.Host, auth, forward)
	if err != nil {
		return nil, err
	}
	if cd, ok := dialer.(netproxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
