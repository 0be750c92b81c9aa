package httpx

import (
	"net/http"
	"testing"
)

func TestParseRoute_Kinds(t *testing.T) {
	cases := map[string]RouteKind{
		"":                             RouteDirect,
		"direct":                       RouteDirect,
		"OFF":                          RouteDirect,
		"env":                          RouteEnv,
		"127.0.0.1:7890":               RouteHTTP,
		"https://proxy.local:443":      RouteHTTP,
		"socks5://user:pw@127.0.0.1:1": RouteSOCKS5,
		"socks5h://127.0.0.1:1080":     RouteSOCKS5,
	}
	for raw, want := range cases {
		r, err := ParseRoute(raw)
		if err != nil {
			t.Fatalf("ParseRoute(%q): %v", raw, err)
		}
		if r.Kind != want {
			t.Fatalf("ParseRoute(%q) kind=%v want %v", raw, r.Kind, want)
		}
	}
}

func TestParseRoute_Errors(t *testing.T) {
	for _, raw := range []string{"http://", "socks5://", "ftp://127.0.0.1:21"} {
		if _, err := ParseRoute(raw); err == nil {
			t.Fatalf("ParseRoute(%q): expected error", raw)
		}
	}
}

func TestRoute_ProxyFunc(t *testing.T) {
	r, _ := ParseRoute("127.0.0.1:7890")
	fn := r.ProxyFunc()
	if fn == nil {
		t.Fatalf("expected proxy func for http route")
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err := fn(req)
	if err != nil || u == nil || u.String() != "http://127.0.0.1:7890" {
		t.Fatalf("unexpected proxy url: u=%v err=%v", u, err)
	}

	r, _ = ParseRoute("socks5://127.0.0.1:1080")
	if r.ProxyFunc() != nil {
		t.Fatalf("socks5 routes must not set Transport.Proxy")
	}
	r, _ = ParseRoute("")
	if r.ProxyFunc() != nil {
		t.Fatalf("direct route must not proxy")
	}
}
