package router

import (
	"testing"

	"github.com/mohalnassery/localhost/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Servers: []*config.ServerBlock{
			{
				Listen:      []config.Endpoint{{Host: "", Port: 8080}},
				ServerNames: []string{"default.test"},
				Routes: []*config.Route{
					{Prefix: "/", Methods: []config.Method{config.GET, config.HEAD}, Root: "/var/www"},
					{Prefix: "/api", Methods: []config.Method{config.GET, config.POST}, Root: "/var/api"},
					{Prefix: "/api/v2", Methods: []config.Method{config.GET}, Root: "/var/api/v2"},
				},
			},
			{
				Listen:      []config.Endpoint{{Host: "", Port: 8080}},
				ServerNames: []string{"other.test"},
				Routes: []*config.Route{
					{Prefix: "/", Methods: []config.Method{config.GET}, Root: "/var/other"},
				},
			},
		},
	}
}

func TestRouteLongestPrefixWins(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 8080, "default.test", "/api/v2/widgets", "GET")
	if d.Status != 0 || d.Route == nil || d.Route.Prefix != "/api/v2" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestRouteVirtualHostSelection(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 8080, "other.test", "/anything", "GET")
	if d.Status != 0 || d.Route == nil || d.Route.Root != "/var/other" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestRouteUnknownHostFallsBackToDefault(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 8080, "nonexistent.test", "/", "GET")
	if d.Status != 0 || d.Route == nil || d.Route.Root != "/var/www" {
		t.Fatalf("decision = %+v, want default block", d)
	}
}

func TestRouteMethodNotAllowed(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 8080, "default.test", "/api/v2/widgets", "POST")
	if d.Status != 405 || d.Allow != "GET" {
		t.Fatalf("decision = %+v, want 405/Allow=GET", d)
	}
}

func TestRouteUnknownMethodIs501(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 8080, "default.test", "/", "PATCH")
	if d.Status != 501 {
		t.Fatalf("decision = %+v, want 501", d)
	}
}

func TestRouteNoMatchingEndpoint(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 9999, "default.test", "/", "GET")
	if d.Status != 404 {
		t.Fatalf("decision = %+v, want 404", d)
	}
}

func TestRouteHostHeaderWithPortStripped(t *testing.T) {
	r := New(testConfig())
	d := r.Route("", 8080, "other.test:8080", "/", "GET")
	if d.Status != 0 || d.Route.Root != "/var/other" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestEndpointKeyCaseInsensitive(t *testing.T) {
	if EndpointKey("Example.Test", 80) != EndpointKey("example.test", 80) {
		t.Error("EndpointKey should lower-case the host")
	}
}
