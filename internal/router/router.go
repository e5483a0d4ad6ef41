// Package router implements virtual-host selection followed by
// longest-prefix route matching, generalizing the usual "longest
// registered pattern wins, ties by registration order" ServeMux idea for a
// flat handler map to two levels: server block by (listen endpoint, Host
// header), then route by path prefix within the chosen block.
package router

import (
	"strings"

	"github.com/mohalnassery/localhost/internal/config"
)

// Router resolves (endpoint, host, path, method) into a routing Decision.
type Router struct {
	// blocksByEndpoint holds, for each bound "host:port" string, the list
	// of server blocks sharing that socket (collapsed duplicates) in
	// configuration order — the first is the default.
	blocksByEndpoint map[string][]*config.ServerBlock
}

// New builds a Router from a validated Config.
func New(cfg *config.Config) *Router {
	r := &Router{blocksByEndpoint: make(map[string][]*config.ServerBlock)}
	for _, sb := range cfg.Servers {
		for _, ep := range sb.Listen {
			key := EndpointKey(ep.Host, ep.Port)
			r.blocksByEndpoint[key] = append(r.blocksByEndpoint[key], sb)
		}
	}
	return r
}

// EndpointKey canonicalizes a (host, port) pair for lookup.
func EndpointKey(host string, port int) string {
	return strings.ToLower(host) + ":" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [12]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// Decision is the outcome of routing a request.
type Decision struct {
	Block *config.ServerBlock
	Route *config.Route
	// Status is non-zero when routing terminates early (404/405/501) and
	// Route/Block below should be used only for constructing the error
	// response (e.g. Allow header on 405).
	Status int
	Allow  string // populated on a 405 Decision
}

// Route selects a server block (by endpoint + Host header) then a route
// within it (longest prefix) and enforces the method allow-list. hostHeader
// is the request's Host value as sent; a trailing numeric port is stripped
// here before the server-name comparison.
func (r *Router) Route(listenHost string, listenPort int, hostHeader, path, method string) Decision {
	blocks := r.blocksByEndpoint[EndpointKey(listenHost, listenPort)]
	if len(blocks) == 0 {
		blocks = r.blocksByEndpoint[EndpointKey("", listenPort)]
	}
	if len(blocks) == 0 {
		return Decision{Status: 404}
	}

	block := blocks[0] // default server for this endpoint
	hostOnly := stripPort(hostHeader)
	for _, b := range blocks {
		if b.HasServerName(hostOnly) {
			block = b
			break
		}
	}

	route := longestPrefixMatch(block.Routes, path)
	if route == nil {
		return Decision{Block: block, Status: 404}
	}

	if !isKnownMethod(method) {
		return Decision{Block: block, Route: route, Status: 501}
	}

	if !route.AllowsMethod(config.Method(method)) {
		return Decision{Block: block, Route: route, Status: 405, Allow: route.AllowHeader()}
	}

	return Decision{Block: block, Route: route}
}

// isKnownMethod reports whether method is one of the tokens the parser
// recognizes structurally; anything else parsed syntactically but is
// rejected here with 501, per spec.
func isKnownMethod(method string) bool {
	switch config.Method(method) {
	case config.GET, config.HEAD, config.POST, config.PUT, config.DELETE:
		return true
	}
	return false
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		// guard against IPv6 literals "[::1]:80" — only strip if what
		// follows looks like a numeric port.
		rest := host[i+1:]
		numeric := len(rest) > 0
		for _, c := range rest {
			if c < '0' || c > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			return host[:i]
		}
	}
	return host
}

// longestPrefixMatch returns the route whose Prefix is the longest match
// of path, ties broken by configuration order (first one registered wins),
// mirroring mux.ServeMux's match() walk over its sorted-by-length patterns.
func longestPrefixMatch(routes []*config.Route, path string) *config.Route {
	var best *config.Route
	bestLen := -1
	for _, rt := range routes {
		if !strings.HasPrefix(path, rt.Prefix) {
			continue
		}
		if len(rt.Prefix) > bestLen {
			best = rt
			bestLen = len(rt.Prefix)
		}
	}
	return best
}
