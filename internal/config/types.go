// Package config holds the declarative configuration tree the rest of the
// server treats as an immutable, pre-validated input. Parsing lives here
// precisely because it is a narrow collaborator with a pure input -> tree
// contract; everything downstream only ever reads from a *Config after Load
// returns.
package config

import "time"

// Method is one of the HTTP methods the router can gate a route on.
type Method string

const (
	GET    Method = "GET"
	HEAD   Method = "HEAD"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
)

// Endpoint is a (host, port) listen pair. Host may be empty to mean "all
// interfaces".
type Endpoint struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Route is one `route PREFIX { ... }` block.
type Route struct {
	Prefix           string   `yaml:"prefix"`
	Methods          []Method `yaml:"methods"`
	Root             string   `yaml:"root"`
	Index            []string `yaml:"index"`
	DirectoryListing bool     `yaml:"directory_listing"`
	CGI              string   `yaml:"cgi"` // interpreter path, empty if none
	CGIExtensions    []string `yaml:"cgi_extensions"`
	UploadEnabled    bool     `yaml:"upload_enabled"`
	UploadRoot       string   `yaml:"upload_root"`
	RedirectTarget   string   `yaml:"redirect"`
	RedirectStatus   int      `yaml:"redirect_status"` // default 301 when unset
}

// AllowsMethod reports whether m is in the route's allowed set.
func (r *Route) AllowsMethod(m Method) bool {
	for _, allowed := range r.Methods {
		if allowed == m {
			return true
		}
	}
	return false
}

// AllowHeader renders the route's allowed methods for a 405 response's
// Allow header, in configuration order.
func (r *Route) AllowHeader() string {
	out := ""
	for i, m := range r.Methods {
		if i > 0 {
			out += ", "
		}
		out += string(m)
	}
	return out
}

// ServerBlock is one `server { ... }` block.
type ServerBlock struct {
	Listen        []Endpoint        `yaml:"listen"`
	ServerNames   []string          `yaml:"server_name"`
	MaxBodySize   int64             `yaml:"max_body_size"`
	ErrorPages    map[int]string    `yaml:"error_pages"` // status -> file path
	Routes        []*Route          `yaml:"routes"`
	SessionCookie string            `yaml:"session_cookie"` // default SESSIONID
	Meta          map[string]string `yaml:"meta,omitempty"`
}

// HasServerName reports whether host (port already stripped) is in the
// block's server_name list, compared case-insensitively.
func (b *ServerBlock) HasServerName(host string) bool {
	for _, name := range b.ServerNames {
		if equalFold(name, host) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Config is the top-level, validated tree the rest of the server consumes.
type Config struct {
	Servers []*ServerBlock `yaml:"servers"`

	// Timeouts, all with sane defaults applied by Load when left unset.
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	HeaderTimeout    time.Duration `yaml:"header_timeout"`
	WriteStallTime   time.Duration `yaml:"write_stall_timeout"`
	CGITimeout       time.Duration `yaml:"cgi_timeout"`
	CGIKillGrace     time.Duration `yaml:"cgi_kill_grace"`
	ShutdownGrace    time.Duration `yaml:"shutdown_grace"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes"`
	MaxConnections   int           `yaml:"max_connections"`
	MaxCGIChildren   int           `yaml:"max_cgi_children"`
	WriteHighWaterMk int           `yaml:"write_high_water_mark"`
	WriteLowWaterMk  int           `yaml:"write_low_water_mark"`
}
