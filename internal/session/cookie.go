// Package session implements Cookie-header parsing and Set-Cookie
// issuance for server-managed sessions.
//
// Cookie parsing here is trimmed from net/http's cookie-jar code down to
// the server-only direction (parse an inbound Cookie header, duplicate
// names keep the first), dropping the client CookieJar /
// Set-Cookie-parsing-on-the-client half entirely, since this process never
// consumes Set-Cookie as a client.
package session

import (
	"strings"

	"github.com/mohalnassery/localhost/internal/hdr"
)

// Pair is one name=value cookie entry.
type Pair struct {
	Name  string
	Value string
}

// ParseCookieHeader parses the Cookie request header into name/value
// pairs. Names are case-sensitive; a duplicate name keeps the first
// occurrence.
func ParseCookieHeader(h hdr.Header) []Pair {
	var out []Pair
	seen := make(map[string]bool)
	for _, line := range h.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value := part, ""
			if i := strings.IndexByte(part, '='); i >= 0 {
				name, value = part[:i], part[i+1:]
			}
			if !isCookieNameValid(name) || seen[name] {
				continue
			}
			value, ok := unquoteCookieValue(value)
			if !ok {
				continue
			}
			seen[name] = true
			out = append(out, Pair{Name: name, Value: value})
		}
	}
	return out
}

// Lookup returns the value of the named cookie and whether it was present.
func Lookup(pairs []Pair, name string) (string, bool) {
	for _, p := range pairs {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func unquoteCookieValue(raw string) (string, bool) {
	if len(raw) > 1 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	for i := 0; i < len(raw); i++ {
		if !validCookieValueByte(raw[i]) {
			return "", false
		}
	}
	return raw, true
}

func validCookieValueByte(b byte) bool {
	return 0x20 <= b && b < 0x7f && b != '"' && b != ';' && b != '\\'
}

func isCookieNameValid(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !hdr.ValidHeaderFieldName(name[i : i+1]) {
			return false
		}
	}
	return true
}
