// Package httpparse implements the incremental HTTP/1.1 request-line +
// header parser and the body reader that consumes a framed body
// (Content-Length or chunked) under a caller-supplied size cap.
//
// The parser is deliberately re-entrant over a ByteSource rather than a
// blocking io.Reader: no blocking syscall is allowed on a client
// descriptor, so every Parse/Read call must return NeedMore rather than
// wait for more bytes to arrive. This generalizes the usual
// framing/would-block bookkeeping and textproto-style header reading from
// "delegate to a blocking bufio.Reader under a deadline" to "advance only
// what is already buffered, signal NeedMore otherwise."
package httpparse

import (
	"strings"

	"github.com/mohalnassery/localhost/internal/hdr"
)

// Method is the request method token. Unknown tokens parse successfully
// (accepted syntactically but rejected at routing with 501) and are
// carried through as-is.
type Method string

const (
	GET    Method = "GET"
	HEAD   Method = "HEAD"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
)

// Request is the structurally-valid request the parser hands to the router.
// Body framing has been classified (ContentLength / Chunked) but the body
// bytes themselves are filled in separately by a BodyReader once a route
// (and therefore a max_body_size) is known.
type Request struct {
	Method      Method
	Target      string // raw request-target, unmodified
	Path        string // decoded, not yet cleaned/resolved
	RawQuery    string
	Major, Minor int
	Header      hdr.Header

	Host string

	HasContentLength bool
	ContentLength    int64
	Chunked          bool
	ExpectContinue   bool
	WantsClose       bool // "Connection: close" or HTTP/1.0 without keep-alive

	Body []byte // filled by BodyReader
}

// ProtoAtLeast reports whether the request's version is >= major.minor.
func (r *Request) ProtoAtLeast(major, minor int) bool {
	return r.Major > major || (r.Major == major && r.Minor >= minor)
}

// HasBody reports whether the request framing implies a body is present.
func (r *Request) HasBody() bool {
	return r.Chunked || (r.HasContentLength && r.ContentLength > 0)
}

func computeWantsClose(header hdr.Header, major, minor int) bool {
	conn := strings.ToLower(header.Get("Connection"))
	if strings.Contains(conn, "close") {
		return true
	}
	if major == 1 && minor == 0 {
		return !strings.Contains(conn, "keep-alive")
	}
	return false
}
