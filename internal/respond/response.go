// Package respond implements static file serving, directory listing,
// redirects, upload acceptance, DELETE, and error pages, plus the response
// framing (status line + headers + identity body) that the connection
// manager writes out. No chunked transfer encoding is produced: a body
// whose length is not known up front is delimited by closing the
// connection.
//
// The discriminated Response body (inline bytes / file region / generic
// stream) splits "headers known up front" from "body written incrementally"
// as an explicit value the connection manager can inspect before committing
// to a streaming write, since writes here are non-blocking and driven by
// readiness rather than a handler calling Write from its own goroutine.
package respond

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mohalnassery/localhost/internal/hdr"
)

// BodyKind discriminates how a Response's body is supplied.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyBytes
	BodyFile
	BodyStream
)

// Response is the handler-side output, handed to the connection manager
// for framing.
type Response struct {
	Status     int
	StatusText string
	Header     hdr.Header

	Kind     BodyKind
	Bytes    []byte
	FilePath string
	FileSize int64

	Stream        io.ReadCloser // BodyStream only (e.g. CGI output)
	StreamHasSize bool          // whether Content-Length is already known for Stream
	StreamSize    int64

	CloseAfter bool // force "Connection: close" after this response
}

// New builds a Response with an empty header map; the common security +
// framing headers are added later by ApplyCommonHeaders.
func New(status int, statusText string) *Response {
	return &Response{
		Status:     status,
		StatusText: statusText,
		Header:     hdr.New(),
	}
}

// ApplyCommonHeaders stamps Server/Date and the fixed security headers.
func (r *Response) ApplyCommonHeaders(serverSoftware string, keepAlive bool) {
	r.Header.Set("Server", serverSoftware)
	r.Header.Set("Date", time.Now().UTC().Format(http1TimeFormat))
	if keepAlive && !r.CloseAfter {
		r.Header.Set("Connection", "keep-alive")
	} else {
		r.Header.Set("Connection", "close")
	}
	r.Header.Set("X-Content-Type-Options", "nosniff")
	r.Header.Set("X-Frame-Options", "DENY")
	r.Header.Set("X-Xss-Protection", "1; mode=block")
}

const http1TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// WithBytes sets an inline byte-slice body and its Content-Length/Type.
func (r *Response) WithBytes(contentType string, body []byte) *Response {
	r.Kind = BodyBytes
	r.Bytes = body
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return r
}

// StatusLine renders "HTTP/1.1 200 OK\r\n".
func (r *Response) StatusLine() string {
	return fmt.Sprintf("HTTP/1.1 %d %s\r\n", r.Status, r.StatusText)
}

// HeaderBytes renders the status line and header block, ready to be
// followed directly by the body bytes.
func (r *Response) HeaderBytes() ([]byte, error) {
	buf := &bytesBuffer{}
	buf.WriteString(r.StatusLine())
	if err := r.Header.Write(buf, nil); err != nil {
		return nil, err
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

// bytesBuffer is a tiny io.Writer accumulator, avoiding a bytes.Buffer
// import purely for WriteString/Bytes (kept local since the rest of the
// package has no other use for bytes.Buffer's full API).
type bytesBuffer struct{ b []byte }

func (w *bytesBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
func (w *bytesBuffer) WriteString(s string) { w.b = append(w.b, s...) }
func (w *bytesBuffer) Bytes() []byte        { return w.b }

// StatusText is the standard reason phrase table used whenever a Response
// is built from just a numeric status (error pages, redirects, CGI Status
// with no reason).
func StatusText(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}
	return "Status"
}

var statusText = map[int]string{
	100: "Continue",
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// openUnderRoot opens path for reading only after confirming its realpath
// is still inside root's realpath, the "confirmed after opening" half of
// the traversal check (the lexical half lives in urlpath).
func openUnderRoot(path, root string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	realRoot, err := realpath(root)
	if err != nil {
		f.Close()
		return nil, err
	}
	realPath, err := realpath(path)
	if err != nil {
		f.Close()
		return nil, err
	}
	if realPath != realRoot && !hasDirPrefix(realPath, realRoot) {
		f.Close()
		return nil, errTraversal
	}
	return f, nil
}

func hasDirPrefix(path, dir string) bool {
	if len(path) <= len(dir) || path[len(dir)] != '/' {
		return false
	}
	return path[:len(dir)] == dir
}
