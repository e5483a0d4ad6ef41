// Package mime implements the multipart/form-data body parsing used by the
// upload path: same Part/Header shape and boundary-delimiter framing as
// net/http/mime/multipart, simplified from an incremental-reader design
// (NextPart() pulling more off a live bufio.Reader) to operate over an
// already-fully-buffered request body, since upload bodies are bounded by
// max_body_size and read fully before dispatch — there is no
// streaming-from-socket multipart case here the way there is in a generic
// HTTP client/server library.
package mime

import (
	"bytes"
	"errors"
	"strings"

	"github.com/mohalnassery/localhost/internal/hdr"
)

// Part is one section of a multipart/form-data body.
type Part struct {
	Header   hdr.Header
	Name     string
	Filename string
	Data     []byte
}

// ErrMalformed is returned for any multipart body that doesn't follow
// RFC 2046 boundary framing closely enough to parse; callers map this to
// a 400 response.
var ErrMalformed = errors.New("mime: malformed multipart body")

// Boundary extracts the boundary parameter from a Content-Type header
// value like `multipart/form-data; boundary=----XYZ`.
func Boundary(contentType string) (string, bool) {
	parts := strings.Split(contentType, ";")
	if len(parts) < 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "multipart/form-data") {
		return "", false
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(strings.ToLower(p), "boundary=") {
			b := p[len("boundary="):]
			b = strings.Trim(b, `"`)
			if b == "" {
				return "", false
			}
			return b, true
		}
	}
	return "", false
}

// ParseForm splits body into its constituent Parts.
func ParseForm(body []byte, boundary string) ([]*Part, error) {
	delim := []byte("--" + boundary)
	segments := bytes.Split(body, delim)
	if len(segments) < 3 {
		return nil, ErrMalformed
	}
	// segments[0] is preamble, last is the epilogue after the closing
	// "--boundary--"; everything in between is "\r\n<part>\r\n".
	var parts []*Part
	for _, seg := range segments[1 : len(segments)-1] {
		seg = trimLeadingCRLF(seg)
		if bytes.HasPrefix(seg, []byte("--")) {
			// closing delimiter landed mid-slice (no trailing content)
			continue
		}
		p, err := parsePart(seg)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func trimLeadingCRLF(b []byte) []byte {
	for len(b) > 0 && (b[0] == '\r' || b[0] == '\n') {
		b = b[1:]
	}
	return b
}

func parsePart(seg []byte) (*Part, error) {
	idx := bytes.Index(seg, []byte("\r\n\r\n"))
	sepLen := 4
	if idx < 0 {
		idx = bytes.Index(seg, []byte("\n\n"))
		sepLen = 2
	}
	if idx < 0 {
		return nil, ErrMalformed
	}
	headerBlock := seg[:idx]
	data := seg[idx+sepLen:]
	// Strip the trailing CRLF that precedes the next boundary delimiter.
	data = bytes.TrimSuffix(data, []byte("\r\n"))
	data = bytes.TrimSuffix(data, []byte("\n"))

	h := hdr.New()
	for _, line := range bytes.Split(headerBlock, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		i := bytes.IndexByte(line, ':')
		if i < 0 {
			return nil, ErrMalformed
		}
		key := string(bytes.TrimSpace(line[:i]))
		val := string(bytes.TrimSpace(line[i+1:]))
		h.Add(key, val)
	}

	name, filename := parseContentDisposition(h.Get("Content-Disposition"))
	return &Part{Header: h, Name: name, Filename: filename, Data: data}, nil
}

func parseContentDisposition(cd string) (name, filename string) {
	for _, field := range strings.Split(cd, ";") {
		field = strings.TrimSpace(field)
		if kv := strings.SplitN(field, "=", 2); len(kv) == 2 {
			key := strings.ToLower(kv[0])
			val := strings.Trim(kv[1], `"`)
			switch key {
			case "name":
				name = val
			case "filename":
				filename = val
			}
		}
	}
	return name, filename
}
