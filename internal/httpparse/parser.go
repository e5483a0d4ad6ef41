package httpparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohalnassery/localhost/internal/hdr"
)

// ByteSource is the minimal buffered-read contract the parser needs. It is
// satisfied directly by gnet.Conn (Peek/Discard/InboundBuffered are part of
// gnet's Reader interface) so the parser never owns or copies the
// connection's inbound ring buffer itself.
type ByteSource interface {
	Peek(n int) ([]byte, error)
	Discard(n int) (int, error)
	InboundBuffered() int
}

// Outcome is the result of one Parse/Read call.
type Outcome int

const (
	NeedMore Outcome = iota
	Complete
	Failed
)

// ParseError carries the HTTP status the connection manager should answer
// with.
type ParseError struct {
	Status int
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

func newErr(status int, format string, args ...interface{}) *ParseError {
	return &ParseError{Status: status, Reason: fmt.Sprintf(format, args...)}
}

const (
	maxMethodLen = 32
	maxTargetLen = 8 << 10
	maxHeaders   = 100
	maxLineLen   = 8 << 10
)

// HeadParser parses the request line and headers, stopping right before
// the body. It is reusable across connections (reset via NewHeadParser for
// each request); it is NOT safe for concurrent use, matching the
// single-threaded model.
type HeadParser struct {
	maxHeaderBytes int
	headerBytes    int
}

// NewHeadParser returns a parser that enforces maxHeaderBytes total across
// the request line and header block (bounded header cap, default 16 KiB).
func NewHeadParser(maxHeaderBytes int) *HeadParser {
	return &HeadParser{maxHeaderBytes: maxHeaderBytes}
}

// Parse attempts to consume a full request line + header block from src.
// On Complete, the returned Request has Method/Target/Path/RawQuery/
// Major/Minor/Header/Host/flags populated and the corresponding bytes have
// been Discarded from src. On NeedMore, nothing is consumed (the caller
// should wait for more readable data and call Parse again). On Failed, the
// caller should emit the ParseError's response and close the connection.
func (p *HeadParser) Parse(src ByteSource) (*Request, Outcome, *ParseError) {
	buffered := src.InboundBuffered()
	if buffered > p.maxHeaderBytes {
		// We cannot find a terminator within budget; this is what
		// invariant 2's "header cap" exceedance means structurally.
		peeked, _ := src.Peek(p.maxHeaderBytes)
		if idx := findHeaderEnd(peeked); idx < 0 {
			return nil, Failed, newErr(400, "header block exceeds %d bytes", p.maxHeaderBytes)
		}
	}

	peek, err := src.Peek(buffered)
	if err != nil && buffered == 0 {
		return nil, NeedMore, nil
	}
	idx := findHeaderEnd(peek)
	if idx < 0 {
		if buffered >= p.maxHeaderBytes {
			return nil, Failed, newErr(400, "header block exceeds %d bytes", p.maxHeaderBytes)
		}
		return nil, NeedMore, nil
	}

	total := idx + 4 // length of request-line+headers+terminating CRLFCRLF, adjusted below
	block, _ := src.Peek(idx)
	// findHeaderEnd returns the offset of the first byte of the blank-line
	// terminator; recompute the exact terminator width (CRLFCRLF or LFLF).
	termWidth := terminatorWidth(peek, idx)
	total = idx + termWidth

	req, perr := parseHeadBlock(block)
	if perr != nil {
		src.Discard(total)
		return nil, Failed, perr
	}

	if _, err := src.Discard(total); err != nil {
		return nil, Failed, newErr(400, "discard failed: %v", err)
	}
	return req, Complete, nil
}

// findHeaderEnd returns the index of the first byte of the blank-line
// terminator ("\r\n\r\n" or "\n\n") within buf, or -1 if not yet present.
func findHeaderEnd(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '\n' {
			if i+1 < len(buf) && buf[i+1] == '\n' {
				return i
			}
		}
		if buf[i] == '\r' && i+3 < len(buf) && buf[i+1] == '\n' && buf[i+2] == '\r' && buf[i+3] == '\n' {
			return i
		}
	}
	return -1
}

func terminatorWidth(buf []byte, idx int) int {
	if buf[idx] == '\r' {
		return 4
	}
	return 2
}

// parseHeadBlock parses the request-line + header lines out of block
// (which does not include the blank-line terminator).
func parseHeadBlock(block []byte) (*Request, *ParseError) {
	lines := splitLines(block)
	if len(lines) == 0 {
		return nil, newErr(400, "empty request")
	}

	req, perr := parseRequestLine(lines[0])
	if perr != nil {
		return nil, perr
	}

	req.Header = hdr.New()
	count := 0
	var contentLengthSeen string
	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		if len(line) > maxLineLen {
			return nil, newErr(400, "header line too long")
		}
		count++
		if count > maxHeaders {
			return nil, newErr(400, "too many headers")
		}
		key, val, perr := parseHeaderLine(line)
		if perr != nil {
			return nil, perr
		}
		if !hdr.ValidHeaderFieldName(key) {
			return nil, newErr(400, "invalid header name %q", key)
		}
		if !hdr.ValidHeaderFieldValue(val) {
			return nil, newErr(400, "invalid header value")
		}
		canon := hdr.CanonicalHeaderKey(key)
		if canon == "Content-Length" {
			if contentLengthSeen != "" && contentLengthSeen != val {
				return nil, newErr(400, "conflicting Content-Length values")
			}
			contentLengthSeen = val
		}
		req.Header.Add(key, val)
	}

	if err := applyFraming(req); err != nil {
		return nil, err
	}

	hosts := req.Header.Values("Host")
	if req.ProtoAtLeast(1, 1) && len(hosts) == 0 {
		return nil, newErr(400, "missing required Host header")
	}
	if len(hosts) > 1 {
		return nil, newErr(400, "too many Host headers")
	}
	if len(hosts) == 1 {
		req.Host = hosts[0]
	}

	req.ExpectContinue = strings.EqualFold(req.Header.Get("Expect"), "100-continue")
	req.WantsClose = computeWantsClose(req.Header, req.Major, req.Minor)
	return req, nil
}

func applyFraming(req *Request) *ParseError {
	te := req.Header.Get("Transfer-Encoding")
	if te != "" {
		if !strings.EqualFold(te, "chunked") {
			return newErr(501, "unsupported Transfer-Encoding %q", te)
		}
		req.Chunked = true
		return nil
	}
	cl := req.Header.Get("Content-Length")
	if cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return newErr(400, "invalid Content-Length")
		}
		req.HasContentLength = true
		req.ContentLength = n
		return nil
	}
	if req.Method == POST || req.Method == PUT {
		return newErr(411, "length required")
	}
	return nil
}

func parseRequestLine(line []byte) (*Request, *ParseError) {
	parts := splitSpaces(line)
	if len(parts) != 3 {
		return nil, newErr(400, "malformed request line")
	}
	method, target, version := parts[0], parts[1], parts[2]
	if len(method) == 0 || len(method) > maxMethodLen || !isAllToken(method) {
		return nil, newErr(400, "malformed method")
	}
	if len(target) == 0 || len(target) > maxTargetLen {
		return nil, newErr(414, "target too long")
	}
	major, minor, ok := parseVersion(version)
	if !ok {
		return nil, newErr(400, "malformed HTTP version")
	}

	path, rawQuery, err := splitTarget(target)
	if err != nil {
		return nil, newErr(400, "malformed request target")
	}

	return &Request{
		Method:   Method(method),
		Target:   target,
		Path:     path,
		RawQuery: rawQuery,
		Major:    major,
		Minor:    minor,
	}, nil
}

func splitTarget(target string) (string, string, error) {
	raw := target
	query := ""
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
		raw = raw[:i]
	}
	decoded, err := percentDecode(raw)
	if err != nil {
		return "", "", err
	}
	return decoded, query, nil
}

func parseVersion(v string) (major, minor int, ok bool) {
	if v == "HTTP/1.1" {
		return 1, 1, true
	}
	if v == "HTTP/1.0" {
		return 1, 0, true
	}
	return 0, 0, false
}

func parseHeaderLine(line []byte) (key, value string, perr *ParseError) {
	idx := indexByte(line, ':')
	if idx < 0 {
		return "", "", newErr(400, "malformed header line")
	}
	key = string(line[:idx])
	value = strings.TrimSpace(string(line[idx+1:]))
	return key, value, nil
}

func isAllToken(s string) bool {
	for i := 0; i < len(s); i++ {
		if !hdr.ValidHeaderFieldName(s[i : i+1]) {
			return false
		}
	}
	return true
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func splitLines(block []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := 0; i < len(block); i++ {
		if block[i] == '\n' {
			end := i
			if end > start && block[end-1] == '\r' {
				end--
			}
			lines = append(lines, block[start:end])
			start = i + 1
		}
	}
	if start < len(block) {
		lines = append(lines, block[start:])
	}
	return lines
}

func splitSpaces(line []byte) []string {
	var out []string
	start := -1
	for i := 0; i <= len(line); i++ {
		if i == len(line) || line[i] == ' ' {
			if start >= 0 {
				out = append(out, string(line[start:i]))
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	return out
}

func percentDecode(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' {
			if i+2 >= len(s) {
				return "", fmt.Errorf("truncated percent-escape")
			}
			hi, ok1 := hexVal(s[i+1])
			lo, ok2 := hexVal(s[i+2])
			if !ok1 || !ok2 {
				return "", fmt.Errorf("invalid percent-escape")
			}
			b.WriteByte(byte(hi<<4 | lo))
			i += 2
		} else {
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0'), true
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10, true
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
