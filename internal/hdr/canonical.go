/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

// commonHeader interns the header names seen on nearly every request or
// response, avoiding an allocation per parsed header line for the common
// case.
var commonHeader = make(map[string]string)

func init() {
	for _, v := range []string{
		"Accept", "Accept-Charset", "Accept-Encoding", "Accept-Language",
		"Accept-Ranges", "Allow", "Authorization", "Cache-Control",
		"Connection", "Content-Encoding", "Content-Length", "Content-Range",
		"Content-Type", "Cookie", "Date", "Expect", "Host",
		"If-Modified-Since", "If-None-Match", "Last-Modified", "Location",
		"Pragma", "Referer", "Server", "Set-Cookie", "Transfer-Encoding",
		"Upgrade", "User-Agent", "Vary", "X-Content-Type-Options",
		"X-Frame-Options", "X-Xss-Protection",
	} {
		commonHeader[v] = v
	}
}

// isTokenTable mirrors RFC 7230's token character class (tchar / DIGIT /
// ALPHA), used both to canonicalize and to validate field names.
var isTokenTable = [127]bool{
	'!': true, '#': true, '$': true, '%': true, '&': true, '\'': true,
	'*': true, '+': true, '-': true, '.': true, '^': true, '_': true,
	'`': true, '|': true, '~': true,
}

func init() {
	for c := '0'; c <= '9'; c++ {
		isTokenTable[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		isTokenTable[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		isTokenTable[c] = true
	}
}

func validHeaderFieldByte(b byte) bool {
	return int(b) < len(isTokenTable) && isTokenTable[b]
}

// ValidHeaderFieldName reports whether s is a syntactically valid header
// field name (a single RFC 7230 token).
func ValidHeaderFieldName(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !validHeaderFieldByte(s[i]) {
			return false
		}
	}
	return true
}

// ValidHeaderFieldValue reports whether v contains only bytes legal in an
// HTTP header field value (no control characters other than horizontal tab).
func ValidHeaderFieldValue(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if (b < ' ' && b != '\t') || b == 0x7f {
			return false
		}
	}
	return true
}

// CanonicalHeaderKey returns the canonical form of the header key s
// (MIME-header style: first letter and any letter following a hyphen
// upper case, the rest lower case), e.g. "content-type" -> "Content-Type".
//
// commonHeader is populated once in init and never written again: it is
// read concurrently from the reactor goroutine and from per-request CGI
// goroutines parsing child output, and a runtime cache fill would be a
// concurrent map write across them.
func CanonicalHeaderKey(s string) string {
	if v, ok := commonHeader[s]; ok {
		return v
	}
	if !validCanonicalCandidate(s) {
		return s
	}
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		} else if !upper && 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
		upper = c == '-'
	}
	canon := string(b)
	if v, ok := commonHeader[canon]; ok {
		return v
	}
	return canon
}

func validCanonicalCandidate(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !validHeaderFieldByte(c) || c == ' ' {
			return false
		}
	}
	return len(s) > 0
}
