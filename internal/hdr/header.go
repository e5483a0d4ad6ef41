/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package hdr implements the case-insensitive header map used throughout
// the request/response pipeline: a split of net/http's textproto header
// handling down to the map shape, canonicalization, and wire-format
// writer, with everything client/transport-specific dropped.
package hdr

import (
	"io"
	"sort"
	"strings"
)

// Header represents the key-value pairs in an HTTP header, preserving
// the order of repeated values but not of distinct keys (wire order is
// re-established by Write via a sorted key walk).
type Header map[string][]string

// New returns an empty Header ready for use.
func New() Header { return make(Header) }

// Add appends value to any values already associated with key.
func (h Header) Add(key, value string) {
	h[CanonicalHeaderKey(key)] = append(h[CanonicalHeaderKey(key)], value)
}

// Set replaces any values associated with key with the single value v.
func (h Header) Set(key, value string) {
	h[CanonicalHeaderKey(key)] = []string{value}
}

// Get returns the first value associated with key, or "" if absent.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	v := h[CanonicalHeaderKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns all values associated with key.
func (h Header) Values(key string) []string {
	if h == nil {
		return nil
	}
	return h[CanonicalHeaderKey(key)]
}

// Del removes the values associated with key.
func (h Header) Del(key string) {
	delete(h, CanonicalHeaderKey(key))
}

// Has reports whether key has at least one value set.
func (h Header) Has(key string) bool {
	_, ok := h[CanonicalHeaderKey(key)]
	return ok
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	h2 := make(Header, len(h))
	for k, vv := range h {
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		h2[k] = vv2
	}
	return h2
}

type keyValues struct {
	key    string
	values []string
}

type headerSorter struct{ kvs []keyValues }

func (s *headerSorter) Len() int           { return len(s.kvs) }
func (s *headerSorter) Swap(i, j int)      { s.kvs[i], s.kvs[j] = s.kvs[j], s.kvs[i] }
func (s *headerSorter) Less(i, j int) bool { return s.kvs[i].key < s.kvs[j].key }

// Write serializes h in wire format (CanonicalKey: value\r\n, sorted by key
// for deterministic output), excluding any key present in exclude.
func (h Header) Write(w io.Writer, exclude map[string]bool) error {
	hs := &headerSorter{kvs: make([]keyValues, 0, len(h))}
	for k, vv := range h {
		if exclude != nil && exclude[k] {
			continue
		}
		hs.kvs = append(hs.kvs, keyValues{k, vv})
	}
	sort.Sort(hs)
	for _, kv := range hs.kvs {
		for _, v := range kv.values {
			v = crlfToSpace.Replace(v)
			if _, err := io.WriteString(w, kv.key); err != nil {
				return err
			}
			if _, err := io.WriteString(w, ": "); err != nil {
				return err
			}
			if _, err := io.WriteString(w, v); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\r\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

var crlfToSpace = strings.NewReplacer("\n", " ", "\r", " ")
