package respond

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var errTraversal = errors.New("respond: resolved path escapes document root")

func realpath(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// ServeStatic serves a static file or directory: directory
// (index or listing), or regular file streamed with Content-Type/
// Content-Length/Last-Modified/Cache-Control. head suppresses the body.
func ServeStatic(fsPath string, root string, index []string, listingEnabled bool, head bool) (*Response, error) {
	f, err := openUnderRoot(fsPath, root)
	if err != nil {
		if errors.Is(err, errTraversal) {
			return New(403, StatusText(403)), nil
		}
		if os.IsNotExist(err) {
			return New(404, StatusText(404)), nil
		}
		return New(403, StatusText(403)), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return New(500, StatusText(500)), nil
	}

	if info.IsDir() {
		for _, name := range index {
			candidate := filepath.Join(fsPath, name)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				return ServeStatic(candidate, root, index, listingEnabled, head)
			}
		}
		if listingEnabled {
			return renderDirectoryListing(fsPath, info)
		}
		return New(403, StatusText(403)), nil
	}

	resp := New(200, StatusText(200))
	resp.Header.Set("Content-Type", contentTypeByExt(fsPath))
	resp.Header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	resp.Header.Set("Last-Modified", info.ModTime().UTC().Format(http1TimeFormat))
	resp.Header.Set("Cache-Control", "public, max-age=3600")

	if head {
		resp.Kind = BodyNone
		return resp, nil
	}

	resp.Kind = BodyFile
	resp.FilePath = fsPath
	resp.FileSize = info.Size()
	return resp, nil
}

// renderDirectoryListing renders a bare-bones HTML index for dir; kept
// intentionally minimal.
func renderDirectoryListing(dir string, info os.FileInfo) (*Response, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return New(500, StatusText(500)), nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>Index</title></head><body><ul>\n")
	b.WriteString(`<li><a href="../">../</a></li>` + "\n")
	for _, e := range entries {
		name := e.Name()
		suffix := ""
		if e.IsDir() {
			suffix = "/"
		}
		b.WriteString(`<li><a href="` + name + suffix + `">` + name + suffix + "</a></li>\n")
	}
	b.WriteString("</ul></body></html>")

	resp := New(200, StatusText(200))
	resp.WithBytes("text/html; charset=utf-8", []byte(b.String()))
	return resp, nil
}
