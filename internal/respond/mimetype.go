package respond

import "strings"

// mimeTypes is the extension -> Content-Type lookup table, kept as a small
// fixed map rather than grown into a general media-type library.
var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".xml":  "application/xml; charset=utf-8",
	".zip":  "application/zip",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

const defaultContentType = "application/octet-stream"

func contentTypeByExt(path string) string {
	ext := ""
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = strings.ToLower(path[i:])
	}
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}
