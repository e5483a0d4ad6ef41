package respond

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/mohalnassery/localhost/internal/mime"
)

// HandleUpload accepts an uploaded body: multipart/form-data writes the
// body of each part that carries a filename to a file under root (parts
// without a filename are not stored, and a body with no such part is
// answered 400); any other content type with upload enabled stores the
// whole body under a generated filename.
func HandleUpload(body []byte, contentType string, root string) (*Response, error) {
	if boundary, ok := mime.Boundary(contentType); ok {
		parts, err := mime.ParseForm(body, boundary)
		if err != nil {
			return New(400, StatusText(400)), nil
		}
		saved := 0
		for _, p := range parts {
			if p.Filename == "" {
				continue
			}
			name := sanitizeFilename(p.Filename)
			if err := writeUnderRoot(root, name, p.Data); err != nil {
				return New(500, StatusText(500)), nil
			}
			saved++
		}
		if saved == 0 {
			return New(400, StatusText(400)), nil
		}
		return New(201, StatusText(201)), nil
	}

	name := generatedFilename()
	if err := writeUnderRoot(root, name, body); err != nil {
		return New(500, StatusText(500)), nil
	}
	return New(201, StatusText(201)), nil
}

func writeUnderRoot(root, name string, data []byte) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, name), data, 0o644)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return generatedFilename()
	}
	return name
}

func generatedFilename() string {
	var b [8]byte
	rand.Read(b[:])
	return "upload-" + hex.EncodeToString(b[:])
}
