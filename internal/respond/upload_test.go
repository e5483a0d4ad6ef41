package respond

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleUploadRaw(t *testing.T) {
	root := t.TempDir()
	resp, err := HandleUpload([]byte("raw body"), "application/octet-stream", root)
	if err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	if resp.Status != 201 {
		t.Fatalf("Status = %d, want 201", resp.Status)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Fatalf("expected 1 file written, got %d", len(entries))
	}
}

func TestHandleUploadMultipart(t *testing.T) {
	root := t.TempDir()
	boundary := "XYZ"
	var b strings.Builder
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString(`Content-Disposition: form-data; name="file"; filename="note.txt"` + "\r\n\r\n")
	b.WriteString("hello upload\r\n")
	b.WriteString("--" + boundary + "--\r\n")

	resp, err := HandleUpload([]byte(b.String()), "multipart/form-data; boundary="+boundary, root)
	if err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	if resp.Status != 201 {
		t.Fatalf("Status = %d, want 201", resp.Status)
	}
	data, err := os.ReadFile(filepath.Join(root, "note.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello upload" {
		t.Errorf("content = %q", data)
	}
}

func TestHandleUploadMultipartNoFiles(t *testing.T) {
	root := t.TempDir()
	boundary := "XYZ"
	var b strings.Builder
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString(`Content-Disposition: form-data; name="field"` + "\r\n\r\n")
	b.WriteString("value\r\n")
	b.WriteString("--" + boundary + "--\r\n")

	resp, err := HandleUpload([]byte(b.String()), "multipart/form-data; boundary="+boundary, root)
	if err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	if resp.Status != 400 {
		t.Fatalf("Status = %d, want 400 (no filename-bearing parts)", resp.Status)
	}
}

func TestSanitizeFilenameStripsPath(t *testing.T) {
	if got := sanitizeFilename("../../etc/passwd"); got != "passwd" {
		t.Errorf("sanitizeFilename = %q, want passwd", got)
	}
}
