package respond

import (
	"os"
	"path/filepath"
	"testing"
)

func TestServeStaticRegularFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, err := ServeStatic(filepath.Join(root, "a.txt"), root, nil, false, false)
	if err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}
	if resp.Status != 200 || resp.Kind != BodyFile || resp.FileSize != 5 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestServeStaticHeadSuppressesBody(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644)
	resp, err := ServeStatic(filepath.Join(root, "a.txt"), root, nil, false, true)
	if err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}
	if resp.Kind != BodyNone {
		t.Errorf("Kind = %v, want BodyNone for HEAD", resp.Kind)
	}
	if resp.Header.Get("Content-Length") != "5" {
		t.Errorf("Content-Length = %q", resp.Header.Get("Content-Length"))
	}
}

func TestServeStaticMissingFile(t *testing.T) {
	root := t.TempDir()
	resp, err := ServeStatic(filepath.Join(root, "missing.txt"), root, nil, false, false)
	if err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}
	if resp.Status != 404 {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
}

func TestServeStaticDirectoryIndex(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0o644)
	resp, err := ServeStatic(root, root, []string{"index.html"}, false, false)
	if err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}
	if resp.Status != 200 || resp.Kind != BodyFile {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestServeStaticDirectoryListingDisabled(t *testing.T) {
	root := t.TempDir()
	resp, err := ServeStatic(root, root, nil, false, false)
	if err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}
	if resp.Status != 403 {
		t.Errorf("Status = %d, want 403", resp.Status)
	}
}

func TestServeStaticDirectoryListingEnabled(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "b.txt"), []byte("x"), 0o644)
	resp, err := ServeStatic(root, root, nil, true, false)
	if err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}
	if resp.Status != 200 || resp.Kind != BodyBytes {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleDeleteSuccess(t *testing.T) {
	root := t.TempDir()
	fp := filepath.Join(root, "a.txt")
	os.WriteFile(fp, []byte("x"), 0o644)
	resp, err := HandleDelete(fp, root)
	if err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	if resp.Status != 204 {
		t.Errorf("Status = %d, want 204", resp.Status)
	}
	if _, err := os.Stat(fp); !os.IsNotExist(err) {
		t.Error("file should have been removed")
	}
}

func TestHandleDeleteDirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	os.Mkdir(sub, 0o755)
	resp, err := HandleDelete(sub, root)
	if err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	if resp.Status != 409 {
		t.Errorf("Status = %d, want 409", resp.Status)
	}
}

func TestHandleDeleteMissing(t *testing.T) {
	root := t.TempDir()
	resp, err := HandleDelete(filepath.Join(root, "nope.txt"), root)
	if err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	if resp.Status != 404 {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
}
