package respond

import (
	"strings"
	"testing"
)

func TestWithBytesSetsHeaders(t *testing.T) {
	r := New(200, "OK").WithBytes("text/plain", []byte("hi"))
	if r.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
	}
	if r.Header.Get("Content-Length") != "2" {
		t.Errorf("Content-Length = %q", r.Header.Get("Content-Length"))
	}
	if r.Kind != BodyBytes {
		t.Errorf("Kind = %v, want BodyBytes", r.Kind)
	}
}

func TestApplyCommonHeadersKeepAlive(t *testing.T) {
	r := New(200, "OK")
	r.ApplyCommonHeaders("localhost/1.0", true)
	if r.Header.Get("Connection") != "keep-alive" {
		t.Errorf("Connection = %q", r.Header.Get("Connection"))
	}
	if r.Header.Get("Server") != "localhost/1.0" {
		t.Errorf("Server = %q", r.Header.Get("Server"))
	}
	if r.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
}

func TestApplyCommonHeadersForceClose(t *testing.T) {
	r := New(200, "OK")
	r.CloseAfter = true
	r.ApplyCommonHeaders("localhost/1.0", true)
	if r.Header.Get("Connection") != "close" {
		t.Errorf("Connection = %q, want close", r.Header.Get("Connection"))
	}
}

func TestHeaderBytesRendersStatusLine(t *testing.T) {
	r := New(404, "Not Found")
	b, err := r.HeaderBytes()
	if err != nil {
		t.Fatalf("HeaderBytes: %v", err)
	}
	if !strings.HasPrefix(string(b), "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("got %q", b)
	}
	if !strings.HasSuffix(string(b), "\r\n\r\n") {
		t.Errorf("missing trailing blank line: %q", b)
	}
}

func TestStatusText(t *testing.T) {
	if StatusText(200) != "OK" {
		t.Errorf("StatusText(200) = %q", StatusText(200))
	}
	if StatusText(999) != "Status" {
		t.Errorf("StatusText(999) = %q, want fallback", StatusText(999))
	}
}

func TestRedirectDefaultsTo301(t *testing.T) {
	r := Redirect("/new", 0)
	if r.Status != 301 {
		t.Errorf("Status = %d, want 301", r.Status)
	}
	if r.Header.Get("Location") != "/new" {
		t.Errorf("Location = %q", r.Header.Get("Location"))
	}
}

func TestRedirectExplicitStatus(t *testing.T) {
	r := Redirect("/new", 302)
	if r.Status != 302 {
		t.Errorf("Status = %d, want 302", r.Status)
	}
}

func TestErrorPageBuiltIn(t *testing.T) {
	r := ErrorPage(404, nil, nil)
	if r.Status != 404 {
		t.Errorf("Status = %d", r.Status)
	}
	if !strings.Contains(string(r.Bytes), "404") {
		t.Errorf("body missing status code: %q", r.Bytes)
	}
}

func TestErrorPageConfiguredFile(t *testing.T) {
	calls := 0
	readFile := func(path string) ([]byte, error) {
		calls++
		return []byte("<html>custom 500</html>"), nil
	}
	r := ErrorPage(500, map[int]string{500: "/errors/500.html"}, readFile)
	if calls != 1 {
		t.Fatalf("readFile called %d times, want 1", calls)
	}
	if string(r.Bytes) != "<html>custom 500</html>" {
		t.Errorf("body = %q", r.Bytes)
	}
}

func TestContentTypeByExt(t *testing.T) {
	if got := contentTypeByExt("a/b.html"); got != "text/html; charset=utf-8" {
		t.Errorf("contentTypeByExt(.html) = %q", got)
	}
	if got := contentTypeByExt("a/b.unknownext"); got != defaultContentType {
		t.Errorf("contentTypeByExt(.unknownext) = %q, want default", got)
	}
}
