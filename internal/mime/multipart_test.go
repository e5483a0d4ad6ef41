package mime

import (
	"strings"
	"testing"
)

func TestBoundary(t *testing.T) {
	b, ok := Boundary(`multipart/form-data; boundary=----WebKitBoundary123`)
	if !ok || b != "----WebKitBoundary123" {
		t.Fatalf("Boundary = %q, %v", b, ok)
	}
	if _, ok := Boundary("application/json"); ok {
		t.Error("expected ok=false for non-multipart content type")
	}
	if _, ok := Boundary("multipart/form-data"); ok {
		t.Error("expected ok=false when boundary param is missing")
	}
}

func buildMultipart(boundary string, fields map[string]string, files map[string]string) string {
	var b strings.Builder
	for name, value := range fields {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(`Content-Disposition: form-data; name="` + name + `"` + "\r\n\r\n")
		b.WriteString(value + "\r\n")
	}
	for name, content := range files {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(`Content-Disposition: form-data; name="file"; filename="` + name + `"` + "\r\n")
		b.WriteString("Content-Type: text/plain\r\n\r\n")
		b.WriteString(content + "\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.String()
}

func TestParseFormFields(t *testing.T) {
	body := buildMultipart("X", map[string]string{"a": "1"}, nil)
	parts, err := ParseForm([]byte(body), "X")
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if len(parts) != 1 || parts[0].Name != "a" || string(parts[0].Data) != "1" {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestParseFormFile(t *testing.T) {
	body := buildMultipart("X", nil, map[string]string{"a.txt": "hello world"})
	parts, err := ParseForm([]byte(body), "X")
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if len(parts) != 1 || parts[0].Filename != "a.txt" || string(parts[0].Data) != "hello world" {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestParseFormMalformed(t *testing.T) {
	if _, err := ParseForm([]byte("not multipart at all"), "X"); err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
