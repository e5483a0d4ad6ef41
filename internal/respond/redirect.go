package respond

// Redirect emits status (default 301 when unset) with a Location header.
func Redirect(target string, status int) *Response {
	if status == 0 {
		status = 301
	}
	resp := New(status, StatusText(status))
	resp.Header.Set("Location", target)
	resp.Kind = BodyNone
	return resp
}

// ErrorPage renders an error response: serve the
// configured error-page file for status if present and readable, else a
// compact built-in HTML body.
func ErrorPage(status int, mapping map[int]string, readFile func(string) ([]byte, error)) *Response {
	if path, ok := mapping[status]; ok && readFile != nil {
		if body, err := readFile(path); err == nil {
			resp := New(status, StatusText(status))
			resp.WithBytes("text/html; charset=utf-8", body)
			return resp
		}
	}
	resp := New(status, StatusText(status))
	body := "<!DOCTYPE html><html><head><title>" + resp.StatusText + "</title></head>" +
		"<body><h1>" + itoa(status) + " " + resp.StatusText + "</h1></body></html>"
	resp.WithBytes("text/html; charset=utf-8", []byte(body))
	return resp
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [6]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
